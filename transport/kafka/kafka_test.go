package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/mediabridge/transport"
	"github.com/drblury/mediabridge/transport/transporttest"
)

func TestCapabilities(t *testing.T) {
	caps := Capabilities()
	assert.Equal(t, transport.KafkaCapabilities, caps)
	assert.True(t, caps.Durable)
}

func TestBuild(t *testing.T) {
	t.Run("creates publisher with client id", func(t *testing.T) {
		original := PublisherFactory
		defer func() { PublisherFactory = original }()

		pub := &transporttest.Publisher{}
		PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
			require.NotNil(t, cfg.OverwriteSaramaConfig)
			assert.Equal(t, "studio-1", cfg.OverwriteSaramaConfig.ClientID)
			return pub, nil
		}

		tr, err := Build(context.Background(), &transporttest.Config{
			KafkaBrokers:  []string{"localhost:9092"},
			KafkaClientID: "studio-1",
		}, watermill.NopLogger{})
		require.NoError(t, err)
		assert.Same(t, pub, tr.Publisher)
		assert.Nil(t, tr.Subscriber)
	})

	t.Run("defaults client id", func(t *testing.T) {
		original := PublisherFactory
		defer func() { PublisherFactory = original }()

		PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			assert.Equal(t, DefaultClientID, cfg.OverwriteSaramaConfig.ClientID)
			return &transporttest.Publisher{}, nil
		}
		_, err := Build(context.Background(), &transporttest.Config{KafkaBrokers: []string{"b:9092"}}, watermill.NopLogger{})
		require.NoError(t, err)
	})

	t.Run("requires brokers", func(t *testing.T) {
		_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
		require.Error(t, err)
	})

	t.Run("propagates factory errors", func(t *testing.T) {
		original := PublisherFactory
		defer func() { PublisherFactory = original }()

		PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}
		_, err := Build(context.Background(), &transporttest.Config{KafkaBrokers: []string{"b:9092"}}, watermill.NopLogger{})
		require.EqualError(t, err, "publisher error")
	})
}

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("1", nil)
	msg.Metadata.Set("mb_family", "MediaPlayerSourceObserver")
	msg.Metadata.Set("mb_instance", "3")

	key, err := PartitionKey("events", msg)
	require.NoError(t, err)
	assert.Equal(t, "MediaPlayerSourceObserver/3", key)

	engine := message.NewMessage("2", nil)
	engine.Metadata.Set("mb_family", "RtcEngineEventHandler")
	key, err = PartitionKey("events", engine)
	require.NoError(t, err)
	assert.Equal(t, "RtcEngineEventHandler", key)
}
