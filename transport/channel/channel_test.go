package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/mediabridge/transport"
	"github.com/drblury/mediabridge/transport/transporttest"
)

func TestRegister(t *testing.T) {
	original := transport.DefaultRegistry
	defer func() { transport.DefaultRegistry = original }()

	transport.DefaultRegistry = transport.NewRegistry()
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "channel", caps.Name)
	assert.True(t, caps.SupportsOrdering)
	assert.True(t, caps.Subscribable)
}

func TestBuildRoundTrip(t *testing.T) {
	tr, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msgs, err := tr.Subscriber.Subscribe(ctx, "mediabridge.events")
	require.NoError(t, err)

	require.NoError(t, tr.Publisher.Publish("mediabridge.events", message.NewMessage("1", []byte(`{"a":1}`))))

	select {
	case msg := <-msgs:
		assert.Equal(t, `{"a":1}`, string(msg.Payload))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for mirrored message")
	}
}

func TestBuildUsesFactory(t *testing.T) {
	originalFactory := Factory
	defer func() { Factory = originalFactory }()

	pub := &transporttest.Publisher{}
	sub := transporttest.Subscriber{}
	Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
		assert.Equal(t, int64(OutputBuffer), cfg.OutputChannelBuffer)
		return pub, sub
	}

	tr, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Same(t, pub, tr.Publisher)
}
