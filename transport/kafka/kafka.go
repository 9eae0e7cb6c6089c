// Package kafka provides the Kafka mirror transport.
package kafka

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	metadatapkg "github.com/drblury/mediabridge/internal/runtime/metadata"
	"github.com/drblury/mediabridge/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "kafka"

// DefaultClientID identifies the bridge to the brokers when none is configured.
const DefaultClientID = "mediabridge"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

func init() {
	Register()
}

// Register adds the transport to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.KafkaCapabilities)
}

// Build creates a Kafka publisher.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()
	if len(brokers) == 0 {
		return transport.Transport{}, errors.New("kafka: brokers are required")
	}

	saramaCfg := kafka.DefaultSaramaSyncPublisherConfig()
	saramaCfg.ClientID = cfg.GetKafkaClientID()
	if saramaCfg.ClientID == "" {
		saramaCfg.ClientID = DefaultClientID
	}

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.NewWithPartitioningMarshaler(PartitionKey),
			OverwriteSaramaConfig: saramaCfg,
		},
		logger,
	)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher}, nil
}

// PartitionKey keeps the events of one media player or recorder, or else of
// one family, on the same partition so they stay ordered.
func PartitionKey(_ string, msg *message.Message) (string, error) {
	h := metadatapkg.FromWatermill(msg.Metadata).Headers()
	if h.Instance != "" {
		return h.Family + "/" + h.Instance, nil
	}
	return h.Family, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.KafkaCapabilities
}
