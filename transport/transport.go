// Package transport defines the pub/sub backends the event mirror can publish
// to. Each backend lives in its own sub-package and registers a Builder with
// the registry; import transport/transports to get all of them.
package transport

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport is what a Builder produces. Publisher is always set; Subscriber
// is only set by backends that can read their own output back (channel, io).
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes both halves, returning the first error.
func (t Transport) Close() error {
	var first error
	if t.Publisher != nil {
		if err := t.Publisher.Close(); err != nil {
			first = err
		}
	}
	if t.Subscriber != nil && any(t.Subscriber) != any(t.Publisher) {
		if err := t.Subscriber.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Builder creates a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config exposes the settings a backend may need without depending on the
// full configuration package.
type Config interface {
	GetPubSubSystem() string

	GetKafkaBrokers() []string
	GetKafkaClientID() string

	GetRabbitMQURL() string

	GetNATSURL() string

	GetHTTPPublisherURL() string
	GetHTTPTimeout() time.Duration

	GetIOFile() string

	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
}

// CapabilitiesProvider is implemented by transports that can report their capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
