package transport

// Capabilities describes what a backend offers the event mirror.
type Capabilities struct {
	// Name is the registry name of the transport.
	Name string

	// SupportsOrdering indicates messages on one topic arrive in publish order.
	SupportsOrdering bool

	// SupportsTracing indicates the backend propagates metadata headers.
	SupportsTracing bool

	// Durable indicates published messages survive a process restart.
	Durable bool

	// Subscribable indicates the Transport carries a Subscriber.
	Subscribable bool

	// MaxMessageSize is the largest payload in bytes (0 = unlimited/unknown).
	// The mirror drops events whose encoded body exceeds it.
	MaxMessageSize int64
}

// Accepts reports whether a payload of size bytes fits the backend.
func (c Capabilities) Accepts(size int) bool {
	return c.MaxMessageSize <= 0 || int64(size) <= c.MaxMessageSize
}

// Predefined capability sets for the built-in transports.
var (
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		Subscribable:     true,
	}

	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		SupportsOrdering: true,
		SupportsTracing:  true,
		Durable:          true,
		MaxMessageSize:   1048576,
	}

	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		SupportsOrdering: true,
		SupportsTracing:  true,
		Durable:          true,
		MaxMessageSize:   134217728,
	}

	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		MaxMessageSize:  1048576,
	}

	AWSCapabilities = Capabilities{
		Name:            "aws",
		SupportsTracing: true,
		Durable:         true,
		MaxMessageSize:  262144,
	}

	HTTPCapabilities = Capabilities{
		Name:            "http",
		SupportsTracing: true,
	}

	IOCapabilities = Capabilities{
		Name:             "io",
		SupportsOrdering: true,
		Durable:          true,
		Subscribable:     true,
	}
)
