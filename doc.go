// Package mediabridge connects Go code to a native real-time media engine
// through a single string boundary. Every call crosses as a method name, a
// JSON argument document and an optional list of raw byte buffers; every
// event comes back the same way on a callback channel.
//
// Bridge hosts the call dispatcher and the event router. Calls extract byte
// fields (video planes, audio samples, metadata) out of the JSON and pass
// them positionally as buffers; results are decoded and classified without
// ever failing the caller. Events are matched to one of twelve observer
// families by name prefix, their buffers are spliced back into the payload,
// and the registered observers for that family are invoked by method name
// before external listeners added with AddListener are broadcast to.
//
// A minimal setup loads a Config, opens the native endpoint with
// OpenNativeEndpoint (or uses NewMemoryEndpoint in tests), creates a Bridge
// and registers observers or listeners; see examples/loopback for a copy/paste
// starting point.
//
// # Instances
//
// CreateMediaPlayer and CreateMediaRecorder return scoped handles. Their
// observers are kept in per-instance registries, their calls carry the
// playerId or nativeHandle automatically, and their listener facades only
// see events for that instance.
//
// # Mirror transports
//
// Routed events can be republished as CloudEvents on a Watermill transport
// configured through Config.Mirror:
//   - channel: In-memory Go channels for testing
//   - kafka: High-throughput streaming
//   - rabbitmq: AMQP exchanges
//   - aws: AWS SNS with LocalStack support
//   - sqs: AWS SQS queues
//   - nats: High-performance messaging
//   - http: Webhook-style POST delivery
//   - io: File capture
//
// # Observability
//
// DispatchHooks observe every routed event. LoggingHooks, MetricsHooks and
// AlertingHooks cover the usual needs; Prometheus collectors are enabled via
// Config.Metrics, and Bridge.StatusHandler serves routing counters as JSON.
package mediabridge
