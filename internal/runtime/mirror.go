package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	ce "github.com/drblury/mediabridge/internal/runtime/cloudevents"
	configpkg "github.com/drblury/mediabridge/internal/runtime/config"
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
	idspkg "github.com/drblury/mediabridge/internal/runtime/ids"
	"github.com/drblury/mediabridge/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/mediabridge/internal/runtime/logging"
	metadatapkg "github.com/drblury/mediabridge/internal/runtime/metadata"
	"github.com/drblury/mediabridge/internal/runtime/router"
	transportpkg "github.com/drblury/mediabridge/transport"
)

// Mirror codecs.
const (
	MirrorCodecJSON  = "json"
	MirrorCodecProto = "proto"
)

// Content types of mirrored message bodies.
const (
	ContentTypeCloudEventsJSON = "application/cloudevents+json"
	ContentTypeProtobuf        = "application/protobuf"
)

// Metadata keys set on every mirrored message.
const (
	MetadataContentType = metadatapkg.KeyContentType
	MetadataEventType   = metadatapkg.KeyEventType
	MetadataEventID     = metadatapkg.KeyEventID
	MetadataFamily      = metadatapkg.KeyFamily
	MetadataEventName   = metadatapkg.KeyEventName
	MetadataInstance    = metadatapkg.KeyInstance
)

// EventTypePrefix prefixes the CloudEvents type of mirrored events.
const EventTypePrefix = "mediabridge."

// DefaultMirrorQueueSize is used when MirrorOptions.QueueSize is zero.
const DefaultMirrorQueueSize = 256

// MirrorOptions configures an EventMirror.
type MirrorOptions struct {
	Topic string
	Codec string
	// Source is the CloudEvents source; defaults to "mediabridge".
	Source string
	// Capabilities bound the size of published bodies.
	Capabilities transportpkg.Capabilities
	// QueueSize bounds the events encoded by the router and not yet
	// handed to the publisher.
	QueueSize int
}

// EventMirror republishes routed events as CloudEvents on a Watermill
// publisher. Routed events are encoded on the router goroutine and published
// from a single background goroutine, so a slow transport never holds up
// dispatch. Publishing failures are logged and never reach the router.
type EventMirror struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	closer     func() error
	opts       MirrorOptions
	logger     loggingpkg.ServiceLogger
	session    string

	queue chan *message.Message
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewEventMirror builds the transport named by cfg.PubSubSystem from reg
// (the default registry when nil) and wraps it in a mirror.
func NewEventMirror(ctx context.Context, cfg *configpkg.MirrorConfig, reg *transportpkg.Registry, log loggingpkg.ServiceLogger) (*EventMirror, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		log = loggingpkg.NewNop()
	}
	if reg == nil {
		reg = transportpkg.DefaultRegistry
	}

	tr, err := reg.Build(ctx, cfg, loggingpkg.NewWatermillAdapter(log))
	if err != nil {
		return nil, fmt.Errorf("build mirror transport: %w", err)
	}

	m, err := NewEventMirrorWithPublisher(tr.Publisher, MirrorOptions{
		Topic:        cfg.Topic,
		Codec:        cfg.Codec,
		Capabilities: reg.GetCapabilities(cfg.PubSubSystem),
		QueueSize:    cfg.QueueSize,
	}, log)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	m.subscriber = tr.Subscriber
	m.closer = tr.Close
	return m, nil
}

// NewEventMirrorWithPublisher wraps an existing publisher.
func NewEventMirrorWithPublisher(pub message.Publisher, opts MirrorOptions, log loggingpkg.ServiceLogger) (*EventMirror, error) {
	if pub == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if opts.Topic == "" {
		return nil, errspkg.ErrTopicRequired
	}
	switch strings.ToLower(opts.Codec) {
	case "", MirrorCodecJSON:
		opts.Codec = MirrorCodecJSON
	case MirrorCodecProto:
		opts.Codec = MirrorCodecProto
	default:
		return nil, fmt.Errorf("unknown mirror codec %q", opts.Codec)
	}
	if opts.Source == "" {
		opts.Source = "mediabridge"
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultMirrorQueueSize
	}
	if log == nil {
		log = loggingpkg.NewNop()
	}
	m := &EventMirror{
		publisher: pub,
		closer:    pub.Close,
		opts:      opts,
		logger:    log,
		session:   idspkg.CreateULID(),
		queue:     make(chan *message.Message, opts.QueueSize),
		done:      make(chan struct{}),
	}
	go m.run()
	return m, nil
}

// Topic returns the topic events are published to.
func (m *EventMirror) Topic() string {
	return m.opts.Topic
}

// Subscribe reads mirrored events back when the transport supports it.
func (m *EventMirror) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if m.subscriber == nil {
		return nil, fmt.Errorf("mirror transport %q cannot be subscribed to", m.opts.Capabilities.Name)
	}
	return m.subscriber.Subscribe(ctx, m.opts.Topic)
}

// CloudEvent converts a routed event into its mirrored CloudEvent.
func (m *EventMirror) CloudEvent(evt router.Event) ce.Event {
	out := ce.New(EventTypePrefix+evt.Name, m.opts.Source, map[string]any(evt.Payload))
	if evt.Family != nil {
		out = out.WithSubject(evt.Family.Name).
			WithExtension(ce.ExtFamily, evt.Family.Name).
			WithExtension(ce.ExtKind, evt.Family.Kind.String())
	}
	out = out.WithExtension(ce.ExtRawName, evt.RawName).
		WithExtension(ce.ExtBuffers, int64(len(evt.Buffers)))
	if instance := instanceOf(evt); instance != "" {
		out = out.WithExtension(ce.ExtInstance, instance)
	}
	ce.SetCorrelationID(&out, m.session)
	return out
}

// Publish mirrors evt synchronously. Events whose body exceeds the
// transport's size limit are dropped.
func (m *EventMirror) Publish(evt router.Event) error {
	msg, err := m.prepare(evt)
	if err != nil || msg == nil {
		return err
	}
	return m.publisher.Publish(m.opts.Topic, msg)
}

// prepare encodes evt, returning nil when it is too large to publish.
func (m *EventMirror) prepare(evt router.Event) (*message.Message, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, errspkg.ErrBridgeReleased
	}

	cloud := m.CloudEvent(evt)
	body, contentType, err := m.encode(cloud)
	if err != nil {
		return nil, fmt.Errorf("encode mirrored event %s: %w", evt.Name, err)
	}
	if !m.opts.Capabilities.Accepts(len(body)) {
		m.logger.Warn("mirrored event exceeds transport size limit", loggingpkg.LogFields{
			"event":     evt.Name,
			"size":      len(body),
			"limit":     m.opts.Capabilities.MaxMessageSize,
			"transport": m.opts.Capabilities.Name,
		})
		return nil, nil
	}

	headers := metadatapkg.Headers{
		ContentType: contentType,
		EventType:   cloud.Type,
		EventID:     cloud.ID,
		EventName:   evt.Name,
		Instance:    instanceOf(evt),
	}
	if evt.Family != nil {
		headers.Family = evt.Family.Name
	}

	msg := message.NewMessage(cloud.ID, body)
	msg.Metadata = metadatapkg.ToWatermill(metadatapkg.FromHeaders(headers))
	return msg, nil
}

// tap encodes evt on the router goroutine, where its payload is stable, and
// queues it for run. A full queue drops the event.
func (m *EventMirror) tap(evt router.Event) {
	msg, err := m.prepare(evt)
	if err != nil {
		m.logger.Warn("event mirror publish failed", loggingpkg.LogFields{
			"event": evt.Name,
			"error": err.Error(),
		})
		return
	}
	if msg == nil {
		return
	}

	select {
	case m.queue <- msg:
	default:
		m.logger.Warn("event mirror queue is full, dropping event", loggingpkg.LogFields{
			"event":      evt.Name,
			"queue_size": m.opts.QueueSize,
		})
	}
}

func (m *EventMirror) run() {
	for {
		select {
		case <-m.done:
			return
		case msg := <-m.queue:
			if err := m.publisher.Publish(m.opts.Topic, msg); err != nil {
				m.logger.Warn("event mirror publish failed", loggingpkg.LogFields{
					"event": msg.Metadata.Get(MetadataEventName),
					"error": err.Error(),
				})
			}
		}
	}
}

func (m *EventMirror) encode(evt ce.Event) ([]byte, string, error) {
	body, err := jsoncodec.Marshal(evt)
	if err != nil {
		return nil, "", err
	}
	if m.opts.Codec == MirrorCodecJSON {
		return body, ContentTypeCloudEventsJSON, nil
	}

	var fields map[string]any
	if err := jsoncodec.Unmarshal(body, &fields); err != nil {
		return nil, "", err
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, "", err
	}
	body, err = proto.Marshal(st)
	if err != nil {
		return nil, "", err
	}
	return body, ContentTypeProtobuf, nil
}

// Close stops publishing and closes the underlying transport. Queued events
// that were not yet published are discarded. Safe to call more than once.
func (m *EventMirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	if m.closer != nil {
		return m.closer()
	}
	return nil
}

// DecodeMirroredEvent reads a message produced by an EventMirror.
func DecodeMirroredEvent(msg *message.Message) (ce.Event, error) {
	var evt ce.Event
	body := []byte(msg.Payload)
	if metadatapkg.FromWatermill(msg.Metadata).Headers().ContentType == ContentTypeProtobuf {
		var st structpb.Struct
		if err := proto.Unmarshal(body, &st); err != nil {
			return evt, err
		}
		raw, err := jsoncodec.Marshal(st.AsMap())
		if err != nil {
			return evt, err
		}
		body = raw
	}
	err := jsoncodec.Unmarshal(body, &evt)
	return evt, err
}

func instanceOf(evt router.Event) string {
	if evt.Family == nil {
		return ""
	}
	switch evt.Family.Kind {
	case router.KindMediaRecorder:
		if handle, ok := recorderHandle(evt.Payload); ok {
			return handle
		}
	case router.KindMediaPlayer:
		if id, ok := evt.Payload.Int64(fieldPlayerID); ok {
			return strconv.FormatInt(id, 10)
		}
	}
	return ""
}
