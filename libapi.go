package mediabridge

import (
	runtimepkg "github.com/drblury/mediabridge/internal/runtime"
	"github.com/drblury/mediabridge/internal/runtime/apply"
	"github.com/drblury/mediabridge/internal/runtime/bus"
	ce "github.com/drblury/mediabridge/internal/runtime/cloudevents"
	configpkg "github.com/drblury/mediabridge/internal/runtime/config"
	"github.com/drblury/mediabridge/internal/runtime/dispatch"
	"github.com/drblury/mediabridge/internal/runtime/endpoint"
	"github.com/drblury/mediabridge/internal/runtime/envelope"
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
	idspkg "github.com/drblury/mediabridge/internal/runtime/ids"
	jsoncodec "github.com/drblury/mediabridge/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/mediabridge/internal/runtime/logging"
	metadatapkg "github.com/drblury/mediabridge/internal/runtime/metadata"
	"github.com/drblury/mediabridge/internal/runtime/router"
	transportpkg "github.com/drblury/mediabridge/transport"
)

type (
	Bridge        = runtimepkg.Bridge
	Dependencies  = runtimepkg.Dependencies
	MediaPlayer   = runtimepkg.MediaPlayer
	MediaRecorder = runtimepkg.MediaRecorder
	Listeners     = runtimepkg.Listeners
	EventListener = runtimepkg.EventListener
	Subscription  = bus.Subscription

	Config        = configpkg.Config
	LoggingConfig = configpkg.LoggingConfig
	MetricsConfig = configpkg.MetricsConfig
	MirrorConfig  = configpkg.MirrorConfig

	Payload     = envelope.Payload
	Result      = dispatch.Result
	CallOption  = dispatch.CallOption
	BufferRule  = envelope.Rule
	BufferRules = envelope.Rules

	Event        = router.Event
	Family       = router.Family
	FamilyKind   = router.Kind
	FamilyStats  = router.FamilyStats
	ApplyFunc    = apply.Func
	Receiver     = apply.Receiver
	BridgeStatus = runtimepkg.BridgeStatus

	Endpoint       = endpoint.Endpoint
	EventFunc      = endpoint.EventFunc
	MemoryEndpoint = endpoint.Memory
	NativeEndpoint = endpoint.Native

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLogger               = loggingpkg.EntryLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	ConfigValidationError = errspkg.ConfigValidationError

	// Dispatch hooks
	DispatchHooks = runtimepkg.DispatchHooks
	EventContext  = runtimepkg.EventContext

	// Metrics
	BridgeMetrics         = runtimepkg.BridgeMetrics
	BridgeMetricsSnapshot = runtimepkg.BridgeMetricsSnapshot
	CallStats             = runtimepkg.CallStats
	EventStats            = runtimepkg.EventStats

	// Event mirror
	EventMirror   = runtimepkg.EventMirror
	MirrorOptions = runtimepkg.MirrorOptions
	CloudEvent    = ce.Event
	Metadata      = metadatapkg.Metadata
	Headers       = metadatapkg.Headers

	TransportBuilder      = transportpkg.Builder
	TransportConfig       = transportpkg.Config
	TransportRegistry     = transportpkg.Registry
	TransportCapabilities = transportpkg.Capabilities
	Transport             = transportpkg.Transport
)

var (
	NewBridge     = runtimepkg.NewBridge
	MustNewBridge = runtimepkg.MustNewBridge

	DefaultConfig  = configpkg.Default
	LoadConfig     = configpkg.Load
	ResolveConfig  = configpkg.Resolve
	ValidateConfig = configpkg.ValidateConfig

	NewMemoryEndpoint  = endpoint.NewMemory
	OpenNativeEndpoint = endpoint.OpenNative
	LibraryCandidates  = endpoint.LibraryCandidates

	DefaultBufferRules = envelope.DefaultRules
	BufferField        = envelope.Field
	BufferPlaceholder  = envelope.Placeholder
	ParsePayload       = envelope.Parse

	WithInstance = dispatch.WithInstance

	DefaultApply = apply.Default
	ApplyMethod  = apply.Method
	MethodName   = apply.MethodName

	LoggingHooks  = runtimepkg.LoggingHooks
	MetricsHooks  = runtimepkg.MetricsHooks
	AlertingHooks = runtimepkg.AlertingHooks

	NewBridgeMetrics = runtimepkg.NewBridgeMetrics

	NewEventMirror              = runtimepkg.NewEventMirror
	NewEventMirrorWithPublisher = runtimepkg.NewEventMirrorWithPublisher
	DecodeMirroredEvent         = runtimepkg.DecodeMirroredEvent

	// CloudEvents extension helpers
	GetFamily        = ce.GetFamily
	GetRawName       = ce.GetRawName
	GetBuffers       = ce.GetBuffers
	GetInstance      = ce.GetInstance
	GetTraceID       = ce.GetTraceID
	SetTraceID       = ce.SetTraceID
	GetCorrelationID = ce.GetCorrelationID
	SetCorrelationID = ce.SetCorrelationID

	// Import "github.com/drblury/mediabridge/transport/transports" to
	// register every built-in transport, or individual transport packages.
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	NewTransportRegistry     = transportpkg.NewRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrBridgeReleased        = errspkg.ErrBridgeReleased
	ErrEndpointRequired      = errspkg.ErrEndpointRequired
	ErrConfigRequired        = errspkg.ErrConfigRequired
	ErrLoggerRequired        = errspkg.ErrLoggerRequired
	ErrObserverRequired      = errspkg.ErrObserverRequired
	ErrObserverNotComparable = errspkg.ErrObserverNotComparable
	ErrPlayerCreateFailed    = errspkg.ErrPlayerCreateFailed
	ErrRecorderCreateFailed  = errspkg.ErrRecorderCreateFailed
	ErrInstanceDestroyed     = errspkg.ErrInstanceDestroyed
	ErrNativeUnsupported     = errspkg.ErrNativeUnsupported
	ErrLibraryNotFound       = errspkg.ErrLibraryNotFound

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewZapServiceLogger  = loggingpkg.NewZapServiceLogger
	NewLoggerFromConfig  = loggingpkg.NewFromConfig
	NewNopLogger         = loggingpkg.NewNop

	CreateULID = idspkg.CreateULID
)

// Event family names.
const (
	FamilyRtcEngineEventHandler          = runtimepkg.FamilyRtcEngineEventHandler
	FamilyDirectCdnStreamingEventHandler = runtimepkg.FamilyDirectCdnStreamingEventHandler
	FamilyMetadataObserver               = runtimepkg.FamilyMetadataObserver
	FamilyAudioEncodedFrameObserver      = runtimepkg.FamilyAudioEncodedFrameObserver
	FamilyAudioSpectrumObserver          = runtimepkg.FamilyAudioSpectrumObserver
	FamilyAudioFrameObserver             = runtimepkg.FamilyAudioFrameObserver
	FamilyVideoFrameObserver             = runtimepkg.FamilyVideoFrameObserver
	FamilyVideoEncodedFrameObserver      = runtimepkg.FamilyVideoEncodedFrameObserver
	FamilyMediaPlayerSourceObserver      = runtimepkg.FamilyMediaPlayerSourceObserver
	FamilyMediaPlayerAudioFrameObserver  = runtimepkg.FamilyMediaPlayerAudioFrameObserver
	FamilyMediaPlayerVideoFrameObserver  = runtimepkg.FamilyMediaPlayerVideoFrameObserver
	FamilyMediaRecorderObserver          = runtimepkg.FamilyMediaRecorderObserver
)

// Boundary method names used by the bridge itself.
const (
	MethodInitialize           = dispatch.MethodInitialize
	MethodRelease              = dispatch.MethodRelease
	MethodCreateMediaPlayer    = runtimepkg.MethodCreateMediaPlayer
	MethodDestroyMediaPlayer   = runtimepkg.MethodDestroyMediaPlayer
	MethodCreateMediaRecorder  = runtimepkg.MethodCreateMediaRecorder
	MethodDestroyMediaRecorder = runtimepkg.MethodDestroyMediaRecorder
)

// Family kinds.
const (
	KindEngine        = router.KindEngine
	KindMediaEngine   = router.KindMediaEngine
	KindMediaPlayer   = router.KindMediaPlayer
	KindMediaRecorder = router.KindMediaRecorder
)

// Call outcomes reported to metrics.
const (
	OutcomeOK          = dispatch.OutcomeOK
	OutcomeNegative    = dispatch.OutcomeNegative
	OutcomeSynthesized = dispatch.OutcomeSynthesized
	OutcomeFailed      = dispatch.OutcomeFailed
	OutcomeReleased    = dispatch.OutcomeReleased
)

// Mirror codecs and message headers.
const (
	MirrorCodecJSON  = runtimepkg.MirrorCodecJSON
	MirrorCodecProto = runtimepkg.MirrorCodecProto

	MetadataContentType = runtimepkg.MetadataContentType
	MetadataEventType   = runtimepkg.MetadataEventType
	MetadataEventID     = runtimepkg.MetadataEventID
	MetadataFamily      = runtimepkg.MetadataFamily
	MetadataEventName   = runtimepkg.MetadataEventName
	MetadataInstance    = runtimepkg.MetadataInstance
)

// CloudEvents extension keys set on mirrored events.
const (
	// ExtFamily is the family the event was routed through.
	ExtFamily = ce.ExtFamily

	// ExtKind is the family kind: engine, media_engine, media_player or
	// media_recorder.
	ExtKind = ce.ExtKind

	// ExtRawName is the event name as it crossed the boundary.
	ExtRawName = ce.ExtRawName

	// ExtBuffers is the number of raw buffers that came with the event.
	ExtBuffers = ce.ExtBuffers

	// ExtInstance is the player id or recorder handle.
	ExtInstance = ce.ExtInstance

	ExtTraceID       = ce.ExtTraceID
	ExtCorrelationID = ce.ExtCorrelationID
)

// DefaultEventChannel is the channel the native side delivers events on.
const DefaultEventChannel = configpkg.DefaultEventChannel

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}

// ApplyFor adapts a typed observer callback into an ApplyFunc for
// Dependencies.ExtraApply. Targets of other types are skipped.
func ApplyFor[T any](fn func(target T, event string, payload Payload)) ApplyFunc {
	return apply.For(fn)
}
