package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/mediabridge/internal/runtime/apply"
	"github.com/drblury/mediabridge/internal/runtime/bus"
	configpkg "github.com/drblury/mediabridge/internal/runtime/config"
	"github.com/drblury/mediabridge/internal/runtime/dispatch"
	"github.com/drblury/mediabridge/internal/runtime/endpoint"
	"github.com/drblury/mediabridge/internal/runtime/envelope"
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
	loggingpkg "github.com/drblury/mediabridge/internal/runtime/logging"
	"github.com/drblury/mediabridge/internal/runtime/registry"
	"github.com/drblury/mediabridge/internal/runtime/router"
	transportpkg "github.com/drblury/mediabridge/transport"
)

// Result is the decoded response of a boundary call.
type Result = dispatch.Result

// Payload is the structured half of an event or call envelope.
type Payload = envelope.Payload

// Event is what external listeners receive.
type Event = router.Event

// Dependencies holds the optional collaborators of a Bridge. Endpoint is
// required; leave the rest nil to use defaults.
type Dependencies struct {
	Endpoint endpoint.Endpoint

	// ExtraApply runs after apply.Default for every family.
	ExtraApply []apply.Func
	// Rules replaces the default call buffer layout.
	Rules envelope.Rules
	// Hooks observe event routing in addition to the metrics hooks.
	Hooks DispatchHooks
	// Tracer overrides the global OpenTelemetry tracer for call spans.
	Tracer trace.Tracer

	// Registerer receives the bridge metrics when Config.Metrics is enabled.
	Registerer prometheus.Registerer
	// Transports resolves Config.Mirror.PubSubSystem; defaults to
	// transport.DefaultRegistry.
	Transports *transportpkg.Registry
	// Mirror replaces the mirror built from Config.Mirror.
	Mirror *EventMirror
}

// Bridge owns everything that crosses the boundary: the dispatcher, the
// event router, every observer registry, live media players and recorders,
// and the listener bus.
type Bridge struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	endpoint   endpoint.Endpoint
	dispatcher *dispatch.Dispatcher
	router     *router.Router
	metrics    *BridgeMetrics
	mirror     *EventMirror
	extraApply []apply.Func

	engine    engineRegistries
	instances instanceRegistries

	mu        sync.Mutex
	players   map[int64]*MediaPlayer
	recorders map[string]*MediaRecorder
	released  bool

	listenMu sync.Mutex
	book     map[string]map[string][]bus.Subscription
	autos    []autoObserver

	*Listeners
}

// NewBridge wires a Bridge and binds it to the endpoint's event channel.
func NewBridge(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps Dependencies) (*Bridge, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if deps.Endpoint == nil {
		return nil, errspkg.ErrEndpointRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	log.Info("Creating media bridge", loggingpkg.LogFields{
		"event_channel": conf.EventChannel,
		"debug":         conf.Debug,
		"config":        conf,
	})

	b := &Bridge{
		Conf:       conf,
		Logger:     log,
		endpoint:   deps.Endpoint,
		extraApply: deps.ExtraApply,
		engine:     newEngineRegistries(),
		instances:  newInstanceRegistries(),
		players:    make(map[int64]*MediaPlayer),
		recorders:  make(map[string]*MediaRecorder),
		book:       make(map[string]map[string][]bus.Subscription),
	}

	if conf.Metrics.Enabled {
		b.metrics = NewBridgeMetrics(conf.Metrics.Namespace, deps.Registerer)
		if err := b.metrics.Register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(log.With(loggingpkg.LogFields{"component": "dispatch"})),
		dispatch.WithDebug(conf.Debug),
		dispatch.WithRules(deps.Rules),
		dispatch.WithTracer(deps.Tracer),
	}
	if b.metrics != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithRecorder(b.metrics))
	}
	dispatcher, err := dispatch.New(deps.Endpoint, dispatchOpts...)
	if err != nil {
		return nil, err
	}
	b.dispatcher = dispatcher

	b.mirror = deps.Mirror
	if b.mirror == nil && conf.Mirror.Enabled {
		b.mirror, err = NewEventMirror(context.Background(), &conf.Mirror, deps.Transports, log.With(loggingpkg.LogFields{"component": "mirror"}))
		if err != nil {
			return nil, err
		}
	}

	routerOpts := []router.Option{
		router.WithLogger(log.With(loggingpkg.LogFields{"component": "router"})),
		router.WithHooks(MetricsHooks(b.metrics)),
		router.WithHooks(deps.Hooks),
	}
	if b.mirror != nil {
		routerOpts = append(routerOpts, router.WithTap(b.mirror.tap))
	}
	b.router = router.New(routerOpts...)
	for _, f := range b.families() {
		if err := b.router.Register(f); err != nil {
			return nil, fmt.Errorf("register family %s: %w", f.Name, err)
		}
	}

	b.Listeners = b.engineListeners()

	if err := deps.Endpoint.OnEvent(conf.EventChannel, b.HandleEvent); err != nil {
		return nil, fmt.Errorf("bind event channel %q: %w", conf.EventChannel, err)
	}
	return b, nil
}

// MustNewBridge is NewBridge that panics on error.
func MustNewBridge(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps Dependencies) *Bridge {
	b, err := NewBridge(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return b
}

// Router exposes the event router, mainly for inspection.
func (b *Bridge) Router() *router.Router {
	return b.router
}

// Metrics returns the bridge metrics, or nil when disabled.
func (b *Bridge) Metrics() *BridgeMetrics {
	return b.metrics
}

// Mirror returns the event mirror, or nil when disabled.
func (b *Bridge) Mirror() *EventMirror {
	return b.mirror
}

// Released reports whether Release ran.
func (b *Bridge) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Call forwards method to the engine.
func (b *Bridge) Call(ctx context.Context, method string, args Payload, opts ...dispatch.CallOption) Result {
	return b.dispatcher.Call(ctx, method, args, opts...)
}

// Initialize sets up the boundary environment and initializes the engine
// with the given context object.
func (b *Bridge) Initialize(ctx context.Context, engineContext Payload) Result {
	if b.Released() {
		b.Logger.Warn("Initialize called on a released bridge", nil)
		return Result{}
	}
	return b.Call(ctx, dispatch.MethodInitialize, Payload{"context": map[string]any(engineContext)})
}

// HandleEvent is the endpoint callback for inbound events.
func (b *Bridge) HandleEvent(name, payload string, buffers [][]byte) {
	b.router.Handle(name, payload, buffers)
}

// Release releases the engine, clears every observer registry, every
// listener and all players and recorders, and closes the mirror. Calling it
// again does nothing.
func (b *Bridge) Release(ctx context.Context) {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	b.players = make(map[int64]*MediaPlayer)
	b.recorders = make(map[string]*MediaRecorder)
	b.mu.Unlock()

	b.Call(ctx, dispatch.MethodRelease, Payload{"sync": true})

	b.engine.release()
	b.instances.release()
	b.forgetDefaults("")
	b.clearListeners()

	if b.mirror != nil {
		if err := b.mirror.Close(); err != nil {
			b.Logger.Warn("Closing event mirror failed", loggingpkg.LogFields{"error": err.Error()})
		}
	}
	b.Logger.Info("Media bridge released", nil)
}

func (b *Bridge) usable() error {
	if b.Released() {
		return errspkg.ErrBridgeReleased
	}
	return nil
}

func (b *Bridge) checkUsable(obs any) error {
	if err := checkObserver(obs); err != nil {
		return err
	}
	return b.usable()
}

// checkObserver refuses observers the registries could not find again on
// unregister.
func checkObserver(obs any) error {
	if obs == nil {
		return errspkg.ErrObserverRequired
	}
	if !registry.Comparable(obs) {
		return errspkg.ErrObserverNotComparable
	}
	return nil
}

// registerFirst adds obs to list and issues method when it is the first
// observer of the list.
func (b *Bridge) registerFirst(ctx context.Context, list *registry.List, obs any, method string, args Payload, opts ...dispatch.CallOption) error {
	if err := b.checkUsable(obs); err != nil {
		return err
	}
	if list.Add(obs) && list.Len() == 1 {
		b.Call(ctx, method, args, opts...)
	}
	return nil
}

// unregisterLast removes obs from list and issues method when the list
// became empty.
func (b *Bridge) unregisterLast(ctx context.Context, list *registry.List, obs any, method string, args Payload, opts ...dispatch.CallOption) error {
	if err := checkObserver(obs); err != nil {
		return err
	}
	if list.Remove(obs) > 0 && list.Len() == 0 {
		b.Call(ctx, method, args, opts...)
	}
	return nil
}

func (b *Bridge) registerFirstKeyed(ctx context.Context, reg *registry.Keyed[int64], key int64, obs any, method string, args Payload, opts ...dispatch.CallOption) error {
	if err := b.checkUsable(obs); err != nil {
		return err
	}
	if reg.Add(key, obs) && reg.Len(key) == 1 {
		b.Call(ctx, method, args, opts...)
	}
	return nil
}

func (b *Bridge) unregisterLastKeyed(ctx context.Context, reg *registry.Keyed[int64], key int64, obs any, method string, args Payload, opts ...dispatch.CallOption) error {
	if err := checkObserver(obs); err != nil {
		return err
	}
	if reg.Remove(key, obs) > 0 && reg.Len(key) == 0 {
		b.Call(ctx, method, args, opts...)
	}
	return nil
}
