package runtime

import (
	"context"

	"github.com/drblury/mediabridge/internal/runtime/bus"
	loggingpkg "github.com/drblury/mediabridge/internal/runtime/logging"
	"github.com/drblury/mediabridge/internal/runtime/router"
)

const scopeEngine = "engine"

// EventListener receives events published after observers ran. Listeners
// run while the event is being routed, so a listener must not block on a
// call that makes the engine deliver another event synchronously; routing
// is not reentrant and such a call deadlocks. Issue it from another
// goroutine instead.
type EventListener func(Event)

// Listeners is the listener facade of the engine, a media player or a media
// recorder. Each scope only sees the events of its own instance.
type Listeners struct {
	b      *Bridge
	scope  string
	global bool
	accept func(Event) bool
	usable func() error

	// categories returns the observer registrations event depends on.
	categories func(event string) []category
}

// category is an observer registration that listening depends on. Strict
// categories refuse listeners until the application registered an observer;
// permissive ones register a no-op observer on demand and drop it again once
// the scope stops listening to the family.
type category struct {
	family     string
	strict     bool
	hint       string
	registered func() bool
	register   func(ctx context.Context, obs any) error
	unregister func(ctx context.Context, obs any) error
}

// defaultObserver is registered for permissive categories. It has no methods,
// so applying an event to it does nothing.
type defaultObserver struct {
	family string
}

// autoObserver is a defaultObserver installed on behalf of a scope's
// listeners.
type autoObserver struct {
	scope      string
	family     string
	obs        *defaultObserver
	unregister func(ctx context.Context, obs any) error
	categories func(event string) []category
}

func (b *Bridge) engineListeners() *Listeners {
	return &Listeners{
		b:          b,
		scope:      scopeEngine,
		global:     true,
		accept:     acceptEngine,
		usable:     b.usable,
		categories: b.engineCategories,
	}
}

func acceptEngine(evt Event) bool {
	if evt.Family == nil {
		return false
	}
	switch evt.Family.Kind {
	case router.KindEngine, router.KindMediaEngine:
	default:
		return false
	}
	if evt.Family.Name == FamilyAudioSpectrumObserver {
		id, ok := evt.Payload.Int64(fieldPlayerID)
		return ok && id == 0
	}
	return true
}

func (b *Bridge) engineCategories(event string) []category {
	families := familiesOf(event,
		FamilyRtcEngineEventHandler,
		FamilyDirectCdnStreamingEventHandler,
		FamilyMetadataObserver,
		FamilyAudioEncodedFrameObserver,
		FamilyAudioSpectrumObserver,
		FamilyAudioFrameObserver,
		FamilyVideoFrameObserver,
		FamilyVideoEncodedFrameObserver,
	)
	out := make([]category, 0, len(families))
	for _, family := range families {
		out = append(out, b.engineCategory(family))
	}
	return out
}

func (b *Bridge) engineCategory(family string) category {
	permissive := func(register, unregister func(context.Context, any) error, count func() int) category {
		return category{
			family:     family,
			registered: func() bool { return count() > 0 },
			register:   register,
			unregister: unregister,
		}
	}
	strict := func(hint string, count func() int) category {
		return category{
			family:     family,
			strict:     true,
			hint:       hint,
			registered: func() bool { return count() > 0 },
		}
	}

	e := b.engine
	switch family {
	case FamilyRtcEngineEventHandler:
		return permissive(b.RegisterEventHandler, b.UnregisterEventHandler, e.eventHandlers.Len)
	case FamilyAudioFrameObserver:
		return permissive(b.RegisterAudioFrameObserver, b.UnregisterAudioFrameObserver, e.audioFrame.Len)
	case FamilyVideoFrameObserver:
		return permissive(b.RegisterVideoFrameObserver, b.UnregisterVideoFrameObserver, e.videoFrame.Len)
	case FamilyAudioEncodedFrameObserver:
		return strict("RegisterAudioEncodedFrameObserver", e.audioEncoded.Len)
	case FamilyVideoEncodedFrameObserver:
		return strict("RegisterVideoEncodedFrameObserver", e.videoEncoded.Len)
	case FamilyMetadataObserver:
		return strict("RegisterMediaMetadataObserver", e.metadata.Len)
	case FamilyAudioSpectrumObserver:
		return strict("RegisterAudioSpectrumObserver", e.spectrum.Len)
	default:
		return strict("StartDirectCdnStreaming", e.cdn.Len)
	}
}

// AddListener subscribes fn to event. It reports false when the listener
// was refused: fn is nil, the owner is gone or event depends on an observer
// that must be registered first.
func (l *Listeners) AddListener(event string, fn EventListener) (bus.Subscription, bool) {
	log := l.b.Logger
	if fn == nil {
		log.Warn("Listener refused: nil callback", loggingpkg.LogFields{"event": event, "scope": l.scope})
		return bus.Subscription{}, false
	}
	if err := l.usable(); err != nil {
		log.Warn("Listener refused", loggingpkg.LogFields{"event": event, "scope": l.scope, "error": err.Error()})
		return bus.Subscription{}, false
	}
	if !l.precheck(event) {
		return bus.Subscription{}, false
	}

	accept := l.accept
	sub := l.b.router.Bus().Subscribe(event, func(evt Event) {
		if accept(evt) {
			fn(evt)
		}
	})
	l.b.track(l.scope, sub)
	return sub, true
}

func (l *Listeners) precheck(event string) bool {
	cats := l.categories(event)
	for _, c := range cats {
		if c.strict && !c.registered() {
			l.b.Logger.Warn("Listener refused: observer not registered", loggingpkg.LogFields{
				"event":  event,
				"scope":  l.scope,
				"family": c.family,
				"hint":   "call " + c.hint + " first",
			})
			return false
		}
	}
	for _, c := range cats {
		if c.strict || c.registered() {
			continue
		}
		obs := &defaultObserver{family: c.family}
		if err := c.register(context.Background(), obs); err != nil {
			l.b.Logger.Warn("Registering default observer failed", loggingpkg.LogFields{
				"event":  event,
				"scope":  l.scope,
				"family": c.family,
				"error":  err.Error(),
			})
			return false
		}
		l.b.listenMu.Lock()
		l.b.autos = append(l.b.autos, autoObserver{
			scope:      l.scope,
			family:     c.family,
			obs:        obs,
			unregister: c.unregister,
			categories: l.categories,
		})
		l.b.listenMu.Unlock()
		l.b.Logger.Debug("Registered default observer", loggingpkg.LogFields{
			"event":  event,
			"scope":  l.scope,
			"family": c.family,
		})
	}
	return true
}

// RemoveListener removes the given subscriptions of event, or every
// subscription of event in this scope when none are given. It returns how
// many were removed.
func (l *Listeners) RemoveListener(event string, subs ...bus.Subscription) int {
	if len(subs) == 0 {
		subs = l.b.tracked(l.scope, event)
	}
	removed := 0
	for _, sub := range subs {
		if sub.Event != event || !l.b.untrack(l.scope, sub) {
			continue
		}
		if l.b.router.Bus().Unsubscribe(sub) {
			removed++
		}
	}
	l.b.syncListenerGauge(event)
	l.b.releaseUnusedDefaults(context.Background())
	return removed
}

// RemoveAllListeners removes the listeners of the given events, or of every
// event when none are given. On the engine facade this reaches every
// listener on the bus; player and recorder facades only remove their own.
func (l *Listeners) RemoveAllListeners(events ...string) int {
	if !l.global {
		removed := 0
		for _, sub := range l.b.trackedScope(l.scope, events...) {
			removed += l.RemoveListener(sub.Event, sub)
		}
		return removed
	}

	removed := 0
	if len(events) == 0 {
		removed = l.b.clearListeners()
	}
	for _, event := range events {
		removed += l.b.router.Bus().UnsubscribeAll(event)
		l.b.untrackEvent(event)
		l.b.syncListenerGauge(event)
	}
	l.b.releaseUnusedDefaults(context.Background())
	return removed
}

// ListenerCount returns the number of listeners this scope holds for event.
func (l *Listeners) ListenerCount(event string) int {
	return len(l.b.tracked(l.scope, event))
}

func (b *Bridge) track(scope string, sub bus.Subscription) {
	b.listenMu.Lock()
	events, ok := b.book[scope]
	if !ok {
		events = make(map[string][]bus.Subscription)
		b.book[scope] = events
	}
	events[sub.Event] = append(events[sub.Event], sub)
	b.listenMu.Unlock()
	b.syncListenerGauge(sub.Event)
}

func (b *Bridge) tracked(scope, event string) []bus.Subscription {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()
	return append([]bus.Subscription(nil), b.book[scope][event]...)
}

// trackedScope returns the subscriptions of scope, limited to events when
// any are given.
func (b *Bridge) trackedScope(scope string, events ...string) []bus.Subscription {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()
	var out []bus.Subscription
	if len(events) == 0 {
		for _, subs := range b.book[scope] {
			out = append(out, subs...)
		}
		return out
	}
	for _, event := range events {
		out = append(out, b.book[scope][event]...)
	}
	return out
}

func (b *Bridge) untrack(scope string, sub bus.Subscription) bool {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()
	events := b.book[scope]
	subs := events[sub.Event]
	for i, s := range subs {
		if s.ID != sub.ID {
			continue
		}
		subs = append(subs[:i:i], subs[i+1:]...)
		if len(subs) == 0 {
			delete(events, sub.Event)
		} else {
			events[sub.Event] = subs
		}
		if len(events) == 0 {
			delete(b.book, scope)
		}
		return true
	}
	return false
}

func (b *Bridge) untrackEvent(event string) {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()
	for scope, events := range b.book {
		delete(events, event)
		if len(events) == 0 {
			delete(b.book, scope)
		}
	}
}

// clearListeners drops every listener of every scope and returns how many
// there were.
func (b *Bridge) clearListeners() int {
	b.listenMu.Lock()
	removed := 0
	for _, events := range b.book {
		for _, subs := range events {
			removed += len(subs)
		}
	}
	b.book = make(map[string]map[string][]bus.Subscription)
	b.listenMu.Unlock()

	b.router.Bus().Clear()
	if b.metrics != nil {
		b.metrics.ResetListeners()
	}
	return removed
}

func (b *Bridge) syncListenerGauge(event string) {
	if b.metrics != nil {
		b.metrics.SetListeners(event, b.router.Bus().ListenerCount(event))
	}
}

// releaseUnusedDefaults unregisters the default observers whose scope no
// longer listens to any event of their family.
func (b *Bridge) releaseUnusedDefaults(ctx context.Context) {
	b.listenMu.Lock()
	var unused []autoObserver
	kept := b.autos[:0]
	for _, a := range b.autos {
		if b.listensToLocked(a) {
			kept = append(kept, a)
		} else {
			unused = append(unused, a)
		}
	}
	for i := len(kept); i < len(b.autos); i++ {
		b.autos[i] = autoObserver{}
	}
	b.autos = kept
	b.listenMu.Unlock()

	for _, a := range unused {
		if err := a.unregister(ctx, a.obs); err != nil {
			b.Logger.Warn("Unregistering default observer failed", loggingpkg.LogFields{
				"scope":  a.scope,
				"family": a.family,
				"error":  err.Error(),
			})
			continue
		}
		b.Logger.Debug("Unregistered default observer", loggingpkg.LogFields{
			"scope":  a.scope,
			"family": a.family,
		})
	}
}

func (b *Bridge) listensToLocked(a autoObserver) bool {
	for event := range b.book[a.scope] {
		for _, c := range a.categories(event) {
			if c.family == a.family {
				return true
			}
		}
	}
	return false
}

// forgetDefaults drops the default observers of scope, or of every scope
// when scope is empty, without telling the engine. Used when the registries
// they live in are discarded anyway.
func (b *Bridge) forgetDefaults(scope string) {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()
	if scope == "" {
		b.autos = nil
		return
	}
	kept := b.autos[:0]
	for _, a := range b.autos {
		if a.scope != scope {
			kept = append(kept, a)
		}
	}
	for i := len(kept); i < len(b.autos); i++ {
		b.autos[i] = autoObserver{}
	}
	b.autos = kept
}
