// Package router routes inbound boundary events to observer families and
// republishes them to external listeners.
package router

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/drblury/mediabridge/internal/runtime/apply"
	"github.com/drblury/mediabridge/internal/runtime/bus"
	"github.com/drblury/mediabridge/internal/runtime/envelope"
	errspkg "github.com/drblury/mediabridge/internal/runtime/errors"
	"github.com/drblury/mediabridge/internal/runtime/logging"
)

// ExtendedSuffix marks the per-connection variant of an event. It is
// stripped so both variants reach the same handler.
const ExtendedSuffix = "Ex"

// Router owns the ordered family table and the listener bus.
//
// Handle is serialized: one event is fully processed before the next one
// starts. Observers and listeners must not call Handle themselves.
type Router struct {
	dispatchMu sync.Mutex

	mu       sync.RWMutex
	families []*Family
	overlaps []Overlap
	stats    map[string]*FamilyStats

	unmatched uint64
	bus       *bus.Bus[Event]
	taps      []func(Event)
	logger    logging.ServiceLogger
	hooks     Hooks
	suffix    string
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger.
func WithLogger(log logging.ServiceLogger) Option {
	return func(r *Router) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithHooks adds routing hooks. Repeated options are merged in order.
func WithHooks(h Hooks) Option {
	return func(r *Router) { r.hooks = r.hooks.Merge(h) }
}

// WithTap adds fn to the functions that see every dispatched event after
// its observers ran, whether or not listeners exist.
func WithTap(fn func(Event)) Option {
	return func(r *Router) {
		if fn != nil {
			r.taps = append(r.taps, fn)
		}
	}
}

// WithExtendedSuffix changes the stripped per-connection suffix. An empty
// suffix disables stripping.
func WithExtendedSuffix(suffix string) Option {
	return func(r *Router) { r.suffix = suffix }
}

// New creates a router with an empty family table.
func New(opts ...Option) *Router {
	r := &Router{
		stats:  make(map[string]*FamilyStats),
		logger: logging.NewNop(),
		suffix: ExtendedSuffix,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bus = bus.New[Event](r.listenerPanic)
	return r
}

// Bus returns the listener bus events are republished on.
func (r *Router) Bus() *bus.Bus[Event] {
	return r.bus
}

// Register appends f to the family table. A family whose prefix overlaps
// an earlier one is accepted but never receives the overlapping events;
// the overlap is logged and reported by Overlaps.
func (r *Router) Register(f Family) error {
	if f.Name == "" {
		return errspkg.ErrFamilyNameRequired
	}
	if f.Prefix == "" {
		return errspkg.ErrFamilyPrefixRequired
	}
	if f.Resolve == nil {
		return fmt.Errorf("%w: %s", errspkg.ErrFamilyResolveMissing, f.Name)
	}
	if len(f.Apply) == 0 {
		f.Apply = []apply.Func{apply.Default}
	} else {
		f.Apply = append([]apply.Func(nil), f.Apply...)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.families {
		if existing.Name == f.Name {
			return fmt.Errorf("%w: %s", errspkg.ErrDuplicateFamily, f.Name)
		}
	}
	for _, existing := range r.families {
		if strings.HasPrefix(f.Prefix, existing.Prefix) || strings.HasPrefix(existing.Prefix, f.Prefix) {
			r.overlaps = append(r.overlaps, Overlap{First: existing.Name, Second: f.Name})
			r.logger.Warn("event family prefixes overlap, first registered family wins", logging.LogFields{
				"first":         existing.Name,
				"first_prefix":  existing.Prefix,
				"second":        f.Name,
				"second_prefix": f.Prefix,
			})
		}
	}

	r.families = append(r.families, &f)
	r.stats[f.Name] = &FamilyStats{Name: f.Name, Kind: f.Kind}
	return nil
}

// MustRegister registers every family and panics on the first error.
func (r *Router) MustRegister(families ...Family) {
	for _, f := range families {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
}

// Families returns the registered families in match order.
func (r *Router) Families() []*Family {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Family(nil), r.families...)
}

// Family returns the family registered under name.
func (r *Router) Family(name string) (*Family, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.families {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Overlaps returns every prefix overlap found during registration.
func (r *Router) Overlaps() []Overlap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Overlap(nil), r.overlaps...)
}

// Match finds the first family whose prefix matches rawName and returns it
// with the normalized event name.
func (r *Router) Match(rawName string) (*Family, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.families {
		if strings.HasPrefix(rawName, f.Prefix) {
			return f, r.normalize(strings.TrimPrefix(rawName, f.Prefix)), true
		}
	}
	return nil, "", false
}

func (r *Router) normalize(name string) string {
	if r.suffix != "" && len(name) > len(r.suffix) && strings.HasSuffix(name, r.suffix) {
		return strings.TrimSuffix(name, r.suffix)
	}
	return name
}

// Targets resolves the observers rawName would be delivered to with payload.
// ok is false when no family matches or the family excludes the event.
func (r *Router) Targets(rawName string, payload envelope.Payload) ([]any, bool) {
	f, name, ok := r.Match(rawName)
	if !ok {
		return nil, false
	}
	return f.Resolve(name, payload)
}

// HasListeners reports whether any external listener waits for event.
func (r *Router) HasListeners(event string) bool {
	return r.bus.HasListeners(event)
}

// Handle routes one inbound event. It never panics; failures are logged.
func (r *Router) Handle(rawName, rawPayload string, buffers [][]byte) {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event dispatch failed", fmt.Errorf("panic: %v", rec), logging.LogFields{"event": rawName})
		}
	}()

	family, name, ok := r.Match(rawName)
	if !ok {
		r.mu.Lock()
		r.unmatched++
		r.mu.Unlock()
		return
	}

	payload, parsed := envelope.Parse(rawPayload)
	if !parsed && rawPayload != "" {
		r.logger.Debug("event payload is not a JSON object", logging.LogFields{"event": rawName})
	}

	ectx := EventContext{
		Family:    family.Name,
		Kind:      family.Kind,
		Event:     name,
		RawName:   rawName,
		StartedAt: time.Now(),
	}

	targets, ok := family.Resolve(name, payload)
	if !ok {
		r.count(family.Name, func(s *FamilyStats) { s.Excluded++ })
		if r.hooks.OnEventExcluded != nil {
			r.hooks.OnEventExcluded(ectx)
		}
		return
	}
	ectx.Targets = len(targets)
	if r.hooks.OnEventStart != nil {
		r.hooks.OnEventStart(ectx)
	}

	env := &inbound{preprocess: family.Preprocess}
	if env.prepare(name, payload, buffers) {
		r.count(family.Name, func(s *FamilyStats) { s.Preprocessed++ })
	}

	applied, failed := 0, 0
	for _, target := range targets {
		if target == nil {
			continue
		}
		for _, fn := range family.Apply {
			if err := r.deliver(fn, target, name, payload); err != nil {
				failed++
				r.logger.Error("observer failed", err, logging.LogFields{
					"family": family.Name,
					"event":  name,
				})
				if r.hooks.OnApplyError != nil {
					r.hooks.OnApplyError(ectx, err)
				}
				continue
			}
			applied++
		}
	}

	evt := Event{
		Name:    name,
		RawName: rawName,
		Family:  family,
		Payload: payload,
		Buffers: buffers,
	}
	for _, tap := range r.taps {
		r.tap(tap, evt)
	}

	republished := false
	if r.bus.HasListeners(name) {
		r.bus.Publish(name, evt)
		republished = true
	}

	r.count(family.Name, func(s *FamilyStats) {
		s.Dispatched++
		s.Applied += uint64(applied)
		s.ApplyErrors += uint64(failed)
		if republished {
			s.Republished++
		}
	})

	ectx.Duration = time.Since(ectx.StartedAt)
	if r.hooks.OnEventDone != nil {
		r.hooks.OnEventDone(ectx)
	}
}

func (r *Router) deliver(fn apply.Func, target any, name string, payload envelope.Payload) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("observer panic: %v", rec)
		}
	}()
	return fn(target, name, payload)
}

func (r *Router) tap(fn func(Event), evt Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("event tap failed", fmt.Errorf("panic: %v", rec), logging.LogFields{"event": evt.Name})
		}
	}()
	fn(evt)
}

func (r *Router) listenerPanic(event string, sub bus.Subscription, recovered any) {
	r.logger.Error("listener failed", fmt.Errorf("panic: %v", recovered), logging.LogFields{
		"event":        event,
		"subscription": sub.String(),
	})
}

// inbound guards the one-time preprocessing of a single event.
type inbound struct {
	preprocess Preprocess
}

// prepare runs the preprocess function the first time it is called and
// reports whether it ran.
func (e *inbound) prepare(name string, payload envelope.Payload, buffers [][]byte) bool {
	fn := e.preprocess
	if fn == nil {
		return false
	}
	e.preprocess = nil
	fn(name, payload, buffers)
	return true
}
