// Package bus is the synchronous, event-name keyed listener bus used for
// application listeners. Publish runs every listener on the caller's
// goroutine in subscription order.
package bus

import (
	"fmt"
	"sync"
	"time"

	"github.com/drblury/mediabridge/internal/runtime/ids"
)

// Listener receives a published event.
type Listener[E any] func(E)

// Subscription identifies a registered listener.
type Subscription struct {
	ID    string
	Event string
}

// Valid reports whether the handle refers to a subscription.
func (s Subscription) Valid() bool {
	return s.ID != ""
}

// AddedAt returns when the subscription was made.
func (s Subscription) AddedAt() (time.Time, bool) {
	return ids.Timestamp(s.ID)
}

// PanicHandler is told about listeners that panicked during Publish.
type PanicHandler func(event string, sub Subscription, recovered any)

type entry[E any] struct {
	sub Subscription
	fn  Listener[E]
}

// Bus fans events out to listeners.
type Bus[E any] struct {
	mu      sync.RWMutex
	entries map[string][]entry[E]
	onPanic PanicHandler
}

// New returns an empty bus. onPanic may be nil.
func New[E any](onPanic PanicHandler) *Bus[E] {
	return &Bus[E]{entries: make(map[string][]entry[E]), onPanic: onPanic}
}

// Subscribe registers fn for event and returns its handle.
func (b *Bus[E]) Subscribe(event string, fn Listener[E]) Subscription {
	if fn == nil {
		return Subscription{}
	}
	sub := Subscription{ID: ids.CreateULID(), Event: event}
	b.mu.Lock()
	b.entries[event] = append(b.entries[event], entry[E]{sub: sub, fn: fn})
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the listener behind sub and reports whether it existed.
func (b *Bus[E]) Unsubscribe(sub Subscription) bool {
	if !sub.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.entries[sub.Event]
	for i, e := range list {
		if e.sub.ID != sub.ID {
			continue
		}
		next := make([]entry[E], 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.entries, sub.Event)
		} else {
			b.entries[sub.Event] = next
		}
		return true
	}
	return false
}

// UnsubscribeAll drops every listener of event and returns how many there were.
func (b *Bus[E]) UnsubscribeAll(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.entries[event])
	delete(b.entries, event)
	return n
}

// Clear drops every listener of every event.
func (b *Bus[E]) Clear() {
	b.mu.Lock()
	b.entries = make(map[string][]entry[E])
	b.mu.Unlock()
}

// HasListeners reports whether event has at least one listener.
func (b *Bus[E]) HasListeners(event string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries[event]) > 0
}

// ListenerCount returns the number of listeners for event.
func (b *Bus[E]) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries[event])
}

// Subscriptions returns the live handles for event.
func (b *Bus[E]) Subscriptions(event string) []Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	list := b.entries[event]
	out := make([]Subscription, len(list))
	for i, e := range list {
		out[i] = e.sub
	}
	return out
}

// Publish delivers evt to every listener of event and returns how many ran
// without panicking. Listeners added or removed while publishing take effect
// on the next Publish.
func (b *Bus[E]) Publish(event string, evt E) int {
	b.mu.RLock()
	list := b.entries[event]
	b.mu.RUnlock()

	delivered := 0
	for _, e := range list {
		if b.deliver(event, e, evt) {
			delivered++
		}
	}
	return delivered
}

func (b *Bus[E]) deliver(event string, e entry[E], evt E) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if b.onPanic != nil {
				b.onPanic(event, e.sub, r)
			}
		}
	}()
	e.fn(evt)
	return true
}

// String implements fmt.Stringer for diagnostics.
func (s Subscription) String() string {
	return fmt.Sprintf("%s#%s", s.Event, s.ID)
}
