// Package registry keeps the observers application code registers for each
// callback family, either as a single engine-wide list or keyed by instance
// (media player id, recorder handle).
package registry

import (
	"reflect"
	"sync"
)

// Same reports whether a and b are the same observer. Comparable dynamic
// values (pointers, channels, comparable structs) compare with ==; anything
// else (funcs, maps, slices) is never considered identical.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return equal(a, b)
}

// Comparable reports whether obs can be recognized again by identity. Lists
// refuse observers that cannot, since they could never be removed.
func Comparable(obs any) bool {
	return Same(obs, obs)
}

// equal guards structs whose interface fields hold non-comparable values.
func equal(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// List is an insertion-ordered observer list with identity deduplication.
type List struct {
	mu    sync.RWMutex
	items []any
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// Add appends obs unless an identical observer is already present or obs is
// not Comparable. It reports whether the list grew.
func (l *List) Add(obs any) bool {
	if !Comparable(obs) {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.items {
		if Same(existing, obs) {
			return false
		}
	}
	l.items = append(l.items, obs)
	return true
}

// Remove drops every entry identical to obs and reports how many were removed.
func (l *List) Remove(obs any) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.items[:0]
	removed := 0
	for _, existing := range l.items {
		if Same(existing, obs) {
			removed++
			continue
		}
		kept = append(kept, existing)
	}
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = kept
	return removed
}

// Snapshot returns a copy of the current entries in registration order.
func (l *List) Snapshot() []any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.items) == 0 {
		return nil
	}
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of registered observers.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Clear drops every observer.
func (l *List) Clear() {
	l.mu.Lock()
	l.items = nil
	l.mu.Unlock()
}

// Keyed maps instance keys onto observer lists.
type Keyed[K comparable] struct {
	mu    sync.RWMutex
	lists map[K]*List
}

// NewKeyed returns an empty keyed registry.
func NewKeyed[K comparable]() *Keyed[K] {
	return &Keyed[K]{lists: make(map[K]*List)}
}

// Add registers obs under key and reports whether the key's list grew.
func (k *Keyed[K]) Add(key K, obs any) bool {
	if !Comparable(obs) {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	list, ok := k.lists[key]
	if !ok {
		list = NewList()
		k.lists[key] = list
	}
	return list.Add(obs)
}

// Remove drops obs from key's list; empty lists are discarded.
func (k *Keyed[K]) Remove(key K, obs any) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	list, ok := k.lists[key]
	if !ok {
		return 0
	}
	removed := list.Remove(obs)
	if list.Len() == 0 {
		delete(k.lists, key)
	}
	return removed
}

// Get returns a snapshot of the observers registered under key.
func (k *Keyed[K]) Get(key K) []any {
	k.mu.RLock()
	list, ok := k.lists[key]
	k.mu.RUnlock()
	if !ok {
		return nil
	}
	return list.Snapshot()
}

// Len returns the number of observers registered under key.
func (k *Keyed[K]) Len(key K) int {
	k.mu.RLock()
	list, ok := k.lists[key]
	k.mu.RUnlock()
	if !ok {
		return 0
	}
	return list.Len()
}

// Keys returns the keys that currently hold observers.
func (k *Keyed[K]) Keys() []K {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]K, 0, len(k.lists))
	for key := range k.lists {
		out = append(out, key)
	}
	return out
}

// Clear drops every observer under key.
func (k *Keyed[K]) Clear(key K) {
	k.mu.Lock()
	delete(k.lists, key)
	k.mu.Unlock()
}

// Release drops every key. Calling it on an empty registry is a no-op.
func (k *Keyed[K]) Release() {
	k.mu.Lock()
	k.lists = make(map[K]*List)
	k.mu.Unlock()
}
