package dispatch

import (
	"reflect"
	"sync"
)

// Listener receives payloads from a Registry.
type Listener[T any] interface {
	OnMessage(v T)
}

// ListenerFunc is a function adapter for Listener.
type ListenerFunc[T any] func(T)

func (f ListenerFunc[T]) OnMessage(v T) {
	f(v)
}

// Handle identifies one registration. It is the only way to remove a listener,
// so function listeners (which are not comparable) can be removed too.
type Handle struct {
	listener any
}

type entry[T any] struct {
	handle   *Handle
	listener Listener[T]
}

// Registry is an ordered, concurrency-safe set of listeners.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries []entry[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Add registers l and returns its handle. Adding a comparable listener that is
// already registered returns the existing handle and changes nothing.
func (r *Registry[T]) Add(l Listener[T]) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isComparable(l) {
		for _, e := range r.entries {
			if isComparable(e.listener) && any(e.listener) == any(l) {
				return e.handle
			}
		}
	}

	h := &Handle{listener: l}
	// Copy on write so Dispatch can iterate a snapshot without holding the lock.
	entries := make([]entry[T], len(r.entries), len(r.entries)+1)
	copy(entries, r.entries)
	r.entries = append(entries, entry[T]{handle: h, listener: l})
	return h
}

// Remove unregisters the listener behind h. Returns false if h is not registered.
func (r *Registry[T]) Remove(h *Handle) bool {
	if h == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.handle != h {
			continue
		}
		entries := make([]entry[T], 0, len(r.entries)-1)
		entries = append(entries, r.entries[:i]...)
		entries = append(entries, r.entries[i+1:]...)
		r.entries = entries
		return true
	}
	return false
}

// Dispatch delivers v to every listener registered when the call starts, in
// registration order. A slow listener delays the ones after it.
func (r *Registry[T]) Dispatch(v T) {
	r.mu.RLock()
	entries := r.entries
	r.mu.RUnlock()

	for _, e := range entries {
		e.listener.OnMessage(v)
	}
}

// Len returns the number of registered listeners.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func isComparable(v any) bool {
	if v == nil {
		return false
	}
	// Value.Comparable looks through interface fields, so a comparable struct
	// holding a func value is reported as not comparable.
	return reflect.ValueOf(v).Comparable()
}
