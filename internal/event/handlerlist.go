package event

import (
	"cmp"
	"reflect"
	"slices"
	"sync"
)

// RegisteredListener is one handler registration on a HandlerList.
type RegisteredListener struct {
	// Handler receives the events.
	Handler Handler

	// Priority orders handlers; lower values run first.
	Priority Priority

	// IgnoreCancelled skips the handler for cancelled events.
	IgnoreCancelled bool

	// Owner names who registered the handler, e.g. a script name.
	Owner string

	seq uint64
}

// HandlerList is the dispatch endpoint declared by an event type. Every
// event whose nearest declaring ancestor owns this list is delivered to all
// of its handlers.
// It is thread-safe for concurrent access.
type HandlerList struct {
	mu       sync.RWMutex
	owner    *Type
	handlers []RegisteredListener
	seq      uint64
}

func newHandlerList(owner *Type) *HandlerList {
	return &HandlerList{owner: owner}
}

// Owner returns the type that declares the list.
func (h *HandlerList) Owner() *Type {
	return h.owner
}

// Register adds a handler. Handlers are kept in priority order; handlers of
// equal priority keep their registration order.
func (h *HandlerList) Register(rl RegisteredListener) error {
	if rl.Handler == nil {
		return ErrNilHandler
	}
	if !rl.Priority.Valid() {
		return ErrInvalidPriority
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	rl.seq = h.seq

	idx, _ := slices.BinarySearchFunc(h.handlers, rl, compareRegistered)
	h.handlers = slices.Insert(h.handlers, idx, rl)
	return nil
}

// Unregister removes every registration of handler. Handlers whose dynamic
// type is not comparable can only be removed through UnregisterOwner.
func (h *HandlerList) Unregister(handler Handler) bool {
	if handler == nil || !isComparable(handler) {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	before := len(h.handlers)
	h.handlers = slices.DeleteFunc(h.handlers, func(rl RegisteredListener) bool {
		return isComparable(rl.Handler) && rl.Handler == handler
	})
	return len(h.handlers) != before
}

// UnregisterOwner removes every handler registered by owner and returns how
// many were removed.
func (h *HandlerList) UnregisterOwner(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	before := len(h.handlers)
	h.handlers = slices.DeleteFunc(h.handlers, func(rl RegisteredListener) bool {
		return rl.Owner == owner
	})
	return before - len(h.handlers)
}

// Contains reports whether handler is registered.
func (h *HandlerList) Contains(handler Handler) bool {
	if handler == nil || !isComparable(handler) {
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, rl := range h.handlers {
		if isComparable(rl.Handler) && rl.Handler == handler {
			return true
		}
	}
	return false
}

// Snapshot returns the registrations in execution order.
// Returns a copy so handlers may register and unregister during delivery.
func (h *HandlerList) Snapshot() []RegisteredListener {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.handlers) == 0 {
		return nil
	}
	return slices.Clone(h.handlers)
}

// Len returns the number of registrations.
func (h *HandlerList) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

func compareRegistered(a, b RegisteredListener) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

func isComparable(h Handler) bool {
	return reflect.TypeOf(h).Comparable()
}
