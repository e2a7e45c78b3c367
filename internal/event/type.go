package event

import (
	"sync/atomic"
)

var nextOrdinal atomic.Uint64

// Root is the abstract event capability every host event type descends from.
// It never declares a handler list.
var Root = &Type{name: "Event", simple: "Event", abstract: true}

// Type describes an event class: its qualified name, its position in the
// type hierarchy and the handler list it declares, if any.
//
// Types are compared by identity. Two descriptors with the same name are
// different types.
type Type struct {
	name     string
	simple   string
	parent   *Type
	abstract bool
	internal bool
	handlers *HandlerList
	factory  func(t *Type) Event
	ordinal  uint64
}

// TypeOption configures a Type at construction.
type TypeOption func(*Type)

// Abstract marks the type as not instantiable. Abstract types are never
// registered in the taxonomy.
func Abstract() TypeOption {
	return func(t *Type) {
		t.abstract = true
	}
}

// Internal marks the type as not publicly accessible.
func Internal() TypeOption {
	return func(t *Type) {
		t.internal = true
	}
}

// WithHandlerList makes the type declare its own handler list. Subtypes
// without a list of their own deliver through it.
func WithHandlerList() TypeOption {
	return func(t *Type) {
		t.handlers = newHandlerList(t)
	}
}

// WithFactory sets the constructor used by New.
func WithFactory(fn func(t *Type) Event) TypeOption {
	return func(t *Type) {
		t.factory = fn
	}
}

// NewType creates an event type descriptor. A nil parent creates a type
// outside the event hierarchy; host events pass Root or one of its
// descendants.
func NewType(qualified string, parent *Type, opts ...TypeOption) *Type {
	t := &Type{
		name:    qualified,
		simple:  SimpleName(qualified),
		parent:  parent,
		ordinal: nextOrdinal.Add(1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the qualified name, e.g. "host.event.player.PlayerJoinEvent".
func (t *Type) Name() string { return t.name }

// SimpleName returns the last segment of the qualified name.
func (t *Type) SimpleName() string { return t.simple }

// Parent returns the supertype, or nil for Root and detached types.
func (t *Type) Parent() *Type { return t.parent }

// IsAbstract reports whether the type is abstract.
func (t *Type) IsAbstract() bool { return t.abstract }

// IsPublic reports whether the type is publicly accessible.
func (t *Type) IsPublic() bool { return !t.internal }

// Ordinal returns the process-unique creation sequence number of the type.
func (t *Type) Ordinal() uint64 { return t.ordinal }

// DeclaredHandlerList returns the list declared by this exact type, or nil.
func (t *Type) DeclaredHandlerList() *HandlerList { return t.handlers }

// HandlerList returns the nearest handler list on the ancestor chain,
// starting with the type itself.
func (t *Type) HandlerList() (*HandlerList, bool) {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.handlers != nil {
			return cur.handlers, true
		}
	}
	return nil, false
}

// IsSubtypeOf reports whether t is ancestor or descends from it.
func (t *Type) IsSubtypeOf(ancestor *Type) bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// New instantiates an event of this type. It reports false for abstract
// types and types without a factory.
func (t *Type) New() (Event, bool) {
	if t.abstract || t.factory == nil {
		return nil, false
	}
	return t.factory(t), true
}

// String returns the qualified name.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}
