package event

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every value that can be delivered on the bus.
// The returned descriptor identifies the event's exact runtime type.
type Event interface {
	EventType() *Type
}

// Cancellable is implemented by events whose further processing can be
// vetoed by a handler.
type Cancellable interface {
	Event
	IsCancelled() bool
	SetCancelled(cancelled bool)
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies who fired the event.
	Source string
}

// NewMetadata creates metadata with a fresh ID and the current time.
func NewMetadata(source string) Metadata {
	return Metadata{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Source:    source,
	}
}

// EventMetadata returns the event's metadata for type-erased handling.
func (m Metadata) EventMetadata() Metadata {
	return m
}

// MetadataProvider is implemented by events that carry Metadata.
type MetadataProvider interface {
	EventMetadata() Metadata
}

// Cancellation is embedded by events that implement Cancellable.
type Cancellation struct {
	cancelled atomic.Bool
}

// IsCancelled reports whether a handler cancelled the event.
func (c *Cancellation) IsCancelled() bool {
	return c.cancelled.Load()
}

// SetCancelled marks the event as cancelled or not cancelled.
func (c *Cancellation) SetCancelled(cancelled bool) {
	c.cancelled.Store(cancelled)
}

// Dynamic is a data-carrying event whose type is only known at runtime,
// such as the events declared by plugin manifests.
type Dynamic struct {
	Metadata
	Cancellation

	typ *Type

	// Data holds the event fields by name.
	Data map[string]any
}

// NewDynamic creates a dynamic event of the given type.
func NewDynamic(t *Type, source string) *Dynamic {
	return &Dynamic{
		Metadata: NewMetadata(source),
		typ:      t,
		Data:     make(map[string]any),
	}
}

// EventType implements Event.
func (d *Dynamic) EventType() *Type {
	return d.typ
}

// Get returns a field value.
func (d *Dynamic) Get(key string) (any, bool) {
	v, ok := d.Data[key]
	return v, ok
}

// Set stores a field value.
func (d *Dynamic) Set(key string, value any) {
	if d.Data == nil {
		d.Data = make(map[string]any)
	}
	d.Data[key] = value
}

// IsCancellable reports whether ev can be cancelled.
func IsCancellable(ev Event) bool {
	_, ok := ev.(Cancellable)
	return ok
}

// IsCancelled reports whether ev is a cancelled Cancellable event.
func IsCancelled(ev Event) bool {
	c, ok := ev.(Cancellable)
	return ok && c.IsCancelled()
}

// SimpleName returns the last dot-separated segment of a qualified name.
func SimpleName(qualified string) string {
	if idx := strings.LastIndex(qualified, "."); idx >= 0 {
		return qualified[idx+1:]
	}
	return qualified
}
