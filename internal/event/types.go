package event

import (
	"context"
	"fmt"
	"strings"
)

// Priority determines handler execution order.
// Lower values execute first; PriorityMonitor handlers run last and should
// only observe the outcome.
type Priority int

const (
	// PriorityLowest runs before every other handler.
	PriorityLowest Priority = iota

	// PriorityLow runs after lowest.
	PriorityLow

	// PriorityNormal is the default priority.
	PriorityNormal

	// PriorityHigh runs after normal.
	PriorityHigh

	// PriorityHighest has the final say over the event's state.
	PriorityHighest

	// PriorityMonitor observes the final state and must not modify it.
	PriorityMonitor
)

var priorityNames = [...]string{"lowest", "low", "normal", "high", "highest", "monitor"}

// String returns a human-readable priority name.
func (p Priority) String() string {
	if p < PriorityLowest || p > PriorityMonitor {
		return fmt.Sprintf("priority(%d)", int(p))
	}
	return priorityNames[p]
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	return p >= PriorityLowest && p <= PriorityMonitor
}

// ParsePriority converts a case-insensitive priority name.
func ParsePriority(s string) (Priority, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range priorityNames {
		if n == name {
			return Priority(i), nil
		}
	}
	return PriorityNormal, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// Handler is the interface for event handlers.
type Handler interface {
	// Handle processes an event.
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Stats contains event bus statistics.
type Stats struct {
	// EventsCalled is the total number of events passed to Call.
	EventsCalled uint64

	// HandlersExecuted is the total number of handler executions.
	HandlersExecuted uint64

	// HandlersSkipped counts handlers skipped because the event was cancelled.
	HandlersSkipped uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// AvgDeliveryTimeNs is the average per-event delivery time in nanoseconds.
	AvgDeliveryTimeNs int64
}
