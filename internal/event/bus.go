package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dshills/eventscript/internal/event/dispatch"
	"github.com/dshills/eventscript/internal/observability"
)

// Bus delivers events to the handlers registered on their type's handler list.
type Bus interface {
	// Call delivers ev synchronously to every handler on the nearest handler
	// list of its type, in priority order. Handler failures are logged and
	// returned joined; they never stop delivery to the remaining handlers.
	Call(ctx context.Context, ev Event) error

	// Register adds a handler to the handler list that serves t. A
	// comparable handler already on that list is rejected.
	Register(t *Type, rl RegisteredListener) error

	// Unregister removes a handler from the handler list that serves t.
	Unregister(t *Type, h Handler) bool

	// Lifecycle
	Start() error
	Stop() error
	IsRunning() bool

	Stats() Stats

	// DispatchStats reports the handler executions of the dispatcher.
	DispatchStats() dispatch.Stats
}

type bus struct {
	dispatcher *dispatch.SyncDispatcher
	logger     *slog.Logger
	metrics    observability.MetricsRecorder

	running atomic.Bool

	eventsCalled     atomic.Uint64
	handlersExecuted atomic.Uint64
	handlersSkipped  atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
	totalDeliveryNs  atomic.Int64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) Bus {
	cfg := defaultBusConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &bus{
		logger:  observability.Component(cfg.logger, "bus"),
		metrics: cfg.metrics,
	}
	b.dispatcher = dispatch.NewSyncDispatcher(
		dispatch.WithTimeout(cfg.handlerTimeout),
		dispatch.WithPanicHandler(func(ev any, v any, _ []byte) {
			b.handlerPanics.Add(1)
		}),
	)
	return b
}

func (b *bus) Start() error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrBusAlreadyRunning
	}
	return nil
}

func (b *bus) Stop() error {
	if !b.running.CompareAndSwap(true, false) {
		return ErrBusNotRunning
	}
	return nil
}

func (b *bus) IsRunning() bool {
	return b.running.Load()
}

func (b *bus) Register(t *Type, rl RegisteredListener) error {
	if t == nil {
		return ErrInvalidEvent
	}
	list, ok := t.HandlerList()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandlerList, t)
	}
	if rl.Handler != nil && list.Contains(rl.Handler) {
		return fmt.Errorf("%w: %s on %s", ErrAlreadyRegistered, describeHandler(rl), list.Owner())
	}
	return list.Register(rl)
}

func (b *bus) Unregister(t *Type, h Handler) bool {
	if t == nil {
		return false
	}
	list, ok := t.HandlerList()
	if !ok {
		return false
	}
	return list.Unregister(h)
}

func (b *bus) Call(ctx context.Context, ev Event) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}
	if ev == nil || ev.EventType() == nil {
		return ErrInvalidEvent
	}

	t := ev.EventType()
	list, ok := t.HandlerList()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandlerList, t)
	}

	b.eventsCalled.Add(1)
	start := time.Now()
	handlers := list.Snapshot()

	b.logger.Debug("calling event",
		slog.String(observability.KeyEvent, t.SimpleName()),
		slog.Int("handler_count", len(handlers)))

	var errs []error
	for _, rl := range handlers {
		if rl.IgnoreCancelled && IsCancelled(ev) {
			b.handlersSkipped.Add(1)
			continue
		}

		h := rl.Handler
		result := b.dispatcher.Dispatch(ctx, ev, dispatch.HandlerFunc(func(ctx context.Context, _ any) error {
			return h.Handle(ctx, ev)
		}))
		if result.Skipped {
			errs = append(errs, result.Error)
			break
		}
		b.handlersExecuted.Add(1)
		if result.IsSuccess() {
			continue
		}

		err := b.deliveryError(t, rl, result)
		errs = append(errs, err)
		b.handlerErrors.Add(1)
		b.metrics.RecordHandlerError(ctx, t.SimpleName(), result.IsPanic())
		msg := "event handler failed"
		if result.IsPanic() {
			msg = "event handler panicked"
		}
		b.logger.Error(msg,
			slog.String(observability.KeyEvent, t.SimpleName()),
			slog.String("owner", rl.Owner),
			slog.String("priority", rl.Priority.String()),
			slog.Any("error", err))
	}

	elapsed := time.Since(start)
	b.totalDeliveryNs.Add(elapsed.Nanoseconds())
	b.metrics.RecordDelivery(ctx, t.SimpleName(), len(handlers), elapsed)

	return errors.Join(errs...)
}

func (b *bus) deliveryError(t *Type, rl RegisteredListener, result dispatch.Result) error {
	err := result.Err()
	if result.IsPanic() {
		err = &PanicError{Value: result.PanicValue, Stack: string(result.PanicStack)}
	}

	var de *DeliveryError
	if errors.As(err, &de) {
		return de
	}
	return &DeliveryError{Type: t, Handler: describeHandler(rl), Err: err}
}

func (b *bus) Stats() Stats {
	called := b.eventsCalled.Load()
	totalNs := b.totalDeliveryNs.Load()

	var avgNs int64
	if called > 0 {
		avgNs = totalNs / int64(called)
	}

	return Stats{
		EventsCalled:      called,
		HandlersExecuted:  b.handlersExecuted.Load(),
		HandlersSkipped:   b.handlersSkipped.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		AvgDeliveryTimeNs: avgNs,
	}
}

func (b *bus) DispatchStats() dispatch.Stats {
	return b.dispatcher.Stats()
}

func describeHandler(rl RegisteredListener) string {
	name := fmt.Sprintf("%T", rl.Handler)
	if s, ok := rl.Handler.(fmt.Stringer); ok {
		name = s.String()
	}
	if rl.Owner != "" {
		return rl.Owner + "/" + name
	}
	return name
}
