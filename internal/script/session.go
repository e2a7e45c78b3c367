package script

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventscript/internal/event"
	"github.com/dshills/eventscript/internal/observability"
	"github.com/dshills/eventscript/internal/script/listener"
)

// Resolver maps event names to types and types to handler lists.
// *taxonomy.Registry implements it.
type Resolver interface {
	Resolve(name string) (*event.Type, error)
	Endpoint(t *event.Type) (*event.HandlerList, error)
}

// Session owns every listener one script registered and revokes them on
// unload. It is safe for concurrent use.
type Session struct {
	name     string
	engine   listener.Engine
	resolver Resolver
	bus      listener.Registrar
	logger   *slog.Logger
	metrics  observability.MetricsRecorder

	mu         sync.Mutex
	endpoints  map[*event.HandlerList]struct{}
	functions  *listener.Set[listener.FunctionExecutor]
	methods    *listener.Set[listener.MethodExecutor]
	unloadHook func() error
	unloaded   bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the parent logger. The session adds its script name.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionMetrics sets the metrics recorder.
func WithSessionMetrics(m observability.MetricsRecorder) SessionOption {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSessionBus sets the bus listeners are registered through. Without it
// the session uses a private bus, which reaches the same handler lists.
func WithSessionBus(bus event.Bus) SessionOption {
	return func(s *Session) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// NewSession creates the session of the script name running in engine.
func NewSession(name string, engine listener.Engine, resolver Resolver, opts ...SessionOption) *Session {
	s := &Session{
		name:      name,
		engine:    engine,
		resolver:  resolver,
		logger:    observability.Discard(),
		metrics:   observability.NoopMetrics{},
		endpoints: make(map[*event.HandlerList]struct{}),
		functions: listener.NewSet[listener.FunctionExecutor](),
		methods:   listener.NewSet[listener.MethodExecutor](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = observability.ScriptLogger(s.logger, name)
	if s.bus == nil {
		s.bus = event.NewBus(event.WithLogger(s.logger), event.WithMetrics(s.metrics))
	}
	return s
}

// Name returns the script name.
func (s *Session) Name() string { return s.name }

// Logger returns the script's logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// ListenerCount returns the number of registered listeners.
func (s *Session) ListenerCount() int {
	return s.functions.Len() + s.methods.Len()
}

// RegisterFunction registers the global function name for the event named
// eventName. It returns false if the function is already registered for
// that event.
func (s *Session) RegisterFunction(name string, priority event.Priority, ignoreCancelled bool, eventName string) (bool, error) {
	exec, err := listener.NewFunctionExecutor(s.engine, name)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.register(eventName, func(t *event.Type) (bool, error) {
		return bind(s, s.functions, listener.New(exec, t), priority, ignoreCancelled)
	})
}

// RegisterMethod registers instance[method] for the event named eventName.
// It returns false if the method of that instance is already registered for
// that event.
func (s *Session) RegisterMethod(instance lua.LValue, method string, priority event.Priority, ignoreCancelled bool, eventName string) (bool, error) {
	exec, err := listener.NewMethodExecutor(s.engine, instance, method)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.register(eventName, func(t *event.Type) (bool, error) {
		return bind(s, s.methods, listener.New(exec, t), priority, ignoreCancelled)
	})
}

// RegisterConfig registers a function listener described by cfg. See
// ParseListenerSpec for the recognized keys. An event name that does not
// resolve is a validation error.
func (s *Session) RegisterConfig(cfg map[string]any) (bool, error) {
	spec, err := s.parseConfig(cfg)
	if err != nil {
		return false, err
	}
	return s.RegisterFunction(spec.Handler, spec.Priority, spec.IgnoreCancelled, spec.Event)
}

// parseConfig parses cfg and checks that its event resolves.
func (s *Session) parseConfig(cfg map[string]any) (ListenerSpec, error) {
	spec, err := ParseListenerSpec(cfg)
	if err != nil {
		return spec, err
	}
	if _, err := s.resolver.Resolve(spec.Event); err != nil {
		return spec, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return spec, nil
}

func (s *Session) register(eventName string, fn func(*event.Type) (bool, error)) (bool, error) {
	if eventName == "" {
		return false, fmt.Errorf("%w: event name is required", ErrValidation)
	}
	t, err := s.resolver.Resolve(eventName)
	if err != nil {
		return false, err
	}
	list, err := s.resolver.Endpoint(t)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return false, ErrSessionUnloaded
	}
	ok, err := fn(t)
	if ok {
		s.endpoints[list] = struct{}{}
	}
	return ok, err
}

// bind must be called with the session lock held.
func bind[E listener.Executor[E]](s *Session, set *listener.Set[E], l *listener.Listener[E], priority event.Priority, ignoreCancelled bool) (bool, error) {
	if !priority.Valid() {
		return false, fmt.Errorf("%w: %w", ErrValidation, event.ErrInvalidPriority)
	}
	if !set.Add(l) {
		s.logger.Debug("listener already registered", slog.String("listener", l.String()))
		return false, nil
	}
	if err := l.Bind(s.bus, priority, ignoreCancelled, s.name); err != nil {
		set.Remove(l)
		return false, err
	}

	s.metrics.RecordListener(context.Background(), l.EventType().SimpleName(), l.Executor().Kind().String(), 1)
	s.logger.Debug("listener registered",
		slog.String("listener", l.String()),
		slog.String("priority", priority.String()),
		slog.Bool("ignore_cancelled", ignoreCancelled))
	return true, nil
}

// UnregisterFunction removes the listener registered for the global
// function name and the event named eventName. It reports false if no such
// listener is registered.
func (s *Session) UnregisterFunction(name, eventName string) bool {
	exec, err := listener.NewFunctionExecutor(s.engine, name)
	if err != nil {
		return false
	}
	t, ok := s.endpointType(eventName)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return unbind(s, s.functions, listener.New(exec, t))
}

// UnregisterMethod removes the listener registered for instance[method]
// and the event named eventName.
func (s *Session) UnregisterMethod(instance lua.LValue, method, eventName string) bool {
	exec, ok := listener.FindMethodExecutor(s.engine, instance, method)
	if !ok {
		return false
	}
	t, ok := s.endpointType(eventName)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return unbind(s, s.methods, listener.New(exec, t))
}

// endpointType resolves eventName to a type that has a handler list.
func (s *Session) endpointType(eventName string) (*event.Type, bool) {
	t, err := s.resolver.Resolve(eventName)
	if err != nil {
		return nil, false
	}
	if _, err := s.resolver.Endpoint(t); err != nil {
		return nil, false
	}
	return t, true
}

// unbind must be called with the session lock held.
func unbind[E listener.Executor[E]](s *Session, set *listener.Set[E], probe *listener.Listener[E]) bool {
	stored, ok := set.Remove(probe)
	if !ok {
		return false
	}
	if !stored.Unbind() {
		return false
	}
	s.metrics.RecordListener(context.Background(), stored.EventType().SimpleName(), stored.Executor().Kind().String(), -1)
	s.logger.Debug("listener unregistered", slog.String("listener", stored.String()))
	return true
}

// SetUnloadHook sets the function run at the start of Unload, replacing any
// previous hook.
func (s *Session) SetUnloadHook(hook func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unloadHook = hook
}

// Unload runs the unload hook, then unbinds every listener. Hook errors and
// panics are logged and do not stop the cleanup. The hook runs at most once;
// calling Unload again unbinds whatever is left and is otherwise a no-op.
// Registration fails with ErrSessionUnloaded afterwards.
func (s *Session) Unload() {
	s.mu.Lock()
	hook := s.unloadHook
	s.unloadHook = nil
	s.unloaded = true
	s.mu.Unlock()

	if hook != nil {
		s.runHook(hook)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := releaseAll(s, s.functions) + releaseAll(s, s.methods)
	if n > 0 {
		s.logger.Info("script listeners released", slog.Int("count", n))
	}
}

// Sweep removes every registration owned by the session's name from the
// handler lists the session registered on, and returns how many it removed.
// After Unload it finds nothing unless a handler was registered under the
// script's name by other means. Only the owner of a name should sweep.
func (s *Session) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for list := range s.endpoints {
		if n := list.UnregisterOwner(s.name); n > 0 {
			s.logger.Warn("stale handlers removed",
				slog.String("endpoint", list.Owner().SimpleName()),
				slog.Int("count", n))
			total += n
		}
	}
	return total
}

func (s *Session) runHook(hook func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("unload hook panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	if err := hook(); err != nil {
		s.logger.Error("unload hook failed", slog.Any("error", err))
	}
}

func releaseAll[E listener.Executor[E]](s *Session, set *listener.Set[E]) int {
	removed := set.Clear()
	for _, l := range removed {
		l.Unbind()
		s.metrics.RecordListener(context.Background(), l.EventType().SimpleName(), l.Executor().Kind().String(), -1)
	}
	return len(removed)
}
