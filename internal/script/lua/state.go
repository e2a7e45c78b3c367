package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds a single script invocation.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps gopher-lua with an engine identity and sandboxing.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes every
// evaluation and call made through State; code holding the raw LState from
// LuaState must provide its own synchronization.
type State struct {
	L *lua.LState

	mu sync.Mutex

	id               string
	executionTimeout time.Duration
	unsafe           bool
	printFn          func(string)

	sandbox *Sandbox
	bridge  *Bridge

	instMu       sync.Mutex
	instances    map[lua.LValue]uint64
	nextInstance uint64

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout bounds each DoFile, DoString and call. Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithUnsafe opens the io and os libraries.
func WithUnsafe(unsafe bool) StateOption {
	return func(s *State) {
		s.unsafe = unsafe
	}
}

// WithPrint redirects the Lua print function.
func WithPrint(fn func(string)) StateOption {
	return func(s *State) {
		s.printFn = fn
	}
}

// WithID overrides the generated engine identity.
func WithID(id string) StateOption {
	return func(s *State) {
		if id != "" {
			s.id = id
		}
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		id:               uuid.NewString(),
		executionTimeout: DefaultExecutionTimeout,
		instances:        make(map[lua.LValue]uint64),
	}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	state.L = L

	openLibraries(L, state.unsafe)

	state.sandbox = NewSandbox(L, state.unsafe, state.printFn)
	state.sandbox.Install()

	state.bridge = NewBridge(L)
	registerEventType(L, state.bridge)

	return state, nil
}

// openLibraries opens the standard libraries scripts may use.
func openLibraries(L *lua.LState, unsafe bool) {
	lua.OpenBase(L)
	lua.OpenPackage(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	lua.OpenCoroutine(L)

	if unsafe {
		lua.OpenIo(L)
		lua.OpenOs(L)
	}
}

// ID returns the engine identity.
func (s *State) ID() string {
	return s.id
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	return s.do(context.Background(), func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(code string) error {
	return s.do(context.Background(), func() error {
		return s.L.DoString(code)
	})
}

// CallFunction calls the global function name with args converted by the
// bridge. Events are passed as event userdata.
func (s *State) CallFunction(ctx context.Context, name string, args ...any) error {
	return s.do(ctx, func() error {
		fn := s.L.GetGlobal(name)
		if err := checkCallable(fn, name); err != nil {
			return err
		}
		return s.pcall(fn, nil, args)
	})
}

// CallMethod calls instance[name](instance, args...).
func (s *State) CallMethod(ctx context.Context, instance lua.LValue, name string, args ...any) error {
	switch instance.(type) {
	case *lua.LTable, *lua.LUserData:
	default:
		return fmt.Errorf("%w: %s", ErrNotInstance, typeName(instance))
	}

	return s.do(ctx, func() error {
		fn := s.L.GetField(instance, name)
		if err := checkCallable(fn, name); err != nil {
			return err
		}
		return s.pcall(fn, instance, args)
	})
}

// CallValue calls a Lua function value.
func (s *State) CallValue(ctx context.Context, fn lua.LValue, args ...any) error {
	return s.do(ctx, func() error {
		if err := checkCallable(fn, "function"); err != nil {
			return err
		}
		return s.pcall(fn, nil, args)
	})
}

// pcall must be called with the mutex held.
func (s *State) pcall(fn, self lua.LValue, args []any) error {
	n := len(args)
	s.L.Push(fn)
	if self != nil {
		s.L.Push(self)
		n++
	}
	for _, arg := range args {
		s.L.Push(s.bridge.ToLuaValue(arg))
	}
	return s.L.PCall(n, 0, nil)
}

// do runs fn under the mutex with panic recovery and the execution timeout.
func (s *State) do(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrExecutionTimeout, err)
		}
	}()

	return fn()
}

func checkCallable(fn lua.LValue, name string) error {
	if fn == nil || fn == lua.LNil {
		return fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("%w: %q is a %s", ErrNotCallable, name, fn.Type())
	}
	return nil
}

func typeName(v lua.LValue) string {
	if v == nil {
		return "nil"
	}
	return v.Type().String()
}

// InstanceID returns the identity of a script object within this engine.
// Tables and userdata receive sequential IDs starting at 1 the first time
// they are seen; any other value yields 0.
func (s *State) InstanceID(v lua.LValue) uint64 {
	switch v.(type) {
	case *lua.LTable, *lua.LUserData:
	default:
		return 0
	}

	s.instMu.Lock()
	defer s.instMu.Unlock()

	if id, ok := s.instances[v]; ok {
		return id
	}
	s.nextInstance++
	s.instances[v] = s.nextInstance
	return s.nextInstance
}

// LookupInstance returns the identity already given to v, without
// assigning one.
func (s *State) LookupInstance(v lua.LValue) (uint64, bool) {
	s.instMu.Lock()
	defer s.instMu.Unlock()

	id, ok := s.instances[v]
	return id, ok
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// PreloadModule makes a Go module available to require.
func (s *State) PreloadModule(name string, loader lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.PreloadModule(name, loader)
}

// Bridge returns the state's Go-Lua conversion bridge.
func (s *State) Bridge() *Bridge {
	return s.bridge
}

// LuaState returns the underlying gopher-lua state.
//
// Direct access bypasses the mutex. It is meant for building values such
// as tables and functions before or between calls.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// Sandbox returns the sandbox installed on the state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true

	s.instMu.Lock()
	clear(s.instances)
	s.instMu.Unlock()
	return nil
}
