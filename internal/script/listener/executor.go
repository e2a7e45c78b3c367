package listener

import (
	"cmp"
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Kind is the runtime variant of an executor.
type Kind int

const (
	// KindFunction executors call a global function.
	KindFunction Kind = iota

	// KindMethod executors call a method on a script object.
	KindMethod
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Engine is the script engine an executor calls into.
type Engine interface {
	// ID returns the engine identity.
	ID() string

	// CallFunction calls a global function.
	CallFunction(ctx context.Context, name string, args ...any) error

	// CallMethod calls instance[name](instance, args...).
	CallMethod(ctx context.Context, instance lua.LValue, name string, args ...any) error

	// InstanceID returns the identity of a script object, or 0 if v is not
	// an object.
	InstanceID(v lua.LValue) uint64

	// LookupInstance returns the identity of v if one was already assigned.
	LookupInstance(v lua.LValue) (uint64, bool)
}

// Executor is an invokable unit forwarding calls into a script engine.
// E is the concrete executor type, so that executors only compare with
// executors of their own variant.
type Executor[E any] interface {
	// Execute invokes the callback. Failures wrap ErrInvocation.
	Execute(ctx context.Context, args ...any) error

	// Kind returns the executor variant.
	Kind() Kind

	// Compare orders executors by identity.
	Compare(other E) int

	String() string
}

// FunctionExecutor calls a global function of one engine.
type FunctionExecutor struct {
	engine   Engine
	engineID string
	name     string
}

// NewFunctionExecutor creates an executor for the global function name.
func NewFunctionExecutor(engine Engine, name string) (FunctionExecutor, error) {
	if engine == nil || name == "" {
		return FunctionExecutor{}, fmt.Errorf("%w: engine and function name are required", ErrInvalidExecutor)
	}
	return FunctionExecutor{engine: engine, engineID: engine.ID(), name: name}, nil
}

// Execute calls the function with args.
func (e FunctionExecutor) Execute(ctx context.Context, args ...any) error {
	if err := e.engine.CallFunction(ctx, e.name, args...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvocation, e.name, err)
	}
	return nil
}

// Kind returns KindFunction.
func (e FunctionExecutor) Kind() Kind { return KindFunction }

// Name returns the function name.
func (e FunctionExecutor) Name() string { return e.name }

// EngineID returns the identity of the engine.
func (e FunctionExecutor) EngineID() string { return e.engineID }

// Compare orders by engine identity, then function name.
func (e FunctionExecutor) Compare(other FunctionExecutor) int {
	if c := cmp.Compare(e.engineID, other.engineID); c != 0 {
		return c
	}
	return cmp.Compare(e.name, other.name)
}

func (e FunctionExecutor) String() string {
	return e.name
}

// MethodExecutor calls a method on one script object.
type MethodExecutor struct {
	engine     Engine
	engineID   string
	instance   lua.LValue
	instanceID uint64
	method     string
}

// NewMethodExecutor creates an executor for instance[method].
func NewMethodExecutor(engine Engine, instance lua.LValue, method string) (MethodExecutor, error) {
	if engine == nil || method == "" {
		return MethodExecutor{}, fmt.Errorf("%w: engine and method name are required", ErrInvalidExecutor)
	}
	id := engine.InstanceID(instance)
	if id == 0 {
		return MethodExecutor{}, fmt.Errorf("%w: %s", ErrInvalidInstance, typeName(instance))
	}
	return MethodExecutor{
		engine:     engine,
		engineID:   engine.ID(),
		instance:   instance,
		instanceID: id,
		method:     method,
	}, nil
}

// FindMethodExecutor returns the executor for instance[method] if the
// engine already knows instance. Unlike NewMethodExecutor it never assigns
// an identity, so probing with a fresh object does not retain it.
func FindMethodExecutor(engine Engine, instance lua.LValue, method string) (MethodExecutor, bool) {
	if engine == nil || method == "" {
		return MethodExecutor{}, false
	}
	id, ok := engine.LookupInstance(instance)
	if !ok || id == 0 {
		return MethodExecutor{}, false
	}
	return MethodExecutor{
		engine:     engine,
		engineID:   engine.ID(),
		instance:   instance,
		instanceID: id,
		method:     method,
	}, true
}

// Execute calls the method with args.
func (e MethodExecutor) Execute(ctx context.Context, args ...any) error {
	if err := e.engine.CallMethod(ctx, e.instance, e.method, args...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvocation, e, err)
	}
	return nil
}

// Kind returns KindMethod.
func (e MethodExecutor) Kind() Kind { return KindMethod }

// Method returns the method name.
func (e MethodExecutor) Method() string { return e.method }

// InstanceID returns the identity of the script object.
func (e MethodExecutor) InstanceID() uint64 { return e.instanceID }

// EngineID returns the identity of the engine.
func (e MethodExecutor) EngineID() string { return e.engineID }

// Compare orders by engine identity, instance identity, then method name.
func (e MethodExecutor) Compare(other MethodExecutor) int {
	if c := cmp.Compare(e.engineID, other.engineID); c != 0 {
		return c
	}
	if c := cmp.Compare(e.instanceID, other.instanceID); c != 0 {
		return c
	}
	return cmp.Compare(e.method, other.method)
}

func (e MethodExecutor) String() string {
	return fmt.Sprintf("#%d:%s", e.instanceID, e.method)
}

func typeName(v lua.LValue) string {
	if v == nil {
		return "nil"
	}
	return v.Type().String()
}
