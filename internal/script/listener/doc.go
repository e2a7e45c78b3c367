// Package listener binds script callbacks to event handler lists.
//
// An Executor is an invokable unit that forwards a call into a script
// engine. Two variants exist:
//
//   - FunctionExecutor calls a global function by name.
//   - MethodExecutor calls a method on a script object.
//
// Executors are identified by the tuple (engine, instance, name) and are
// ordered field by field on that tuple. The identity is fixed at
// construction and does not depend on whether invocation succeeds.
//
// A Listener couples one Executor to one event type and is the handler
// actually registered on the type's handler list. A handler list delivers
// every event of its declaring type and of the types below it, so the
// Listener filters on the exact runtime type before invoking its Executor:
//
//	l := listener.New(exec, events.TypePlayerJoin)
//	if err := l.Bind(bus, event.PriorityNormal, false, "greeter"); err != nil {
//	    return err
//	}
//	defer l.Unbind()
//
// A Listener is bound at most once. After Unbind it is released and cannot
// be bound again; a new Listener must be created instead.
//
// Set keeps listeners of one executor variant ordered and free of
// duplicates.
package listener
