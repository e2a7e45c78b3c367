// Package lua is the script engine: a sandboxed gopher-lua state with a
// stable engine identity.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management
//   - Go-Lua type conversion bridge, including event values
//   - Named function and method invocation for event listeners
//   - Per-engine identities for script objects
//
// # State
//
//	state, err := lua.NewState(
//	    lua.WithExecutionTimeout(5 * time.Second),
//	    lua.WithPrint(func(msg string) { logger.Info(msg) }),
//	)
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile("scripts/greet.lua"); err != nil {
//	    return err
//	}
//	err = state.CallFunction(ctx, "onJoin", ev)
//
// Every State has a UUID returned by ID. Script tables passed to Go are
// given a per-state sequence number by InstanceID the first time they are
// seen, so listeners can order and compare script objects without relying
// on Lua addresses.
//
// # Events
//
// Events passed as call arguments become userdata. Scripts read exported
// payload fields by Go name or JSON name, assign string, number and boolean
// fields, and call getEventName, isCancellable, isCancelled and
// setCancelled.
//
// # Sandbox
//
// The Sandbox removes dofile, loadfile and load, clears package.path and
// replaces require with a whitelist. io and os are only opened when the
// state is created with WithUnsafe(true).
//
// gopher-lua's LState is not goroutine-safe; State serializes every call
// with a mutex.
package lua
