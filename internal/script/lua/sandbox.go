package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// ModulePrefix is the prefix of host-provided modules that require accepts.
const ModulePrefix = "eventscript"

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	unsafe  bool
	printFn func(string)
}

// NewSandbox creates a new sandbox for the Lua state. A non-nil print
// function receives the output of the Lua print function.
func NewSandbox(L *lua.LState, unsafe bool, printFn func(string)) *Sandbox {
	return &Sandbox{L: L, unsafe: unsafe, printFn: printFn}
}

// Unsafe reports whether io and os are available.
func (s *Sandbox) Unsafe() bool {
	return s.unsafe
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	if s.printFn != nil {
		s.installPrint()
	}
	s.installSafeRequire()
}

func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
		}
		s.printFn(strings.Join(parts, "\t"))
		return 0
	}))
}

// installSafeRequire clears package.path and package.cpath and replaces
// require so that only the bundled libraries and preloaded host modules can
// be loaded.
func (s *Sandbox) installSafeRequire() {
	pkg, ok := s.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	s.L.SetField(pkg, "path", lua.LString(""))
	s.L.SetField(pkg, "cpath", lua.LString(""))

	allowed := map[string]bool{"string": true, "table": true, "math": true, "coroutine": true}
	if s.unsafe {
		allowed["io"] = true
		allowed["os"] = true
	}

	original := s.L.GetGlobal("require")
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !allowed[name] && name != ModulePrefix && !strings.HasPrefix(name, ModulePrefix+".") {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(original)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}
