package engine

import (
	"bytes"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wippyai/lua-machine/errors"
)

// Config holds configuration for engine creation
type Config struct {
	// RegistrySize sets the initial Lua registry size.
	// 0 means the gopher-lua default.
	RegistrySize int

	// CallStackSize sets the call stack depth available to the kernel.
	// 0 means the gopher-lua default.
	CallStackSize int
}

// API is a host-provided module exposed to the sandbox as a global table.
// Open builds the module table on the given state; it must not retain the
// state beyond the call.
type API interface {
	Name() string
	Open(L *lua.LState) *lua.LTable
}

// Engine owns one sandboxed Lua state and the kernel coroutine loaded into
// it. Not safe for concurrent use; the caller serializes access.
type Engine struct {
	state  *lua.LState
	apis   map[string]API
	kernel *Coroutine
}

// openLibs is the whitelist of standard libraries available inside the
// sandbox. io, os, debug and the package loader are deliberately absent.
var openLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
	{lua.CoroutineLibName, lua.OpenCoroutine},
}

// scrubGlobals are base-library escape hatches removed after opening.
// gopher-lua's OpenBase also registers the module loader entry points, so
// require and module are scrubbed alongside the file loaders.
var scrubGlobals = []string{"dofile", "loadfile", "require", "module"}

// New creates a sandboxed engine with no kernel loaded.
func New(cfg Config) (*Engine, error) {
	opts := lua.Options{SkipOpenLibs: true}
	if cfg.RegistrySize > 0 {
		opts.RegistrySize = cfg.RegistrySize
	}
	if cfg.CallStackSize > 0 {
		opts.CallStackSize = cfg.CallStackSize
	}

	L := lua.NewState(opts)
	for _, lib := range openLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, errors.Load("open standard library", err)
		}
	}
	for _, name := range scrubGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	return &Engine{
		state: L,
		apis:  make(map[string]API),
	}, nil
}

// State returns the underlying Lua state. Host callbacks executing outside
// the kernel coroutine (synchronized calls) run on it.
func (e *Engine) State() *lua.LState {
	return e.state
}

// RegisterAPI exposes api as a global table inside the sandbox.
// Must be called before LoadKernel so the kernel sees a complete namespace.
func (e *Engine) RegisterAPI(api API) error {
	name := api.Name()
	if name == "" {
		return errors.InvalidInput(errors.PhaseLoad, "api name cannot be empty")
	}
	if e.kernel != nil {
		return errors.InvalidInput(errors.PhaseLoad, "cannot register api after kernel load")
	}
	if _, exists := e.apis[name]; exists {
		return errors.New(errors.PhaseLoad, errors.KindInvalid).
			Detail("api %q already registered", name).
			Build()
	}

	e.apis[name] = api
	e.state.SetGlobal(name, api.Open(e.state))
	return nil
}

// LoadKernel compiles the kernel chunk and creates the kernel coroutine.
// Only one kernel may be loaded per engine.
func (e *Engine) LoadKernel(name string, source []byte) (*Coroutine, error) {
	if e.kernel != nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "kernel already loaded")
	}
	if len(source) == 0 {
		return nil, errors.Load("kernel source is empty", nil)
	}

	fn, err := e.state.Load(bytes.NewReader(source), name)
	if err != nil {
		return nil, errors.Load("compile kernel", err)
	}

	thread, cancel := e.state.NewThread()
	e.kernel = &Coroutine{
		owner:  e.state,
		thread: thread,
		cancel: cancel,
		fn:     fn,
	}

	Logger().Debug("kernel loaded",
		zap.String("chunk", name),
		zap.Int("bytes", len(source)))
	return e.kernel, nil
}

// Kernel returns the loaded kernel coroutine, or nil before LoadKernel.
func (e *Engine) Kernel() *Coroutine {
	return e.kernel
}

// Close releases the Lua state. The engine is not reusable afterwards.
func (e *Engine) Close() {
	if e.kernel != nil {
		e.kernel.release()
		e.kernel = nil
	}
	if e.state != nil {
		e.state.Close()
		e.state = nil
	}
}
