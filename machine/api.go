package machine

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	luamachine "github.com/wippyai/lua-machine"
	"github.com/wippyai/lua-machine/errors"
)

// computerAPI exposes machine-level introspection to the sandbox.
type computerAPI struct {
	m *Machine
}

func (a *computerAPI) Name() string { return "computer" }

func (a *computerAPI) Open(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	return L.SetFuncs(t, map[string]lua.LGFunction{
		"uptime":      a.uptime,
		"totalMemory": a.totalMemory,
		"freeMemory":  a.freeMemory,
		"pushSignal":  a.pushSignal,
	})
}

func (a *computerAPI) uptime(L *lua.LState) int {
	L.Push(lua.LNumber(time.Since(a.m.startedAt).Seconds()))
	return 1
}

func (a *computerAPI) totalMemory(L *lua.LState) int {
	L.Push(lua.LNumber(a.m.memoryTotal))
	return 1
}

// freeMemory reports the unconsumed part of the budget. The budget is
// advisory: allocations are not metered, so the whole budget reads as free.
func (a *computerAPI) freeMemory(L *lua.LState) int {
	L.Push(lua.LNumber(a.m.memoryTotal))
	return 1
}

func (a *computerAPI) pushSignal(L *lua.LState) int {
	name := L.CheckString(1)
	args := make([]lua.LValue, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i))
	}

	pusher, ok := a.m.queue.(luamachine.SignalPusher)
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(pusher.Push(luamachine.Signal{Name: name, Args: args})))
	return 1
}

// componentAPI exposes the component bus. Every call that reaches a host
// component goes through the invocation bridge, so component errors surface
// as script values, never as Lua errors.
type componentAPI struct {
	m *Machine
}

func (a *componentAPI) Name() string { return "component" }

func (a *componentAPI) Open(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	return L.SetFuncs(t, map[string]lua.LGFunction{
		"list":   a.list,
		"type":   a.typ,
		"invoke": a.invoke,
		"doc":    a.doc,
	})
}

func (a *componentAPI) list(L *lua.LState) int {
	filter := L.OptString(1, "")
	t := L.NewTable()
	for _, c := range a.m.components.List() {
		if filter == "" || c.Type() == filter {
			t.RawSetString(c.Address(), lua.LString(c.Type()))
		}
	}
	L.Push(t)
	return 1
}

func (a *componentAPI) typ(L *lua.LState) int {
	address := L.CheckString(1)
	return Invoke(L, func() ([]lua.LValue, error) {
		c, ok := a.m.components.Get(address)
		if !ok {
			return nil, errors.NoSuchMethod(address)
		}
		return []lua.LValue{lua.LString(c.Type())}, nil
	})
}

func (a *componentAPI) invoke(L *lua.LState) int {
	address := L.CheckString(1)
	method := L.CheckString(2)
	args := make([]lua.LValue, 0, L.GetTop()-2)
	for i := 3; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i))
	}

	return Invoke(L, func() ([]lua.LValue, error) {
		c, ok := a.m.components.Get(address)
		if !ok {
			return nil, errors.NoSuchMethod(address)
		}
		return c.Invoke(method, args)
	})
}

func (a *componentAPI) doc(L *lua.LState) int {
	address := L.CheckString(1)
	method := L.CheckString(2)
	return Documentation(L, func() (string, error) {
		c, ok := a.m.components.Get(address)
		if !ok {
			return "", errors.NoSuchMethod(address)
		}
		return c.Doc(method)
	})
}
