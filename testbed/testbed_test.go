package testbed

import (
	"testing"

	lua "github.com/yuin/gopher-lua"

	luamachine "github.com/wippyai/lua-machine"
	"github.com/wippyai/lua-machine/errors"
	"github.com/wippyai/lua-machine/machine"
)

// recorderComponent counts invocations; used to observe kernel-driven calls.
type recorderComponent struct {
	address string
	ctype   string
	invokes []string
}

func (c *recorderComponent) Address() string { return c.address }
func (c *recorderComponent) Type() string    { return c.ctype }

func (c *recorderComponent) Invoke(method string, args []lua.LValue) ([]lua.LValue, error) {
	c.invokes = append(c.invokes, method)
	switch method {
	case "get":
		return []lua.LValue{lua.LString("boot code")}, nil
	case "charge":
		return nil, errors.LimitReached()
	default:
		return nil, errors.NoSuchMethod(method)
	}
}

func (c *recorderComponent) Doc(method string) (string, error) {
	if method == "get" {
		return "get() -> string", nil
	}
	return "", errors.NoSuchMethod(method)
}

func bootMachine(t *testing.T, cfg machine.Config) *machine.Machine {
	t.Helper()
	m := machine.New(cfg)
	if !m.Initialize() {
		t.Fatal("machine failed to initialize")
	}
	t.Cleanup(m.Close)

	out := m.RunThreaded(false)
	if out != machine.Sleep(0) {
		t.Fatalf("boot outcome = %v, want sleep(0)", out)
	}
	return m
}

func TestDefaultKernel_Lifecycle(t *testing.T) {
	queue := luamachine.NewBufferedQueue(16)
	m := bootMachine(t, machine.Config{Queue: queue})

	// Nothing pending: wait for a signal.
	if out := m.RunThreaded(false); out != machine.Sleep(machine.SleepForever) {
		t.Fatalf("idle outcome = %v, want sleep(forever)", out)
	}

	// A sleep signal is converted to ticks.
	queue.Push(luamachine.Signal{Name: "sleep", Args: []lua.LValue{lua.LNumber(2)}})
	if out := m.RunThreaded(false); out != machine.Sleep(40) {
		t.Fatalf("sleep outcome = %v, want sleep(40)", out)
	}

	// A shutdown signal with reboot set.
	queue.Push(luamachine.Signal{Name: "shutdown", Args: []lua.LValue{lua.LTrue}})
	if out := m.RunThreaded(false); out != machine.Shutdown(true) {
		t.Fatalf("shutdown outcome = %v, want reboot", out)
	}
}

func TestDefaultKernel_SignalAfterSleepIsNotLost(t *testing.T) {
	queue := luamachine.NewBufferedQueue(16)
	m := bootMachine(t, machine.Config{Queue: queue})

	queue.Push(luamachine.Signal{Name: "sleep", Args: []lua.LValue{lua.LNumber(1)}})
	if out := m.RunThreaded(false); out != machine.Sleep(20) {
		t.Fatalf("sleep outcome = %v, want sleep(20)", out)
	}

	// The signal delivered by the very next resume must be handled, not
	// swallowed by the sleep yield.
	queue.Push(luamachine.Signal{Name: "shutdown", Args: []lua.LValue{lua.LFalse}})
	if out := m.RunThreaded(false); out != machine.Shutdown(false) {
		t.Fatalf("post-sleep outcome = %v, want shutdown", out)
	}
}

func TestDefaultKernel_ComponentInvoke(t *testing.T) {
	queue := luamachine.NewBufferedQueue(16)
	registry := luamachine.NewRegistry()
	comp := &recorderComponent{address: "5c6f8a22", ctype: "eeprom"}
	registry.Add(comp)

	m := bootMachine(t, machine.Config{Queue: queue, Components: registry})

	queue.Push(luamachine.Signal{
		Name: "invoke",
		Args: []lua.LValue{lua.LString("5c6f8a22"), lua.LString("get")},
	})
	if out := m.RunThreaded(false); out != machine.Sleep(machine.SleepForever) {
		t.Fatalf("invoke outcome = %v, want sleep(forever)", out)
	}

	if len(comp.invokes) != 1 || comp.invokes[0] != "get" {
		t.Errorf("component invocations = %v, want [get]", comp.invokes)
	}
}

func TestDefaultKernel_Crash(t *testing.T) {
	queue := luamachine.NewBufferedQueue(16)
	m := bootMachine(t, machine.Config{Queue: queue})

	queue.Push(luamachine.Signal{
		Name: "crash",
		Args: []lua.LValue{lua.LString("requested failure")},
	})
	out := m.RunThreaded(false)
	if out.Kind != machine.OutcomeError {
		t.Fatalf("outcome = %v, want an error", out)
	}
	if out.Message != "requested failure" {
		t.Errorf("error message = %q, want the crash reason", out.Message)
	}
}

func TestMachine_RebootCycleProducesFreshKernel(t *testing.T) {
	queue := luamachine.NewBufferedQueue(16)
	m := bootMachine(t, machine.Config{Queue: queue})

	queue.Push(luamachine.Signal{Name: "shutdown", Args: []lua.LValue{lua.LTrue}})
	out := m.RunThreaded(false)
	if out != machine.Shutdown(true) {
		t.Fatalf("outcome = %v, want reboot", out)
	}

	// The host acts on the reboot by closing and re-initializing; the fresh
	// kernel must boot from scratch.
	m.Close()
	if !m.Initialize() {
		t.Fatal("re-initialize failed")
	}
	if out := m.RunThreaded(false); out != machine.Sleep(0) {
		t.Fatalf("outcome after reboot = %v, want sleep(0)", out)
	}
}

func TestMachine_PersistenceAcrossReload(t *testing.T) {
	store := luamachine.NewMemStore()

	m := bootMachine(t, machine.Config{})
	m.SetBootAddress("5c6f8a22")
	m.Save(store)
	m.Close()

	reloaded := bootMachine(t, machine.Config{})
	reloaded.Load(store)
	if got := reloaded.BootAddress(); got != "5c6f8a22" {
		t.Fatalf("BootAddress() after reload = %q, want 5c6f8a22", got)
	}
}

func TestMachine_EscapeAttemptsFindNothing(t *testing.T) {
	// A kernel that goes looking for every host escape hatch. If any of them
	// is reachable the kernel crashes with the list; a clean sandbox shuts
	// down normally.
	const kernelSrc = `
coroutine.yield(true)
local reachable = {}
for _, name in ipairs({
  "io", "os", "debug", "package", "require", "module", "dofile", "loadfile",
}) do
  if _G[name] ~= nil then
    reachable[#reachable + 1] = name
  end
end
if #reachable > 0 then
  return false, "reachable: " .. table.concat(reachable, ", ")
end
coroutine.yield(nil, false)
return false, "resumed after shutdown request"
`
	m := bootMachine(t, machine.Config{
		Kernel:     []byte(kernelSrc),
		KernelName: "=escape",
	})

	out := m.RunThreaded(false)
	if out != machine.Shutdown(false) {
		t.Fatalf("outcome = %v, want a clean shutdown", out)
	}
}

func TestMachine_SynchronizedCallFromCustomKernel(t *testing.T) {
	const kernelSrc = `
coroutine.yield(true)
local a, b = coroutine.yield(nil, function() return "result", 7 end)
if a == "result" and b == 7 then
  coroutine.yield(nil, false)
end
return false, "unexpected synchronized result"
`
	m := bootMachine(t, machine.Config{
		Kernel:     []byte(kernelSrc),
		KernelName: "=sync",
	})

	out := m.RunThreaded(false)
	if out != machine.SynchronizedCall() {
		t.Fatalf("outcome = %v, want synchronized call", out)
	}
	if err := m.RunSynchronized(); err != nil {
		t.Fatalf("RunSynchronized: %v", err)
	}
	if out := m.RunThreaded(true); out != machine.Shutdown(false) {
		t.Fatalf("outcome after synchronized return = %v, want shutdown", out)
	}
}
