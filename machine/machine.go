package machine

import (
	"math"
	"runtime/debug"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	luamachine "github.com/wippyai/lua-machine"
	"github.com/wippyai/lua-machine/engine"
	"github.com/wippyai/lua-machine/errors"
	"github.com/wippyai/lua-machine/kernel"
)

// kernelPanicMessage is the script-visible text for any fault escaping the
// resume mechanics themselves. Such a fault is a scheduler or bridge defect,
// never a recoverable script condition, so it is kept apart from the fault
// taxonomy on purpose.
const kernelPanicMessage = "kernel panic: this is a bug, check your log file and report it"

// bootAddressKey is the fixed persistence key for the boot address.
const bootAddressKey = "bootAddress"

// Memory budget constants, recomputed from the component count.
const (
	baseMemory         = 256 * 1024
	memoryPerComponent = 64 * 1024
)

// Config holds configuration for machine creation.
type Config struct {
	// Kernel is the kernel script source. Nil selects the embedded default.
	Kernel []byte
	// KernelName is the chunk name used in stack traces.
	KernelName string
	// Queue delivers host signals. Nil selects an empty BufferedQueue.
	Queue luamachine.SignalQueue
	// Components is the machine's component bus. Nil selects an empty
	// registry.
	Components luamachine.ComponentRegistry
	// Host controls the owning machine's power state; may be nil for hosts
	// that manage the lifecycle themselves.
	Host luamachine.Host
	// APIs are additional modules exposed to the sandbox besides the
	// built-in computer and component tables.
	APIs []engine.API
	// Engine tunes the underlying Lua state.
	Engine engine.Config
}

// Machine drives one persistent kernel coroutine tick-by-tick. Not safe for
// concurrent use; see the package documentation for the threading contract.
type Machine struct {
	cfg        Config
	eng        *engine.Engine
	kernel     *engine.Coroutine
	queue      luamachine.SignalQueue
	components luamachine.ComponentRegistry

	// The one-shot cross-thread handoff pair. Never both occupied.
	synchronizedCall   *lua.LFunction
	synchronizedResult []lua.LValue
	hasResult          bool

	initialized bool
	bootAddress string
	memoryTotal int64
	startedAt   time.Time
}

// New creates a machine. Initialize must be called before the first tick.
func New(cfg Config) *Machine {
	if cfg.Kernel == nil {
		cfg.Kernel = kernel.Source()
		if cfg.KernelName == "" {
			cfg.KernelName = kernel.Name
		}
	}
	if cfg.KernelName == "" {
		cfg.KernelName = "=kernel"
	}
	if cfg.Queue == nil {
		cfg.Queue = luamachine.NewBufferedQueue(0)
	}
	if cfg.Components == nil {
		cfg.Components = luamachine.NewRegistry()
	}
	return &Machine{
		cfg:        cfg,
		queue:      cfg.Queue,
		components: cfg.Components,
	}
}

// Initialize builds a fresh sandboxed VM, registers the API modules and
// loads the kernel coroutine. It reports false, with no partial state
// retained, if the kernel source is missing or malformed.
func (m *Machine) Initialize() bool {
	m.Close()

	eng, err := engine.New(m.cfg.Engine)
	if err != nil {
		engine.Logger().Error("engine creation failed", zap.Error(err))
		return false
	}

	apis := make([]engine.API, 0, 2+len(m.cfg.APIs))
	apis = append(apis, &computerAPI{m: m}, &componentAPI{m: m})
	apis = append(apis, m.cfg.APIs...)
	for _, api := range apis {
		if err := eng.RegisterAPI(api); err != nil {
			engine.Logger().Error("api registration failed",
				zap.String("api", api.Name()),
				zap.Error(err))
			eng.Close()
			return false
		}
	}

	co, err := eng.LoadKernel(m.cfg.KernelName, m.cfg.Kernel)
	if err != nil {
		engine.Logger().Error("kernel load failed", zap.Error(err))
		eng.Close()
		return false
	}

	m.eng = eng
	m.kernel = co
	m.startedAt = time.Now()
	m.RecomputeMemory()
	return true
}

// Close releases the VM instance and resets all transient state, making the
// machine reusable for a fresh Initialize.
func (m *Machine) Close() {
	if m.eng != nil {
		m.eng.Close()
		m.eng = nil
	}
	m.kernel = nil
	m.synchronizedCall = nil
	m.synchronizedResult = nil
	m.hasResult = false
	m.initialized = false
}

// RunThreaded performs exactly one resume of the kernel coroutine and
// returns the resulting scheduling outcome. The resume input is, in order of
// precedence: the pending synchronized-call result when isSynchronizedReturn
// is set, nothing for the one-time initializing resume, otherwise the next
// pending signal if any.
func (m *Machine) RunThreaded(isSynchronizedReturn bool) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			engine.Logger().Error("unexpected fault in kernel resume",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			out = Errored(kernelPanicMessage)
		}
	}()

	if m.kernel == nil {
		engine.Logger().Warn("tick on uninitialized machine")
		return Errored("machine is not initialized")
	}

	var args []lua.LValue
	isInit := false
	switch {
	case isSynchronizedReturn:
		args = m.synchronizedResult
		m.synchronizedResult = nil
		m.hasResult = false
	case !m.initialized:
		isInit = true
	default:
		if sig, ok := m.queue.Pop(); ok {
			args = make([]lua.LValue, 0, len(sig.Args)+1)
			args = append(args, lua.LString(sig.Name))
			args = append(args, sig.Args...)
		}
	}

	res, err := m.kernel.Resume(args...)
	if err != nil {
		// A fault escaping the kernel's own handlers is a defect in the
		// scheduler or bridge, not a script condition.
		engine.Logger().Error("kernel resume fault",
			zap.Bool("initialized", m.initialized),
			zap.Error(err))
		return Errored(kernelPanicMessage)
	}
	if isInit {
		// Only after the resume returned: a fault above must not be
		// misrouted to the signal-handling path on a later call.
		m.initialized = true
	}

	if res.Yielded {
		if isInit && len(res.Values) == 1 && res.Values[0] == lua.LTrue {
			// Boot acknowledgement: follow up on the next tick instead of
			// stalling until a signal arrives.
			return Sleep(0)
		}
		return m.decodeYield(res.Values)
	}
	return m.decodeReturn(res.Values)
}

// decodeYield maps a suspended kernel's yielded values to an outcome. The
// rule is order-sensitive on the pair (v1, v2); anything that is not exactly
// two values with a recognized second value waits for the next signal.
func (m *Machine) decodeYield(values []lua.LValue) Outcome {
	if len(values) == 2 {
		switch v := values[1].(type) {
		case *lua.LFunction:
			m.synchronizedCall = v
			return SynchronizedCall()
		case lua.LBool:
			return Shutdown(bool(v))
		case lua.LNumber:
			ticks := math.Round(float64(v) * TicksPerSecond)
			if ticks > SleepForever {
				ticks = SleepForever
			}
			return Sleep(int32(ticks))
		}
	}
	return Sleep(SleepForever)
}

// decodeReturn maps a terminated kernel's return values to an outcome. The
// expected shape is (status, detail); the kernel must never return
// successfully, so a true status is itself an anomaly.
func (m *Machine) decodeReturn(values []lua.LValue) Outcome {
	if len(values) > 0 && lua.LVAsBool(values[0]) {
		engine.Logger().Warn("kernel returned instead of yielding",
			zap.Int("values", len(values)))
		return Shutdown(false)
	}
	if len(values) > 1 {
		if s, ok := values[1].(lua.LString); ok {
			return Errored(string(s))
		}
	}
	return Errored("unknown error")
}

// RunSynchronized executes the pending synchronized call on the calling
// thread and stores its results for the next RunThreaded(true). Calling it
// without a pending call is a caller contract error.
func (m *Machine) RunSynchronized() error {
	fn := m.synchronizedCall
	if fn == nil {
		return errors.InvalidInput(errors.PhaseCall, "no pending synchronized call")
	}
	m.synchronizedCall = nil

	L := m.eng.State()
	base := L.GetTop()
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    lua.MultRet,
		Protect: true,
	}); err != nil {
		L.SetTop(base)
		return errors.Wrap(errors.PhaseCall, errors.KindUnknown, err, "synchronized call")
	}

	n := L.GetTop() - base
	results := make([]lua.LValue, 0, n)
	for i := base + 1; i <= base+n; i++ {
		results = append(results, L.Get(i))
	}
	L.SetTop(base)

	m.synchronizedResult = results
	m.hasResult = true
	return nil
}

// Save writes the boot address into the store, only if it has been set.
func (m *Machine) Save(store luamachine.Store) {
	if m.bootAddress != "" {
		store.Set(bootAddressKey, m.bootAddress)
	}
}

// Load restores the boot address from the store. If the owning machine is
// currently running, it forces a stop-then-start cycle so the reload
// produces a freshly initialized VM and coroutine consistent with the
// restored address.
func (m *Machine) Load(store luamachine.Store) {
	if v, ok := store.Get(bootAddressKey); ok {
		m.bootAddress = v
	}
	if m.cfg.Host != nil && m.cfg.Host.IsRunning() {
		m.cfg.Host.Stop()
		m.cfg.Host.Start()
	}
}

// BootAddress returns the persisted boot address; empty means unset.
func (m *Machine) BootAddress() string {
	return m.bootAddress
}

// SetBootAddress sets the address persisted by Save.
func (m *Machine) SetBootAddress(address string) {
	m.bootAddress = address
}

// RecomputeMemory rederives the memory budget from the component count.
func (m *Machine) RecomputeMemory() {
	m.memoryTotal = baseMemory + int64(m.components.Count())*memoryPerComponent
}

// TotalMemory returns the current memory budget in bytes.
func (m *Machine) TotalMemory() int64 {
	return m.memoryTotal
}
