package luamachine

import (
	lua "github.com/yuin/gopher-lua"
)

// Signal is a named event with positional arguments, delivered from the host
// to the kernel coroutine. At most one signal is consumed per tick.
type Signal struct {
	Name string
	Args []lua.LValue
}

// SignalQueue is the host-owned event queue the machine consumes from.
// Pop must not block: it returns the next pending signal, or false if the
// queue is empty.
type SignalQueue interface {
	Pop() (Signal, bool)
}

// SignalPusher is implemented by queues that accept signals from the script
// side (computer.pushSignal). Push returns false when the signal was dropped,
// e.g. because the queue is full.
type SignalPusher interface {
	Push(sig Signal) bool
}

// Component is a single device on the machine's bus. Invoke and Doc are
// called from the kernel coroutine via the callback bridge; errors they
// return are translated into script-visible values, never raised into the
// sandbox.
type Component interface {
	Address() string
	Type() string
	Invoke(method string, args []lua.LValue) ([]lua.LValue, error)
	Doc(method string) (string, error)
}

// ComponentRegistry is the machine's view of attached components. Count feeds
// the recomputed memory budget.
type ComponentRegistry interface {
	Get(address string) (Component, bool)
	List() []Component
	Count() int
}

// Host controls the power state of the machine owning the scheduler. Load
// uses it to force a stop-then-start cycle so a reload produces a freshly
// initialized VM and coroutine.
type Host interface {
	Start() bool
	Stop() bool
	IsRunning() bool
}

// Store is the persisted key-value state the machine saves its boot address
// into. Get reports whether the key was present.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}
