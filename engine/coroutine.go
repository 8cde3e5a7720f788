package engine

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Coroutine state names as reported by Status.
const (
	StatusSuspended = "suspended"
	StatusDead      = "dead"
)

// Result is the observable outcome of one resume: either the coroutine
// yielded (suspended again) or it returned (terminated).
type Result struct {
	Values  []lua.LValue
	Yielded bool
}

// Coroutine is the single resumable kernel task of an engine. It wraps a
// gopher-lua thread behind an explicit resume(input) -> yielded|returned
// protocol so the scheduler never touches coroutine internals.
type Coroutine struct {
	owner  *lua.LState
	thread *lua.LState
	cancel context.CancelFunc
	fn     *lua.LFunction
	dead   bool
}

// Resume advances the coroutine with the given input values, blocking until
// it yields or returns. A non-nil error means the fault escaped the kernel's
// own handlers; the coroutine is dead afterwards.
func (c *Coroutine) Resume(args ...lua.LValue) (Result, error) {
	if c.dead {
		return Result{}, fmt.Errorf("cannot resume dead kernel coroutine")
	}

	state, err, values := c.owner.Resume(c.thread, c.fn, args...)
	switch state {
	case lua.ResumeYield:
		return Result{Values: values, Yielded: true}, nil
	case lua.ResumeOK:
		c.dead = true
		return Result{Values: values}, nil
	default:
		c.dead = true
		if err == nil {
			err = fmt.Errorf("kernel resume failed in state %v", state)
		}
		return Result{}, err
	}
}

// Status reports the coroutine's lifecycle state.
func (c *Coroutine) Status() string {
	if c.dead {
		return StatusDead
	}
	return c.owner.Status(c.thread)
}

// Dead reports whether the coroutine has terminated.
func (c *Coroutine) Dead() bool {
	return c.dead
}

func (c *Coroutine) release() {
	c.dead = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
