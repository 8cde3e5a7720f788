package engine

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func loadCoroutine(t *testing.T, source string) *Coroutine {
	t.Helper()
	eng := newEngine(t)
	co, err := eng.LoadKernel("=co", []byte(source))
	if err != nil {
		t.Fatalf("load kernel: %v", err)
	}
	return co
}

func TestCoroutine_YieldAndReturn(t *testing.T) {
	co := loadCoroutine(t, `
local a, b = coroutine.yield(1 + 1)
return a + b, "done"
`)

	res, err := co.Resume()
	if err != nil {
		t.Fatalf("first resume: %v", err)
	}
	if !res.Yielded {
		t.Fatal("first resume did not yield")
	}
	if len(res.Values) != 1 || res.Values[0] != lua.LNumber(2) {
		t.Fatalf("yield values = %v, want [2]", res.Values)
	}
	if co.Status() != StatusSuspended {
		t.Errorf("status = %q, want suspended", co.Status())
	}

	res, err = co.Resume(lua.LNumber(3), lua.LNumber(4))
	if err != nil {
		t.Fatalf("second resume: %v", err)
	}
	if res.Yielded {
		t.Fatal("second resume yielded, want return")
	}
	want := []lua.LValue{lua.LNumber(7), lua.LString("done")}
	if len(res.Values) != len(want) {
		t.Fatalf("return values = %v, want %v", res.Values, want)
	}
	for i := range want {
		if res.Values[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, res.Values[i], want[i])
		}
	}

	if !co.Dead() || co.Status() != StatusDead {
		t.Error("coroutine not dead after returning")
	}
}

func TestCoroutine_ResumeAfterDeath(t *testing.T) {
	co := loadCoroutine(t, `return true`)

	if _, err := co.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := co.Resume(); err == nil {
		t.Fatal("resuming a dead coroutine succeeded")
	}
}

func TestCoroutine_YieldUnderProtectedCallTerminates(t *testing.T) {
	// The interpreter cannot suspend a coroutine across a protected-call
	// boundary: a yield under pcall behaves like a return, not a suspension.
	// Kernels must keep their yields outside pcall; this pins the behavior
	// the default kernel is shaped around.
	co := loadCoroutine(t, `
pcall(function() coroutine.yield(true) end)
return false, "unreachable after a protected yield"
`)

	res, err := co.Resume()
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if res.Yielded {
		t.Fatal("yield under pcall suspended the coroutine, want termination")
	}
	if len(res.Values) != 1 || res.Values[0] != lua.LTrue {
		t.Fatalf("return values = %v, want [true]", res.Values)
	}
	if !co.Dead() {
		t.Error("coroutine not dead after the protected yield")
	}
}

func TestCoroutine_RuntimeFault(t *testing.T) {
	co := loadCoroutine(t, `
coroutine.yield()
error("blown")
`)

	if _, err := co.Resume(); err != nil {
		t.Fatalf("first resume: %v", err)
	}
	if _, err := co.Resume(); err == nil {
		t.Fatal("fault did not surface from resume")
	}
	if !co.Dead() {
		t.Error("coroutine not dead after a fault")
	}
}
