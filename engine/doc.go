// Package engine wraps the gopher-lua interpreter behind the small surface
// the machine scheduler needs: a sandboxed state, registered API modules and
// a single resumable kernel coroutine.
//
// # Sandbox
//
// New builds an LState with SkipOpenLibs and opens only the base, table,
// string, math and coroutine libraries. File and interop escape hatches
// (io, os, debug, dofile, loadfile, require, module) are never opened or are
// scrubbed after opening. The only way for a script to reach the host is
// through the API modules registered before the kernel is loaded.
//
// # Kernel coroutine
//
// LoadKernel compiles the kernel chunk and wraps it in a Coroutine, an
// explicit resumable task object:
//
//	co, err := eng.LoadKernel("machine", source)
//	res, err := co.Resume(args...)   // res.Yielded or a final return
//
// Exactly one kernel coroutine exists per engine. The scheduler in the
// machine package owns the resume protocol; this package only provides the
// mechanics.
package engine
