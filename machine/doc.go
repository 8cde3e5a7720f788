// Package machine implements the tick-driven control loop around the kernel
// coroutine: the scheduler, the callback invocation bridge and the
// lifecycle/persistence adapter.
//
// # Quick Start
//
//	m := machine.New(machine.Config{
//	    Queue:      queue,
//	    Components: registry,
//	})
//	if !m.Initialize() {
//	    log.Fatal("kernel failed to load")
//	}
//	defer m.Close()
//
//	for {
//	    switch out := m.RunThreaded(false); out.Kind {
//	    case machine.OutcomeSleep:
//	        wait(out.Ticks)
//	    case machine.OutcomeSynchronizedCall:
//	        m.RunSynchronized()        // on the host thread
//	        out = m.RunThreaded(true)  // feed the result back in
//	    case machine.OutcomeShutdown:
//	        ...
//	    case machine.OutcomeError:
//	        ...
//	    }
//	}
//
// # Tick protocol
//
// Every RunThreaded call performs exactly one resume of the kernel coroutine
// and produces exactly one Outcome. The resume input is one of: nothing (the
// very first, initializing resume), a delivered signal, or the result of a
// synchronized call. The outcome is decoded from what the coroutine yielded
// or returned; faults inside the resume mechanics themselves are caught at
// this boundary and reported as a generic kernel panic, never translated
// through the fault taxonomy.
//
// # Synchronized calls
//
// A kernel yield carrying a function asks the host to run that function on
// its own thread of control. The scheduler hands OutcomeSynchronizedCall back
// to the caller, the caller invokes RunSynchronized out-of-band, and the next
// RunThreaded(true) resumes the coroutine with the call's results. At most
// one synchronized call is outstanding at any time.
//
// # Concurrency
//
// One logical thread drives a Machine. RunThreaded is not safe for
// concurrent invocation on the same instance; callers must serialize ticks.
// RunSynchronized is the only method intended to run on a different thread,
// and only between a SynchronizedCall outcome and the following tick.
package machine
