// Package luamachine defines the collaborator interfaces shared across the
// lua-machine packages.
//
// A machine is driven tick-by-tick by its host. Each tick the host calls
// machine.RunThreaded, which resumes the sandboxed kernel coroutine exactly
// once and returns an Outcome telling the host what to do next: sleep for a
// number of ticks, perform a synchronized call on the host thread, shut down
// or reboot, or crash.
//
// The interfaces in this package are the seams between the machine and its
// host simulation: signal delivery (SignalQueue), the component bus
// (ComponentRegistry), machine power control (Host) and persisted state
// (Store). Small in-memory implementations suitable for tests and the CLI
// live alongside the interfaces.
package luamachine
