package machine

import (
	"fmt"
	"math"
)

// TicksPerSecond is the host simulation rate: a kernel sleep of one second
// is worth this many ticks.
const TicksPerSecond = 20

// SleepForever asks the host to wait indefinitely for the next signal.
const SleepForever = math.MaxInt32

// OutcomeKind discriminates the scheduling outcome of one tick.
type OutcomeKind int

const (
	OutcomeSleep OutcomeKind = iota
	OutcomeSynchronizedCall
	OutcomeShutdown
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSleep:
		return "sleep"
	case OutcomeSynchronizedCall:
		return "synchronized_call"
	case OutcomeShutdown:
		return "shutdown"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the single tagged result RunThreaded produces each tick,
// directing the caller's next action.
type Outcome struct {
	Message string
	Ticks   int32
	Kind    OutcomeKind
	Reboot  bool
}

// Sleep directs the caller to wait the given number of ticks before the next
// RunThreaded call.
func Sleep(ticks int32) Outcome {
	if ticks < 0 {
		ticks = 0
	}
	return Outcome{Kind: OutcomeSleep, Ticks: ticks}
}

// SynchronizedCall directs the caller to run RunSynchronized out-of-band and
// then tick again with isSynchronizedReturn set.
func SynchronizedCall() Outcome {
	return Outcome{Kind: OutcomeSynchronizedCall}
}

// Shutdown directs the caller to power the machine down, or to reboot it.
func Shutdown(reboot bool) Outcome {
	return Outcome{Kind: OutcomeShutdown, Reboot: reboot}
}

// Errored reports the machine crashed with the given message.
func Errored(message string) Outcome {
	return Outcome{Kind: OutcomeError, Message: message}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSleep:
		if o.Ticks == SleepForever {
			return "sleep(forever)"
		}
		return fmt.Sprintf("sleep(%d)", o.Ticks)
	case OutcomeSynchronizedCall:
		return "synchronized call"
	case OutcomeShutdown:
		if o.Reboot {
			return "reboot"
		}
		return "shutdown"
	case OutcomeError:
		return "error: " + o.Message
	default:
		return o.Kind.String()
	}
}
