package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad    Phase = "load"    // kernel compilation and sandbox setup
	PhaseResume  Phase = "resume"  // kernel coroutine resume mechanics
	PhaseCall    Phase = "call"    // host callback invocation
	PhasePersist Phase = "persist" // save/load plumbing
)

// Kind categorizes the fault. The first eight kinds form the closed taxonomy
// the callback bridge translates; order of translation is fixed by the bridge,
// not by declaration order here.
type Kind string

const (
	KindLimitReached Kind = "limit_reached"  // resource/limit backoff, silent
	KindBadArgument  Kind = "bad_argument"   // argument fault
	KindNoSuchMethod Kind = "no_such_method" // missing capability
	KindOutOfBounds  Kind = "out_of_bounds"  // index/bounds fault
	KindNotFound     Kind = "not_found"      // resource not found
	KindAccessDenied Kind = "access_denied"  // permission denied
	KindIO           Kind = "io"             // i/o fault
	KindUnknown      Kind = "unknown"        // everything else

	// KindInvalid marks caller contract violations inside the library itself.
	// It never crosses the bridge.
	KindInvalid Kind = "invalid"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Message returns the human-readable text the bridge forwards to scripts:
// the detail if present, otherwise the cause's text, otherwise empty.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common fault patterns

// LimitReached creates a resource/limit backoff fault. The bridge reports it
// to scripts as no value at all, silently.
func LimitReached() *Error {
	return &Error{Phase: PhaseCall, Kind: KindLimitReached}
}

// BadArgument creates an argument fault. detail may be empty, in which case
// the bridge substitutes "bad argument".
func BadArgument(detail string) *Error {
	return &Error{Phase: PhaseCall, Kind: KindBadArgument, Detail: detail}
}

// NoSuchMethod creates a missing-capability fault.
func NoSuchMethod(what string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNoSuchMethod,
		Detail: fmt.Sprintf("no such method %q", what),
	}
}

// OutOfBounds creates an index/bounds fault.
func OutOfBounds(index, length int) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
	}
}

// NotFound creates a resource-not-found fault.
func NotFound(what string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// AccessDenied creates a permission fault.
func AccessDenied(what string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindAccessDenied,
		Detail: fmt.Sprintf("access to %s denied", what),
	}
}

// IOFailed creates an i/o fault.
func IOFailed(cause error) *Error {
	return &Error{Phase: PhaseCall, Kind: KindIO, Cause: cause}
}

// Load creates a kernel loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalid,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidInput creates a caller contract violation error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalid,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Classify maps an arbitrary host error into the fault taxonomy,
// first-match-wins. Structured errors keep their own kind; well-known
// sentinel errors from the standard library map to the matching named kind;
// anything else is KindUnknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindInvalid {
			return KindUnknown
		}
		return e.Kind
	}
	if errors.Is(err, fs.ErrNotExist) {
		return KindNotFound
	}
	if errors.Is(err, fs.ErrPermission) {
		return KindAccessDenied
	}
	return KindUnknown
}
