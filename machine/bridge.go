package machine

import (
	stderrors "errors"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wippyai/lua-machine/engine"
	"github.com/wippyai/lua-machine/errors"
)

// The callback invocation bridge. Every host API call made from the kernel
// coroutine routes through Invoke or Documentation; faults never propagate
// past this boundary into the sandbox. The translation table below is
// order-sensitive: categories overlap and first match wins.

// Invoke executes a host operation on behalf of the kernel and pushes the
// script-visible result onto L, returning the number of pushed values.
//
// Success pushes (true, value...). Faults are translated through the
// taxonomy:
//
//	limit backoff              -> nothing at all, silently
//	bad argument               -> (false, message | "bad argument")
//	missing capability         -> (false, "no such method")
//	index out of bounds        -> (false, "index out of bounds")
//	resource not found         -> (true, nil, "file not found")
//	permission denied          -> (true, nil, "access denied")
//	i/o fault                  -> (true, nil, "i/o error")
//	anything else              -> (true, nil, message | "unknown error")
//
// The leading boolean distinguishes the two script-level failure
// conventions: false means "operation failed, ordinary false return"; true
// with a nil value means "operation raised, message follows".
func Invoke(L *lua.LState, op func() ([]lua.LValue, error)) int {
	values, err := op()
	if err == nil {
		L.Push(lua.LTrue)
		for _, v := range values {
			L.Push(v)
		}
		return len(values) + 1
	}

	kind := errors.Classify(err)
	if kind == errors.KindLimitReached {
		// Backoff is signalled by the absence of any value. Not logged,
		// it is an expected flow-control condition.
		return 0
	}

	engine.Logger().Debug("host callback fault",
		zap.String("kind", string(kind)),
		zap.Error(err))

	switch kind {
	case errors.KindBadArgument:
		msg := faultMessage(err)
		if msg == "" {
			msg = "bad argument"
		}
		return pushFailed(L, msg)
	case errors.KindNoSuchMethod:
		return pushFailed(L, "no such method")
	case errors.KindOutOfBounds:
		return pushFailed(L, "index out of bounds")
	case errors.KindNotFound:
		return pushRaised(L, "file not found")
	case errors.KindAccessDenied:
		return pushRaised(L, "access denied")
	case errors.KindIO:
		return pushRaised(L, "i/o error")
	default:
		msg := faultMessage(err)
		if msg == "" {
			msg = "unknown error"
		}
		return pushRaised(L, msg)
	}
}

// Documentation executes an introspection operation and pushes its result.
// A missing-capability fault and an empty description both collapse to a
// single nil: "does not exist" and "has no documentation" are
// indistinguishable to the caller. Other faults push (nil, message).
func Documentation(L *lua.LState, op func() (string, error)) int {
	doc, err := op()
	if err != nil {
		if errors.Classify(err) == errors.KindNoSuchMethod {
			L.Push(lua.LNil)
			return 1
		}
		msg := faultMessage(err)
		if msg == "" {
			msg = err.Error()
		}
		L.Push(lua.LNil)
		L.Push(lua.LString(msg))
		return 2
	}
	if doc == "" {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(doc))
	return 1
}

func pushFailed(L *lua.LState, msg string) int {
	L.Push(lua.LFalse)
	L.Push(lua.LString(msg))
	return 2
}

func pushRaised(L *lua.LState, msg string) int {
	L.Push(lua.LTrue)
	L.Push(lua.LNil)
	L.Push(lua.LString(msg))
	return 3
}

func faultMessage(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}
