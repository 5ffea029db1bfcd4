package vm

import (
	"errors"

	"github.com/dop251/goja"
)

// Fault is the normalized form of any sandbox failure: compilation error,
// runtime throw or timeout. Names come from a fixed taxonomy so that block
// hashes incorporating serialised faults stay stable under replay.
type Fault struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Fault names.
const (
	timeoutErrorName = "TimeoutError"
	syntaxErrorName  = "SyntaxError"
	genericErrorName = "Error"
)

// timeoutMessage is the fixed message of a quantum overrun.
const timeoutMessage = "execution timed out"

// Error implements the error interface.
func (f *Fault) Error() string {
	return f.Name + ": " + f.Message
}

// NewFault creates a generic fault with the given message.
func NewFault(message string) *Fault {
	return &Fault{Name: genericErrorName, Message: message}
}

// compileFault normalizes a goja compilation error.
func compileFault(err error) *Fault {
	return &Fault{Name: syntaxErrorName, Message: err.Error()}
}

// runtimeFault normalizes a goja runtime error. A stack overflow is a
// RangeError with a fixed message; thrown JS errors keep their own
// name/message pair; an interrupt that was caused by the watchdog is a
// timeout; everything else collapses into the generic name.
func runtimeFault(err error, timedOut bool) *Fault {
	var soErr *goja.StackOverflowError
	if errors.As(err, &soErr) {
		return &Fault{Name: "RangeError", Message: "maximum call stack size exceeded"}
	}
	var intErr *goja.InterruptedError
	if errors.As(err, &intErr) {
		if timedOut {
			return &Fault{Name: timeoutErrorName, Message: timeoutMessage}
		}
		return NewFault(timeoutMessage)
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return thrownFault(exc)
	}
	return NewFault(err.Error())
}

func thrownFault(exc *goja.Exception) *Fault {
	v := exc.Value()
	if v == nil {
		return NewFault(exc.Error())
	}
	if obj, ok := v.(*goja.Object); ok {
		name := obj.Get("name")
		msg := obj.Get("message")
		if name != nil && !goja.IsUndefined(name) && !goja.IsNull(name) {
			f := &Fault{Name: name.String()}
			if msg != nil && !goja.IsUndefined(msg) && !goja.IsNull(msg) {
				f.Message = msg.String()
			}
			return f
		}
	}
	return NewFault(v.String())
}
