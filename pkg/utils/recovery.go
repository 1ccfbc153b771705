package utils

import (
	"fmt"
	"runtime/debug"
)

// PanicError carries a recovered panic value and its stack as an error, so
// batch workers can attach a crash to one item's result instead of taking
// down the whole run.
type PanicError struct {
	Value      interface{}
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// RecoverAsError converts a panic into an error on the deferred path.
//
//	func work() (err error) {
//	    defer utils.RecoverAsError(&err)
//	    ...
//	}
func RecoverAsError(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = &PanicError{Value: r, StackTrace: string(debug.Stack())}
	}
}
