// Package errors wraps every error this module returns with a stack
// trace captured at the point of construction, so an integrity failure
// or an exhausted allocator can be diagnosed from a log line alone.
package errors

import (
	"fmt"
	"runtime"
)

type Error struct {
	Err   error
	Stack []byte
}

func Errorf(format string, args ...interface{}) error {
	buf := make([]byte, 50000)
	n := runtime.Stack(buf, false)
	trace := make([]byte, n)
	copy(trace, buf)
	return &Error{
		Err:   fmt.Errorf(format, args...),
		Stack: trace,
	}
}

// Wrap attaches a stack trace to an existing error, preserving it for
// errors.Is/errors.As.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	buf := make([]byte, 50000)
	n := runtime.Stack(buf, false)
	trace := make([]byte, n)
	copy(trace, buf)
	return &Error{
		Err:   err,
		Stack: trace,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s\n%s", e.Err, string(e.Stack))
}

func (e *Error) String() string {
	return e.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
