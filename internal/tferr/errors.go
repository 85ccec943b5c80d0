// Package tferr defines the error taxonomy surfaced across taskflow's
// engine, cache, and pool layers.
//
// Every fatal condition the engine can raise is one of a small, closed set
// of kinds. Callers distinguish them with errors.Is against the exported
// sentinels; callers that need the offending task or parameter name use
// errors.As against *Error.
package tferr

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingProducer means a task declares a parameter that no task in
	// the pool produces.
	ErrMissingProducer = errors.New("missing producer")

	// ErrDuplicateOutput means two tasks produced the same output key, or a
	// task produced a key already present in the payload.
	ErrDuplicateOutput = errors.New("duplicate output")

	// ErrInvalidOutput means a task body returned a value that is neither
	// empty nor a mapping with string keys.
	ErrInvalidOutput = errors.New("invalid output")

	// ErrBadArgument means the caller passed an invalid argument, such as a
	// negative retain count to Clear.
	ErrBadArgument = errors.New("bad argument")

	// ErrWorkerFailure means a worker reported a panic or error while
	// running a task body.
	ErrWorkerFailure = errors.New("worker failure")

	// ErrCacheBackend means the cache provider reported an I/O or schema
	// error.
	ErrCacheBackend = errors.New("cache backend failure")
)

// Error wraps a taxonomy sentinel with the task/parameter context that
// identifies where it occurred.
type Error struct {
	Kind  error
	Task  string
	Param string
	Msg   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Task != "" && e.Param != "":
		return fmt.Sprintf("%s: task %q, parameter %q: %s", e.Kind, e.Task, e.Param, e.Msg)
	case e.Task != "":
		return fmt.Sprintf("%s: task %q: %s", e.Kind, e.Task, e.Msg)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// MissingProducer reports that taskName declares paramName but no task in
// the pool produces it.
func MissingProducer(taskName, paramName string) error {
	return &Error{Kind: ErrMissingProducer, Task: taskName, Param: paramName}
}

// DuplicateOutput reports that taskName attempted to produce key, which was
// already present in the payload (possibly from another task).
func DuplicateOutput(taskName, key string) error {
	return &Error{Kind: ErrDuplicateOutput, Task: taskName, Param: key}
}

// InvalidOutput reports that taskName's body returned a shape other than
// empty or a string-keyed mapping.
func InvalidOutput(taskName string, msg string) error {
	return &Error{Kind: ErrInvalidOutput, Task: taskName, Msg: msg}
}

// BadArgument reports an invalid caller-supplied argument.
func BadArgument(msg string) error {
	return &Error{Kind: ErrBadArgument, Msg: msg}
}

// WorkerFailure reports that taskName's body panicked or returned an error
// while running on a worker.
func WorkerFailure(taskName string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: ErrWorkerFailure, Task: taskName, Msg: msg}
}

// CacheBackend reports an I/O or schema failure from a cache provider.
func CacheBackend(msg string) error {
	return &Error{Kind: ErrCacheBackend, Msg: msg}
}
