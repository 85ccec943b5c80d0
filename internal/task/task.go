// Package task defines the plug-in surface the engine schedules: a named
// unit of work with declared input parameters, a body, and a cache policy.
package task

import (
	"context"
	"fmt"
	"reflect"
	"runtime"

	"taskflow/internal/payload"
)

// Body is the user-supplied computation. It receives the subset of the
// payload the task declared as its parameters and returns its raw result,
// which the engine validates into a fragment afterward — the body is free
// to return nil, a map[string]any, or (by mistake) anything else, and the
// engine is responsible for catching the last case as invalid-output rather
// than trusting the signature to rule it out.
type Body func(ctx context.Context, inputs map[string]any) (any, error)

// Task is the contract the engine schedules against. Implementations must
// be cheap and idempotent when reporting Params and Fingerprint; Execute is
// the only operation permitted to do real work.
type Task interface {
	// Name identifies the task for error messages and trace events. Names
	// must be unique within one run: the parallel executor tracks each
	// task's state by name.
	Name() string

	// Params returns the ordered list of payload keys this task consumes.
	Params() []string

	// Execute synchronously runs the body against inputs and returns its
	// raw, not-yet-validated result.
	Execute(ctx context.Context, inputs map[string]any) (any, error)

	// CacheEnabled reports whether the execution wrapper should consult
	// the cache for this task at all.
	CacheEnabled() bool

	// Fingerprint returns a stable identity for the task body, used as
	// half of the cache key. Only required to be meaningful when
	// CacheEnabled reports true.
	Fingerprint() string
}

// Declared is the reference Task implementation: every field is supplied
// explicitly by the caller rather than discovered via reflection, per the
// "explicit declaration" option for parameter-name introspection.
//
// ID, when set, is the task's fingerprint and is stable across process
// restarts, which matters for a persistent cache provider. When ID is
// empty, Fingerprint falls back to the body function's name and source
// position (file and line), or to its raw code pointer when the runtime
// cannot name it. The name-and-position form is the same in every process
// run from one build, but it changes whenever the body is renamed or moved
// in its file, and it does not change when the body's code is edited in
// place; every closure created from the same function literal shares it.
type Declared struct {
	// ID is the optional explicit fingerprint. Prefer setting this for any
	// task that must participate in a cache surviving process restarts.
	ID string

	// TaskName is returned by Name.
	TaskName string

	// InputNames is returned by Params, in declaration order.
	InputNames []string

	// Run is the task body.
	Run Body

	// Cacheable defaults to true; the zero value of Declared therefore
	// enables caching without the caller having to opt in.
	Cacheable *bool
}

// NewDeclared builds a Declared task with caching enabled by default.
func NewDeclared(name string, params []string, body Body) *Declared {
	return &Declared{TaskName: name, InputNames: params, Run: body}
}

// WithID sets an explicit, restart-stable fingerprint and returns the
// receiver for chaining.
func (d *Declared) WithID(id string) *Declared {
	d.ID = id
	return d
}

// WithCache toggles the cache-enabled flag and returns the receiver for
// chaining.
func (d *Declared) WithCache(enabled bool) *Declared {
	d.Cacheable = &enabled
	return d
}

func (d *Declared) Name() string { return d.TaskName }

func (d *Declared) Params() []string {
	out := make([]string, len(d.InputNames))
	copy(out, d.InputNames)
	return out
}

func (d *Declared) Execute(ctx context.Context, inputs map[string]any) (any, error) {
	if d.Run == nil {
		return payload.Fragment{}, nil
	}
	return d.Run(ctx, inputs)
}

func (d *Declared) CacheEnabled() bool {
	if d.Cacheable == nil {
		return true
	}
	return *d.Cacheable
}

func (d *Declared) Fingerprint() string {
	if d.ID != "" {
		return d.ID
	}
	if d.Run == nil {
		return "nil-body:" + d.TaskName
	}
	ptr := reflect.ValueOf(d.Run).Pointer()
	if fn := runtime.FuncForPC(ptr); fn != nil {
		file, line := fn.FileLine(ptr)
		return fmt.Sprintf("func:%s@%s:%d", fn.Name(), file, line)
	}
	return fmt.Sprintf("func:%#x", ptr)
}

// Clone returns a value copy suitable for Pool's defensive deep-copy: the
// slice backing InputNames is copied so the caller's original task cannot
// be mutated through the clone.
func (d *Declared) Clone() *Declared {
	clone := *d
	clone.InputNames = d.Params()
	return &clone
}
