// Package payload defines the shared data bus that flows through a single
// taskflow run: the accumulated Payload and the per-task Fragment each task
// contributes to it.
package payload

import (
	"fmt"
	"sort"

	"taskflow/internal/tferr"
)

// Payload is the append-only, string-keyed mapping that accumulates task
// outputs over the course of a run. Keys are never overwritten once set.
type Payload map[string]any

// New returns an empty Payload.
func New() Payload {
	return make(Payload)
}

// Has reports whether key has been produced yet.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Select builds the input mapping a task receives: the subset of p named by
// keys. The coordinator never hands a task the full accumulated payload,
// only the parameters it declared.
func (p Payload) Select(keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		out[k] = p[k]
	}
	return out
}

// Keys returns a sorted snapshot of the populated keys, useful for
// deterministic logging and tests.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy safe for a worker to read without racing the
// coordinator's later writes.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Fragment is a task's output contribution to a Payload; it may be empty
// and every key it carries is a string. Task bodies return arbitrary
// values, so ValidateFragment is what turns a raw return into a Fragment.
type Fragment map[string]any

// Merge appends fragment into p, producing taskflow's duplicate-output
// error if any key already exists. Merge is all-or-nothing: on error, p is
// left unmodified.
func (p Payload) Merge(taskName string, fragment Fragment) error {
	for k := range fragment {
		if p.Has(k) {
			return tferr.DuplicateOutput(taskName, k)
		}
	}
	for k, v := range fragment {
		p[k] = v
	}
	return nil
}

// ValidateFragment normalizes a raw task return value into a Fragment,
// failing with invalid-output if the value is neither nil nor a
// string-keyed mapping.
//
// Accepted shapes: nil, Fragment, map[string]any. Anything else (a slice, a
// scalar, a map with non-string keys) is rejected; a task that wants to
// return nothing should return nil or an empty map.
func ValidateFragment(taskName string, v any) (Fragment, error) {
	switch t := v.(type) {
	case nil:
		return Fragment{}, nil
	case Fragment:
		if t == nil {
			return Fragment{}, nil
		}
		return t, nil
	case map[string]any:
		if t == nil {
			return Fragment{}, nil
		}
		return Fragment(t), nil
	default:
		return nil, tferr.InvalidOutput(taskName, fmt.Sprintf("body returned %T, want nil or map[string]any", v))
	}
}
