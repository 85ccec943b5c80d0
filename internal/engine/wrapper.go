package engine

import (
	"context"

	"taskflow/internal/cache"
	"taskflow/internal/payload"
	"taskflow/internal/task"
	"taskflow/internal/tferr"
)

// Probe checks the cache for t without ever invoking its body. Both
// executors use this directly: the serial executor inline in Invoke, the
// parallel coordinator during its ready-scan, so that a chain of cache hits
// cascades without occupying a worker.
func Probe(t task.Task, inputs map[string]any, provider cache.Provider) (frag payload.Fragment, hit bool, err error) {
	if !t.CacheEnabled() || provider == nil {
		return nil, false, nil
	}
	frag, hit, err = provider.Get(t.Fingerprint(), inputs)
	if err != nil {
		return nil, false, tferr.CacheBackend(err.Error())
	}
	return frag, hit, nil
}

// Execute runs t's body and validates its shape, with no cache
// interaction. This is the only function a worker goroutine calls: workers
// never touch the cache, only the coordinator does.
func Execute(ctx context.Context, t task.Task, inputs map[string]any) (payload.Fragment, error) {
	raw, err := t.Execute(ctx, inputs)
	if err != nil {
		return nil, tferr.WorkerFailure(t.Name(), err)
	}
	return payload.ValidateFragment(t.Name(), raw)
}

// Store writes fragment to the cache under (t's fingerprint, inputs), using
// the inputs that were actually used for the run rather than any later
// payload state. A no-op when caching is disabled or unbound.
func Store(t task.Task, inputs map[string]any, fragment payload.Fragment, provider cache.Provider) error {
	if !t.CacheEnabled() || provider == nil {
		return nil
	}
	if err := provider.Set(t.Fingerprint(), inputs, fragment); err != nil {
		return tferr.CacheBackend(err.Error())
	}
	return nil
}

// Invoke is the execution wrapper used by the serial executor: probe, and
// on a miss, execute then store. On a hit the body's side effects are
// skipped entirely, which is the intended memoization contract.
func Invoke(ctx context.Context, t task.Task, inputs map[string]any, provider cache.Provider) (fragment payload.Fragment, fromCache bool, err error) {
	if frag, hit, err := Probe(t, inputs, provider); err != nil {
		return nil, false, err
	} else if hit {
		return frag, true, nil
	}

	frag, err := Execute(ctx, t, inputs)
	if err != nil {
		return nil, false, err
	}
	if err := Store(t, inputs, frag, provider); err != nil {
		return nil, false, err
	}
	return frag, false, nil
}
