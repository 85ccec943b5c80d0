package engine

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"taskflow/internal/cache"
	"taskflow/internal/logging"
	"taskflow/internal/payload"
	"taskflow/internal/task"
	"taskflow/internal/tferr"
)

// Parallel is the multi-worker scheduler: a fixed-size pool of worker
// goroutines dispatches ready tasks, harvests completions, and
// re-evaluates readiness as the payload grows.
//
// Isolation. The reference this engine is adapted from isolates workers at
// the OS-process level (spawned, not forked) so a crashing task body cannot
// corrupt a sibling's state. A Go task body is an in-process closure, not a
// picklable object that can be relocated across an address-space boundary
// without a bespoke RPC layer — so Parallel isolates at the goroutine level
// instead, recovering any panic a task body raises and surfacing it as a
// worker-failure exactly as if the body had returned that error normally.
// This keeps the coordinator's own state safe from a single task's crash,
// which is the property the isolation requirement exists to protect;
// Parallel does not protect against a task corrupting shared memory it
// reaches through a closure, which only true address-space isolation can
// do, and which this package does not attempt. Callers whose task bodies
// may corrupt process-global state should run Serial instead, or wrap
// bodies that must be OS-isolated behind their own subprocess call.
type Parallel struct {
	Cache   cache.Provider
	Logger  logging.Logger
	Trace   Sink
	Workers int
}

// NewParallel returns a Parallel executor with workers worker goroutines.
// workers <= 0 defaults to runtime.GOMAXPROCS(0), matching "host
// parallelism" as the default pool size.
func NewParallel(c cache.Provider, log logging.Logger, trace Sink, workers int) *Parallel {
	if trace == nil {
		trace = NopSink{}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Parallel{Cache: c, Logger: log, Trace: trace, Workers: workers}
}

type workItem struct {
	t      task.Task
	inputs map[string]any
}

type workResult struct {
	t       task.Task
	inputs  map[string]any
	frag    payload.Fragment
	err     error
}

// Run executes tasks with maximum parallelism subject to data dependencies.
// The worker pool is scoped to this call: it is created on entry and torn
// down on every exit path, including errors, before Run returns.
func (p *Parallel) Run(parentCtx context.Context, tasks []task.Task) (payload.Payload, error) {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	runID := uuid.NewString()
	pl := payload.New()
	status := make(map[string]State, len(tasks))
	for _, t := range tasks {
		status[t.Name()] = NotStarted
	}

	sem := semaphore.NewWeighted(int64(p.Workers))
	// Buffered for every task so a worker can always hand off its result,
	// even after the coordinator has stopped reading on an early error.
	resultCh := make(chan workResult, len(tasks))
	var g errgroup.Group
	inflight := 0

	// runWorker acquires a slot, executes one task body in its own
	// goroutine with panic recovery, and reports the outcome back to the
	// coordinator. The coordinator never sends the accumulated payload —
	// only the input subset the task declared. It always returns a nil
	// error to the errgroup: failures travel over resultCh, where the
	// coordinator has the context (task name, inputs) to report them.
	runWorker := func(item workItem) error {
		if err := sem.Acquire(ctx, 1); err != nil {
			resultCh <- workResult{t: item.t, inputs: item.inputs, err: tferr.WorkerFailure(item.t.Name(), err)}
			return nil
		}
		defer sem.Release(1)

		frag, err := runIsolated(ctx, item.t, item.inputs)
		resultCh <- workResult{t: item.t, inputs: item.inputs, frag: frag, err: err}
		return nil
	}

	dispatch := func(item workItem) {
		inflight++
		status[item.t.Name()] = Running
		SafeRecord(p.Trace, Event{Kind: EventDispatched, Task: item.t.Name(), RunID: runID})
		g.Go(func() error { return runWorker(item) })
	}

	defer func() {
		cancel()
		_ = g.Wait()
	}()

	for {
		progressed, failErr := p.cascadeReady(pl, tasks, status, dispatch, runID)
		if failErr != nil {
			return nil, failErr
		}

		if inflight == 0 {
			if !progressed {
				break
			}
			continue
		}

		res := <-resultCh
		inflight--

		if res.err != nil {
			SafeRecord(p.Trace, Event{Kind: EventFailed, Task: res.t.Name(), Err: res.err, RunID: runID})
			return nil, res.err
		}

		if err := Store(res.t, res.inputs, res.frag, p.Cache); err != nil {
			SafeRecord(p.Trace, Event{Kind: EventFailed, Task: res.t.Name(), Err: err, RunID: runID})
			return nil, err
		}
		if err := pl.Merge(res.t.Name(), res.frag); err != nil {
			SafeRecord(p.Trace, Event{Kind: EventFailed, Task: res.t.Name(), Err: err, RunID: runID})
			return nil, err
		}
		if err := transition(status, res.t.Name(), Running, Done); err != nil {
			return nil, fmt.Errorf("internal scheduling error: %w", err)
		}
		SafeRecord(p.Trace, Event{Kind: EventCompleted, Task: res.t.Name(), RunID: runID})
		p.Logger.Debug().Str("task", res.t.Name()).Str("run_id", runID).Msg("task completed")
	}

	return p.checkTermination(pl, tasks, status)
}

// cascadeReady scans every NotStarted task once, resolving cache hits
// immediately (without occupying a worker) and dispatching cache misses to
// the worker pool, then repeats the scan as long as a hit just unblocked
// further tasks. It returns whether any task was resolved or dispatched in
// this call.
func (p *Parallel) cascadeReady(pl payload.Payload, tasks []task.Task, status map[string]State, dispatch func(workItem), runID string) (bool, error) {
	anyProgress := false
	for {
		cascaded := false
		for _, t := range sortedNotStarted(tasks, status) {
			params := t.Params()
			if !ready(params, pl.Has) {
				continue
			}

			inputs := pl.Select(params)
			frag, hit, err := Probe(t, inputs, p.Cache)
			if err != nil {
				return anyProgress, err
			}
			if !hit {
				dispatch(workItem{t: t, inputs: inputs})
				anyProgress = true
				continue
			}

			if err := pl.Merge(t.Name(), frag); err != nil {
				return anyProgress, err
			}
			if err := transition(status, t.Name(), NotStarted, Done); err != nil {
				return anyProgress, fmt.Errorf("internal scheduling error: %w", err)
			}
			SafeRecord(p.Trace, Event{Kind: EventCacheHit, Task: t.Name(), RunID: runID})
			cascaded = true
			anyProgress = true
		}
		if !cascaded {
			return anyProgress, nil
		}
	}
}

// checkTermination fails with missing-producer naming the first unresolved
// parameter of the first remaining NotStarted task, or returns the final
// payload if every task reached Done.
func (p *Parallel) checkTermination(pl payload.Payload, tasks []task.Task, status map[string]State) (payload.Payload, error) {
	for _, t := range tasks {
		if status[t.Name()] != NotStarted {
			continue
		}
		missing, _ := firstMissing(t.Params(), pl.Has)
		return nil, tferr.MissingProducer(t.Name(), missing)
	}
	return pl, nil
}

// sortedNotStarted returns NotStarted tasks in pool order, which is the
// same determinism discipline the serial executor relies on for its scan.
func sortedNotStarted(tasks []task.Task, status map[string]State) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if status[t.Name()] == NotStarted {
			out = append(out, t)
		}
	}
	return out
}

// runIsolated executes t's body with panic recovery, the goroutine-level
// substitute for the subprocess isolation described on Parallel.
func runIsolated(ctx context.Context, t task.Task, inputs map[string]any) (frag payload.Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = tferr.WorkerFailure(t.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	return Execute(ctx, t, inputs)
}
