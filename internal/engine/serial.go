package engine

import (
	"context"

	"github.com/google/uuid"

	"taskflow/internal/cache"
	"taskflow/internal/logging"
	"taskflow/internal/payload"
	"taskflow/internal/task"
	"taskflow/internal/tferr"
)

// Serial is the single-threaded topological driver: the simplest correct
// baseline. It iterates tasks in the order supplied and trusts that order
// to already be a valid topological sort — it never reorders, which is
// what makes it easy to reason about and to use as the oracle
// merge-equivalence tests compare the parallel executor against.
type Serial struct {
	Cache  cache.Provider
	Logger logging.Logger
	Trace  Sink
}

// NewSerial returns a Serial executor. cache may be nil to disable
// memoization entirely; log and trace default to no-ops when zero-valued.
func NewSerial(c cache.Provider, log logging.Logger, trace Sink) *Serial {
	if trace == nil {
		trace = NopSink{}
	}
	return &Serial{Cache: c, Logger: log, Trace: trace}
}

// Run executes tasks in order, merging each fragment into the payload
// before looking at the next task. The task-provided order MUST already be
// topological: a task that declares a parameter no earlier task produced
// fails the run with missing-producer naming that parameter.
func (s *Serial) Run(ctx context.Context, tasks []task.Task) (payload.Payload, error) {
	p := payload.New()
	runID := uuid.NewString()

	for _, t := range tasks {
		params := t.Params()
		if missing, ok := firstMissing(params, p.Has); ok {
			err := tferr.MissingProducer(t.Name(), missing)
			SafeRecord(s.Trace, Event{Kind: EventFailed, Task: t.Name(), Err: err, RunID: runID})
			return nil, err
		}

		inputs := p.Select(params)
		frag, fromCache, err := Invoke(ctx, t, inputs, s.Cache)
		if err != nil {
			SafeRecord(s.Trace, Event{Kind: EventFailed, Task: t.Name(), Err: err, RunID: runID})
			return nil, err
		}
		if fromCache {
			SafeRecord(s.Trace, Event{Kind: EventCacheHit, Task: t.Name(), RunID: runID})
		} else {
			SafeRecord(s.Trace, Event{Kind: EventDispatched, Task: t.Name(), RunID: runID})
		}

		if err := p.Merge(t.Name(), frag); err != nil {
			SafeRecord(s.Trace, Event{Kind: EventFailed, Task: t.Name(), Err: err, RunID: runID})
			return nil, err
		}
		SafeRecord(s.Trace, Event{Kind: EventCompleted, Task: t.Name(), RunID: runID})
		s.Logger.Debug().Str("task", t.Name()).Str("run_id", runID).Bool("cache_hit", fromCache).Msg("task completed")
	}

	return p, nil
}
