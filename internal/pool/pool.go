// Package pool implements the public façade: it owns the task list, binds
// a cache provider and an executor, and exposes a single Run operation.
package pool

import (
	"context"
	"runtime"

	"taskflow/internal/cache"
	"taskflow/internal/engine"
	"taskflow/internal/logging"
	"taskflow/internal/payload"
	"taskflow/internal/task"
	"taskflow/internal/tferr"
)

const defaultCachePath = "cache.db"

// executor is the interface both engine.Serial and engine.Parallel satisfy.
type executor interface {
	Run(ctx context.Context, tasks []task.Task) (payload.Payload, error)
}

// Pool is the engine's public entry point. Construct one with New, then
// call Run.
type Pool struct {
	tasks    []task.Task
	provider cache.Provider
	ownCache bool
	exec     executor
	logger   logging.Logger
	trace    engine.Sink
}

// Option configures a Pool at construction time.
type Option func(*config)

type config struct {
	provider  cache.Provider
	serial    bool
	workers   int
	logger    *logging.Logger
	trace     engine.Sink
	selfCheck bool
}

// WithCache binds an explicit cache provider, overriding the default
// persistent-table provider at cache.db.
func WithCache(p cache.Provider) Option {
	return func(c *config) { c.provider = p }
}

// WithSerialExecutor selects the single-threaded serial driver instead of
// the default parallel driver.
func WithSerialExecutor() Option {
	return func(c *config) { c.serial = true }
}

// WithWorkers sets the parallel executor's worker count. Ignored when
// WithSerialExecutor is also given. <= 0 means host parallelism.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLogger opts into diagnostic logging through the given channel.
// Without this option the pool logs nothing, per the engine's opt-in
// logging contract.
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = &l }
}

// WithTrace binds a dispatch-event sink, such as an engine.Recorder.
func WithTrace(sink engine.Sink) Option {
	return func(c *config) { c.trace = sink }
}

// WithSelfCheck runs the bound cache provider's self-check smoke test at
// construction time, failing New if it doesn't round-trip.
func WithSelfCheck() Option {
	return func(c *config) { c.selfCheck = true }
}

// New builds a Pool over tasks. The task list is defensively copied: any
// *task.Declared is cloned so later mutation of the caller's original has
// no effect on the pool, matching the deep-copy-at-construction contract.
// Task implementations that aren't *task.Declared are taken by reference,
// since there is no generic way to clone an arbitrary closure-backed type;
// callers supplying their own Task implementation are responsible for its
// immutability after constructing the pool.
func New(tasks []task.Task, opts ...Option) (*Pool, error) {
	cfg := config{workers: 0}
	for _, opt := range opts {
		opt(&cfg)
	}

	copied := make([]task.Task, len(tasks))
	for i, t := range tasks {
		copied[i] = cloneTask(t)
	}

	p := &Pool{tasks: copied}

	if cfg.provider != nil {
		p.provider = cfg.provider
	} else {
		sq, err := cache.OpenSQLite(defaultCachePath)
		if err != nil {
			return nil, err
		}
		p.provider = sq
		p.ownCache = true
	}

	if cfg.logger != nil {
		p.logger = *cfg.logger
	} else {
		p.logger = logging.Disabled()
	}

	if cfg.trace != nil {
		p.trace = cfg.trace
	} else {
		p.trace = engine.NopSink{}
	}

	if cfg.selfCheck {
		if err := p.provider.SelfCheck(); err != nil {
			return nil, err
		}
	}

	if cfg.serial {
		p.exec = engine.NewSerial(p.provider, p.logger, p.trace)
	} else {
		workers := cfg.workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		p.exec = engine.NewParallel(p.provider, p.logger, p.trace, workers)
	}

	return p, nil
}

// cloneTask deep-copies a *task.Declared and passes through any other Task
// implementation unchanged.
func cloneTask(t task.Task) task.Task {
	if d, ok := t.(*task.Declared); ok {
		return d.Clone()
	}
	return t
}

// Run executes the pool's tasks to completion via its bound executor and
// returns the final payload. The cache provider's lifecycle is scoped to
// the pool, not to a single Run call: callers that want to release it
// explicitly should call Close.
func (p *Pool) Run(ctx context.Context) (payload.Payload, error) {
	if len(p.tasks) == 0 {
		return payload.New(), nil
	}
	return p.exec.Run(ctx, p.tasks)
}

// Close releases the pool's cache provider if the pool opened it itself
// (the default sqlite provider); a caller-supplied provider via WithCache
// is left open for the caller to manage.
func (p *Pool) Close() error {
	if p.ownCache && p.provider != nil {
		return p.provider.Close()
	}
	return nil
}

// ClearCache proxies to the bound provider's Clear, surfacing bad-argument
// for a negative retain count before the provider ever sees it.
func (p *Pool) ClearCache(retain int) error {
	if retain < 0 {
		return tferr.BadArgument("retain must be >= 0")
	}
	return p.provider.Clear(retain)
}
