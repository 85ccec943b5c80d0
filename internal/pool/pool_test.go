package pool_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/cache"
	"taskflow/internal/payload"
	"taskflow/internal/pool"
	"taskflow/internal/task"
)

func constTask(name string, params []string, frag payload.Fragment) *task.Declared {
	return task.NewDeclared(name, params, func(_ context.Context, _ map[string]any) (any, error) {
		return frag, nil
	})
}

func TestPoolRunLinear(t *testing.T) {
	tasks := []task.Task{
		constTask("T1", nil, payload.Fragment{"a": 1, "b": 2}),
		constTask("T2", []string{"a", "b"}, payload.Fragment{"c": 3}),
	}

	p, err := pool.New(tasks, pool.WithCache(cache.NewMemory()))
	require.NoError(t, err)
	defer p.Close()

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload.Payload{"a": 1, "b": 2, "c": 3}, result)
}

func TestPoolDeepCopiesDeclaredTasks(t *testing.T) {
	producer := constTask("Producer", nil, payload.Fragment{"a": 1})
	consumer := task.NewDeclared("Consumer", []string{"a"}, func(_ context.Context, in map[string]any) (any, error) {
		return payload.Fragment{"b": in["a"]}, nil
	})

	p, err := pool.New([]task.Task{producer, consumer}, pool.WithCache(cache.NewMemory()))
	require.NoError(t, err)
	defer p.Close()

	consumer.InputNames[0] = "mutated-after-construction"

	result, err := p.Run(context.Background())
	require.NoError(t, err, "the pool's own copy must still declare \"a\", unaffected by mutating the caller's original")
	assert.Equal(t, payload.Payload{"a": 1, "b": 1}, result)
}

func TestWithSerialExecutor(t *testing.T) {
	tasks := []task.Task{
		constTask("T1", nil, payload.Fragment{"a": 1}),
	}
	p, err := pool.New(tasks, pool.WithCache(cache.NewMemory()), pool.WithSerialExecutor())
	require.NoError(t, err)
	defer p.Close()

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payload.Payload{"a": 1}, result)
}

func TestWithSelfCheckPassesForHealthyProvider(t *testing.T) {
	_, err := pool.New(nil, pool.WithCache(cache.NewMemory()), pool.WithSelfCheck())
	assert.NoError(t, err)
}

func TestClearCacheRejectsNegativeRetain(t *testing.T) {
	p, err := pool.New(nil, pool.WithCache(cache.NewMemory()))
	require.NoError(t, err)
	defer p.Close()

	err = p.ClearCache(-1)
	assert.Error(t, err)
}
