package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/cache"
	"taskflow/internal/engine"
	"taskflow/internal/payload"
	"taskflow/internal/tferr"
)

func TestExecuteRejectsInvalidOutputShape(t *testing.T) {
	d := fn("T1", nil, func(map[string]any) (any, error) { return "not a fragment", nil })

	_, err := engine.Execute(context.Background(), d, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tferr.ErrInvalidOutput))
}

func TestExecuteWrapsBodyError(t *testing.T) {
	d := fn("T1", nil, func(map[string]any) (any, error) { return nil, errors.New("boom") })

	_, err := engine.Execute(context.Background(), d, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tferr.ErrWorkerFailure))
	assert.Contains(t, err.Error(), "boom")
}

func TestProbeIsNoopWithoutProvider(t *testing.T) {
	d := fn("T1", nil, constFrag(payload.Fragment{"a": 1}))

	frag, hit, err := engine.Probe(d, nil, nil)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, frag)
}

func TestStoreIsNoopWhenCacheDisabled(t *testing.T) {
	d := fn("T1", nil, constFrag(payload.Fragment{"a": 1}))
	d.WithCache(false)

	shared := cache.NewMemory()
	require.NoError(t, engine.Store(d, nil, payload.Fragment{"a": 1}, shared))

	_, hit, err := shared.Get(d.Fingerprint(), nil)
	require.NoError(t, err)
	assert.False(t, hit, "a cache-disabled task must never write an entry")
}

func TestInvokeRoundTripsEmptyFragment(t *testing.T) {
	d := fn("T1", nil, constFrag(nil))
	shared := cache.NewMemory()

	frag, hit, err := engine.Invoke(context.Background(), d, nil, shared)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, payload.Fragment{}, frag)

	frag2, hit2, err := engine.Invoke(context.Background(), d, nil, shared)
	require.NoError(t, err)
	assert.True(t, hit2, "an empty fragment must still be a cacheable result")
	assert.Equal(t, payload.Fragment{}, frag2)
}
