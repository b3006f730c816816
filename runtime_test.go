package concrt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeSpawnCooperative(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	future := rt.Spawn(func() (any, error) { return 42, nil })
	ctx, cancel := WithTimeout(Background(), time.Second)
	defer cancel()

	v, err := future.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRuntimeSpawnCooperativeError(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	boom := errors.New("boom")
	future := rt.Spawn(func() (any, error) { return nil, boom })
	ctx, cancel := WithTimeout(Background(), time.Second)
	defer cancel()

	_, err = future.Wait(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestRuntimeSpawnAllJoins(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	fns := []func() (any, error){
		func() (any, error) { return 1, nil },
		func() (any, error) { return 2, nil },
		func() (any, error) { return 3, nil },
	}
	future := rt.SpawnAll(fns)
	ctx, cancel := WithTimeout(Background(), time.Second)
	defer cancel()

	vs, err := future.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, vs)
}

func TestRuntimeSpawnAllAggregatesErrors(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	fns := []func() (any, error){
		func() (any, error) { return nil, errors.New("a") },
		func() (any, error) { return nil, errors.New("b") },
		func() (any, error) { return 3, nil },
	}
	future := rt.SpawnAll(fns)
	ctx, cancel := WithTimeout(Background(), time.Second)
	defer cancel()

	_, err = future.Wait(ctx)
	require.Error(t, err)
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 2)
}

func TestRuntimeParallelLifecycle(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.InitializeParallel(ParallelConfig{ThreadCount: 2}))
	assert.ErrorIs(t, rt.InitializeParallel(ParallelConfig{ThreadCount: 2}), ErrParallelAlreadyInitialized)

	future := rt.Spawn(func() (any, error) { return "done", nil }, &SpawnOptions{Parallel: true})
	ctx, cancel := WithTimeout(Background(), time.Second)
	defer cancel()
	v, err := future.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	require.NoError(t, rt.ShutdownParallel(Background()))
	assert.ErrorIs(t, rt.ShutdownParallel(Background()), ErrParallelNotInitialized)
}

func TestRuntimeSpawnParallelWithoutInit(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	future := rt.Spawn(func() (any, error) { return nil, nil }, &SpawnOptions{Parallel: true})
	ctx, cancel := WithTimeout(Background(), time.Second)
	defer cancel()
	_, err = future.Wait(ctx)
	assert.ErrorIs(t, err, ErrParallelNotInitialized)
}

func TestRuntimeFunctionRegistry(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	require.NoError(t, rt.RegisterFunction("double", func(n int) int { return n * 2 }))
	fn, ok := rt.LookupFunction("double")
	require.True(t, ok)
	double := fn.(func(int) int)
	assert.Equal(t, 4, double(2))

	_, ok = rt.LookupFunction("missing")
	assert.False(t, ok)
}

func TestRuntimeTaskObservesContextTimeout(t *testing.T) {
	// A spawned task polling ctx.Err() returns once the deadline fires,
	// well before its worst-case loop duration.
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	ctx, cancel := WithTimeout(Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	future := rt.Spawn(func() (any, error) {
		for i := 0; i < 10; i++ {
			Sleep(50 * time.Millisecond)
			if ctx.Err() != nil {
				return i, nil
			}
		}
		return -1, nil
	})

	waitCtx, waitCancel := WithTimeout(Background(), 5*time.Second)
	defer waitCancel()
	v, err := future.Wait(waitCtx)
	require.NoError(t, err)
	assert.NotEqual(t, -1, v)
	assert.Less(t, time.Since(start), 600*time.Millisecond)
	assert.ErrorIs(t, ctx.Err(), ErrContextTimeout)
}

func TestRuntimeSpawnWithTimeout(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	defer rt.Close()

	waitCtx, waitCancel := WithTimeout(Background(), 5*time.Second)
	defer waitCancel()

	future := rt.SpawnWithTimeout(func(ctx context.Context) (any, error) {
		return "fast", nil
	}, time.Second)
	v, err := future.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, "fast", v)

	future = rt.SpawnWithTimeout(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, 30*time.Millisecond)
	_, err = future.Wait(waitCtx)
	assert.Error(t, err)
}

func TestRuntimeCloseRejectsFurtherSpawns(t *testing.T) {
	rt, err := NewRuntime()
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	future := rt.Spawn(func() (any, error) { return nil, nil })
	ctx, cancel := WithTimeout(Background(), time.Second)
	defer cancel()
	_, err = future.Wait(ctx)
	assert.ErrorIs(t, err, ErrRuntimeClosed)
}
