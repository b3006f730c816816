package concrt

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternRegistryPublicSurface(t *testing.T) {
	reg := NewPatternRegistry()
	p := NewPattern(PatternConfig{Name: "ingest"})
	require.NoError(t, reg.Register(p))
	require.NoError(t, p.Start())
	assert.Equal(t, HealthHealthy, reg.HealthStatus())

	require.NoError(t, p.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, int64(1), reg.GlobalMetrics().Total)
}

func TestWorkerPoolPublicSurface(t *testing.T) {
	var seq atomic.Int32
	hooks := WorkerPoolHooks{
		CreateWorker:  func() (WorkerID, error) { return WorkerID(fmt.Sprintf("w%d", seq.Add(1))), nil },
		DestroyWorker: func(WorkerID) error { return nil },
		ExecuteTask: func(ctx context.Context, _ WorkerID, item WorkItem) (any, error) {
			return item.Fn(ctx)
		},
	}

	pool, err := NewWorkerPool(WorkerPoolConfig{
		MinWorkers:   2,
		MaxWorkers:   4,
		LoadBalancer: NewLeastLoadedBalancer(),
	}, hooks, nil)
	require.NoError(t, err)
	defer pool.Close()

	// The Events surface accepts the public listener alias; lifecycle
	// dispatch itself is covered by the internal pool tests.
	var calls atomic.Int32
	pool.Events.AddEventListener(EventWorkerDestroyed, PoolEventListener(func(*PoolEvent) {
		calls.Add(1)
	}))

	v, err := pool.Submit(context.Background(), WorkItem{
		ID: "double", Priority: 5,
		Fn: func(context.Context) (any, error) { return 12, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 12, v)
	assert.Equal(t, 2, pool.Size())
}

func TestNewRateLimiterGatesWorkerPool(t *testing.T) {
	var seq atomic.Int32
	hooks := WorkerPoolHooks{
		CreateWorker:  func() (WorkerID, error) { return WorkerID(fmt.Sprintf("w%d", seq.Add(1))), nil },
		DestroyWorker: func(WorkerID) error { return nil },
		ExecuteTask: func(ctx context.Context, _ WorkerID, item WorkItem) (any, error) {
			return item.Fn(ctx)
		},
	}

	pool, err := NewWorkerPool(WorkerPoolConfig{
		MinWorkers:  1,
		MaxWorkers:  1,
		RateLimiter: NewRateLimiter(map[time.Duration]int{time.Minute: 1}),
	}, hooks, nil)
	require.NoError(t, err)
	defer pool.Close()

	item := WorkItem{Fn: func(context.Context) (any, error) { return nil, nil }}
	_, err = pool.Submit(context.Background(), item)
	require.NoError(t, err)

	_, err = pool.Submit(context.Background(), item)
	assert.Error(t, err)
}
