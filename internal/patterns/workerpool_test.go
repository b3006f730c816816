package patterns

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concrt-go/concrt/internal/loop"
)

func testHooks(created, destroyed *atomic.Int32) Hooks {
	var seq atomic.Int32
	return Hooks{
		CreateWorker: func() (WorkerID, error) {
			if created != nil {
				created.Add(1)
			}
			return WorkerID(fmt.Sprintf("w%d", seq.Add(1))), nil
		},
		DestroyWorker: func(WorkerID) error {
			if destroyed != nil {
				destroyed.Add(1)
			}
			return nil
		},
		ExecuteTask: func(ctx context.Context, _ WorkerID, item WorkItem) (any, error) {
			return item.Fn(ctx)
		},
	}
}

func TestWorkerPoolStartsMinWorkers(t *testing.T) {
	var created atomic.Int32
	wp, err := NewWorkerPool(WorkerPoolConfig{MinWorkers: 3, MaxWorkers: 5}, testHooks(&created, nil), nil)
	require.NoError(t, err)
	defer wp.Close()

	assert.Equal(t, 3, wp.Size())
	assert.Equal(t, int32(3), created.Load())
}

func TestWorkerPoolSubmitExecutes(t *testing.T) {
	wp, err := NewWorkerPool(WorkerPoolConfig{MinWorkers: 2, MaxWorkers: 4}, testHooks(nil, nil), nil)
	require.NoError(t, err)
	defer wp.Close()

	v, err := wp.Submit(context.Background(), WorkItem{
		ID: "job", Priority: 1,
		Fn: func(context.Context) (any, error) { return 21 * 2, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWorkerPoolInvalidConfig(t *testing.T) {
	_, err := NewWorkerPool(WorkerPoolConfig{MinWorkers: 5, MaxWorkers: 2}, testHooks(nil, nil), nil)
	assert.Error(t, err)

	_, err = NewWorkerPool(WorkerPoolConfig{MinWorkers: 0, MaxWorkers: 2}, Hooks{}, nil)
	assert.Error(t, err)
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	wp, err := NewWorkerPool(WorkerPoolConfig{MinWorkers: 1, MaxWorkers: 2}, testHooks(nil, nil), nil)
	require.NoError(t, err)
	require.NoError(t, wp.Close())

	_, err = wp.Submit(context.Background(), WorkItem{Fn: func(context.Context) (any, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrWorkerPoolClosed)
}

func TestWorkerPoolCloseDestroysWorkers(t *testing.T) {
	var destroyed atomic.Int32
	wp, err := NewWorkerPool(WorkerPoolConfig{MinWorkers: 3, MaxWorkers: 3}, testHooks(nil, &destroyed), nil)
	require.NoError(t, err)
	require.NoError(t, wp.Close())
	assert.Equal(t, int32(3), destroyed.Load())
	assert.Equal(t, 0, wp.Size())
}

func TestWorkerPoolAutoscaleUp(t *testing.T) {
	wp, err := NewWorkerPool(WorkerPoolConfig{
		MinWorkers:       1,
		MaxWorkers:       3,
		ScaleUpThreshold: 0.5,
	}, testHooks(nil, nil), nil)
	require.NoError(t, err)
	defer wp.Close()

	// Queue depth 2 over 1 worker exceeds the threshold.
	wp.queue.Enqueue(WorkItem{ID: "a"}, 0)
	wp.queue.Enqueue(WorkItem{ID: "b"}, 0)
	require.NoError(t, wp.Autoscale())
	assert.Equal(t, 2, wp.Size())
}

func TestWorkerPoolAutoscaleDownRespectsMin(t *testing.T) {
	var destroyed atomic.Int32
	wp, err := NewWorkerPool(WorkerPoolConfig{
		MinWorkers:         2,
		MaxWorkers:         4,
		ScaleUpThreshold:   100,
		ScaleDownThreshold: 0.5,
	}, testHooks(nil, &destroyed), nil)
	require.NoError(t, err)
	defer wp.Close()

	// Grow to 3 manually, then autoscale down on an empty queue.
	require.NoError(t, wp.spawnWorker())
	require.Equal(t, 3, wp.Size())

	require.NoError(t, wp.Autoscale())
	assert.Equal(t, 2, wp.Size())
	assert.Equal(t, int32(1), destroyed.Load())

	// At MinWorkers, no further shrink.
	require.NoError(t, wp.Autoscale())
	assert.Equal(t, 2, wp.Size())
}

func TestWorkerPoolEventsDispatched(t *testing.T) {
	wp, err := NewWorkerPool(WorkerPoolConfig{
		MinWorkers:       1,
		MaxWorkers:       2,
		ScaleUpThreshold: 0,
	}, testHooks(nil, nil), nil)
	require.NoError(t, err)
	defer wp.Close()

	var mu sync.Mutex
	var types []string
	listener := loop.EventListenerFunc(func(e *loop.Event) {
		mu.Lock()
		types = append(types, e.Type)
		mu.Unlock()
	})
	wp.Events.AddEventListener(EventWorkerCreated, listener)
	wp.Events.AddEventListener(EventAutoscaled, listener)

	wp.queue.Enqueue(WorkItem{ID: "a"}, 0)
	require.NoError(t, wp.Autoscale())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, types, EventWorkerCreated)
	assert.Contains(t, types, EventAutoscaled)
}

func TestWorkerPoolLeastLoadedBalancer(t *testing.T) {
	b := LeastLoadedBalancer{}
	workers := []WorkerID{"a", "b", "c"}
	load := map[WorkerID]int{"a": 2, "b": 0, "c": 1}
	assert.Equal(t, WorkerID("b"), b.SelectWorker(workers, load))
}

func TestWorkerPoolRoundRobinBalancer(t *testing.T) {
	b := &RoundRobinBalancer{}
	workers := []WorkerID{"a", "b"}
	assert.Equal(t, WorkerID("a"), b.SelectWorker(workers, nil))
	assert.Equal(t, WorkerID("b"), b.SelectWorker(workers, nil))
	assert.Equal(t, WorkerID("a"), b.SelectWorker(workers, nil))
}

func TestWorkerPoolRecordMetricsBatches(t *testing.T) {
	var mu sync.Mutex
	var flushed []Metrics
	wp, err := NewWorkerPool(WorkerPoolConfig{MinWorkers: 1, MaxWorkers: 2}, testHooks(nil, nil),
		func(_ context.Context, snapshots []Metrics) error {
			mu.Lock()
			flushed = append(flushed, snapshots...)
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)

	require.NoError(t, wp.RecordMetrics(context.Background(), Metrics{Total: 1}))
	require.NoError(t, wp.RecordMetrics(context.Background(), Metrics{Total: 2}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flushed) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, wp.Close())
}

func newTestLimiter(t *testing.T, window time.Duration, count int) *catrate.Limiter {
	t.Helper()
	return catrate.NewLimiter(map[time.Duration]int{window: count})
}

func TestWorkerPoolRateLimiterGatesSubmit(t *testing.T) {
	wp, err := NewWorkerPool(WorkerPoolConfig{
		MinWorkers:  1,
		MaxWorkers:  2,
		RateLimiter: newTestLimiter(t, time.Minute, 1),
	}, testHooks(nil, nil), nil)
	require.NoError(t, err)
	defer wp.Close()

	item := WorkItem{Fn: func(context.Context) (any, error) { return nil, nil }}
	_, err = wp.Submit(context.Background(), item)
	require.NoError(t, err)

	_, err = wp.Submit(context.Background(), item)
	assert.Error(t, err)
}
