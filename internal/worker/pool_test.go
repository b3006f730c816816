package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmitBasic(t *testing.T) {
	pool, err := New(2, 0)
	require.NoError(t, err)
	defer pool.Shutdown(context.Background())

	resultCh := pool.Submit(func() (any, error) { return 7, nil })
	select {
	case r := <-resultCh:
		require.NoError(t, r.Err)
		assert.Equal(t, 7, r.Value)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestPoolSubmitError(t *testing.T) {
	pool, err := New(1, 0)
	require.NoError(t, err)
	defer pool.Shutdown(context.Background())

	boom := errors.New("boom")
	resultCh := pool.Submit(func() (any, error) { return nil, boom })
	r := <-resultCh
	assert.ErrorIs(t, r.Err, boom)
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool, err := New(1, 0)
	require.NoError(t, err)
	require.NoError(t, pool.Shutdown(context.Background()))

	resultCh := pool.Submit(func() (any, error) { return nil, nil })
	r := <-resultCh
	assert.ErrorIs(t, r.Err, ErrPoolClosed)
}

func TestPoolDistributesAcrossWorkers(t *testing.T) {
	pool, err := New(4, 0)
	require.NoError(t, err)
	defer pool.Shutdown(context.Background())
	assert.Equal(t, 4, pool.Size())

	const jobs = 20
	chans := make([]<-chan Result, jobs)
	for i := 0; i < jobs; i++ {
		i := i
		chans[i] = pool.Submit(func() (any, error) { return i, nil })
	}
	for i, ch := range chans {
		r := <-ch
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Value)
	}
}

func TestNewRejectsNonPositiveThreadCount(t *testing.T) {
	_, err := New(0, 0)
	assert.Error(t, err)
}
