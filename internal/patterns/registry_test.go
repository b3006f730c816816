package patterns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterGetUnregister(t *testing.T) {
	r := NewRegistry()
	b := NewBase(Config{Name: "a"})
	require.NoError(t, r.Register(b))
	assert.ErrorIs(t, r.Register(NewBase(Config{Name: "a"})), ErrDuplicateName)

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, b, got)

	require.NoError(t, r.Unregister("a"))
	assert.ErrorIs(t, r.Unregister("a"), ErrNotRegistered)
	_, ok = r.Get("a")
	assert.False(t, ok)
}

func TestRegistryHealthThresholds(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, HealthHealthy, r.HealthStatus())

	names := []string{"a", "b", "c", "d", "e"}
	bases := make([]*Base, len(names))
	for i, n := range names {
		bases[i] = NewBase(Config{Name: n})
		require.NoError(t, r.Register(bases[i]))
	}
	// 0/5 running.
	assert.Equal(t, HealthUnhealthy, r.HealthStatus())

	// 3/5 = 60% running -> degraded.
	for _, b := range bases[:3] {
		require.NoError(t, b.Start())
	}
	assert.Equal(t, HealthDegraded, r.HealthStatus())

	// 4/5 = 80% running -> healthy.
	require.NoError(t, bases[3].Start())
	assert.Equal(t, HealthHealthy, r.HealthStatus())
}

func TestRegistryGlobalMetrics(t *testing.T) {
	r := NewRegistry()
	a := NewBase(Config{Name: "a"})
	b := NewBase(Config{Name: "b"})
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	require.NoError(t, a.Execute(context.Background(), func(context.Context) error { return nil }))
	require.NoError(t, a.Execute(context.Background(), func(context.Context) error { return nil }))
	require.NoError(t, b.Execute(context.Background(), func(context.Context) error { return nil }))

	m := r.GlobalMetrics()
	assert.Equal(t, int64(3), m.Total)
	assert.Equal(t, int64(3), m.Successful)
	assert.Equal(t, int64(0), m.Failed)
	assert.False(t, m.LastOperationTime.IsZero())
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewBase(Config{Name: "x"})))
	require.NoError(t, r.Register(NewBase(Config{Name: "y"})))
	assert.ElementsMatch(t, []string{"x", "y"}, r.Names())
}
