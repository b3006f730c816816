package shared

import (
	"fmt"
	"hash/fnv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func TestMapPutGetDelete(t *testing.T) {
	m := NewMap[string, int](16, hashString, 0.75)

	require.NoError(t, m.Put("a", 1))
	require.NoError(t, m.Put("b", 2))
	require.NoError(t, m.Put("a", 10)) // update, not insert
	assert.Equal(t, 2, m.Len())

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)

	assert.True(t, m.Delete("a"))
	_, ok = m.Get("a")
	assert.False(t, ok)
	assert.False(t, m.Delete("a"))
	assert.Equal(t, 1, m.Len())
}

func TestMapLoadFactorDiagnosed(t *testing.T) {
	m := NewMap[string, int](4, hashString, 0.5)
	require.NoError(t, m.Put("k0", 0))
	require.NoError(t, m.Put("k1", 1))

	// Third entry pushes 3/4 > 0.5; the write still lands.
	err := m.Put("k2", 2)
	assert.ErrorIs(t, err, ErrLoadFactorExceeded)
	v, ok := m.Get("k2")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestMapChainingSurvivesCollisions(t *testing.T) {
	// A single bucket forces every key onto one chain.
	m := NewMap[string, int](1, hashString, 100)
	for i := 0; i < 20; i++ {
		require.NoError(t, m.Put(fmt.Sprintf("key%d", i), i))
	}
	assert.Equal(t, 20, m.Len())
	for i := 0; i < 20; i++ {
		v, ok := m.Get(fmt.Sprintf("key%d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestConcurrentHashMapBasicOps(t *testing.T) {
	m := NewConcurrentHashMap[string, int](8, 16, hashString, 0.75)
	require.NoError(t, m.Put("a", 1))
	require.NoError(t, m.Put("b", 2))

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, m.Delete("a"))
	_, ok = m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestConcurrentHashMapSegmentCountClamped(t *testing.T) {
	m := NewConcurrentHashMap[string, int](1000, 4, hashString, 0.75)
	assert.Len(t, m.Stats(), MaxSegments)
}

func TestConcurrentHashMapBatchOps(t *testing.T) {
	m := NewConcurrentHashMap[string, int](4, 16, hashString, 0.75)

	keys := []string{"a", "b", "c", "d"}
	vals := []int{1, 2, 3, 4}
	require.NoError(t, m.BatchPut(keys, vals))

	found := m.BatchGet(append(keys, "missing"))
	assert.Len(t, found, 4)
	for i, k := range keys {
		assert.Equal(t, vals[i], found[k])
	}
}

func TestConcurrentHashMapStatsSumEqualsLen(t *testing.T) {
	m := NewConcurrentHashMap[string, int](8, 16, hashString, 100)
	for i := 0; i < 100; i++ {
		require.NoError(t, m.Put(fmt.Sprintf("key%d", i), i))
	}

	total := 0
	for _, s := range m.Stats() {
		total += s.Count
	}
	assert.Equal(t, m.Len(), total)
	assert.Equal(t, 100, total)
}

func TestConcurrentHashMapConcurrentWriters(t *testing.T) {
	m := NewConcurrentHashMap[string, int](16, 32, hashString, 100)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				require.NoError(t, m.Put(fmt.Sprintf("w%d-k%d", w, i), i))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 200, m.Len())
}
