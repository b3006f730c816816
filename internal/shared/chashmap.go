package shared

import "sort"

// MaxSegments bounds ConcurrentHashMap's segment count.
const MaxSegments = 64

// SegmentStats summarizes one segment's occupancy, used to build the
// global aggregate returned by ConcurrentHashMap.Stats.
type SegmentStats struct {
	Segment    int
	Count      int
	LoadFactor float64
}

// ConcurrentHashMap partitions entries across N segments (N <= MaxSegments),
// each independently guarded by its own Map's mutex. Batch operations
// group keys by segment first, so each segment's lock is acquired at most
// once per batch call.
type ConcurrentHashMap[K comparable, V any] struct {
	segments []*Map[K, V]
	hash     func(K) uint64
}

// NewConcurrentHashMap constructs a ConcurrentHashMap with segments
// segments (a non-positive count becomes 16; larger counts are capped at
// MaxSegments), each with bucketsPerSegment initial buckets.
func NewConcurrentHashMap[K comparable, V any](segments, bucketsPerSegment int, hash func(K) uint64, loadFactor float64) *ConcurrentHashMap[K, V] {
	if segments <= 0 {
		segments = 16
	}
	if segments > MaxSegments {
		segments = MaxSegments
	}
	m := &ConcurrentHashMap[K, V]{
		segments: make([]*Map[K, V], segments),
		hash:     hash,
	}
	for i := range m.segments {
		m.segments[i] = NewMap[K, V](bucketsPerSegment, hash, loadFactor)
	}
	return m
}

func (m *ConcurrentHashMap[K, V]) segmentFor(key K) *Map[K, V] {
	return m.segments[m.hash(key)%uint64(len(m.segments))]
}

// Put inserts or updates key's value in its segment.
func (m *ConcurrentHashMap[K, V]) Put(key K, val V) error {
	return m.segmentFor(key).Put(key, val)
}

// Get returns key's value from its segment, if present.
func (m *ConcurrentHashMap[K, V]) Get(key K) (V, bool) {
	return m.segmentFor(key).Get(key)
}

// Delete removes key from its segment, if present.
func (m *ConcurrentHashMap[K, V]) Delete(key K) bool {
	return m.segmentFor(key).Delete(key)
}

// keysBySegment groups keys by their target segment index, so batch
// operations acquire each touched segment's lock exactly once.
func (m *ConcurrentHashMap[K, V]) keysBySegment(keys []K) map[int][]K {
	grouped := make(map[int][]K)
	for _, k := range keys {
		idx := int(m.hash(k) % uint64(len(m.segments)))
		grouped[idx] = append(grouped[idx], k)
	}
	return grouped
}

// BatchPut inserts every key/value pair, acquiring each segment's lock at
// most once regardless of how many pairs land in it.
func (m *ConcurrentHashMap[K, V]) BatchPut(keys []K, vals []V) error {
	var firstErr error
	grouped := make(map[int][]int) // segment -> indices into keys/vals
	for i, k := range keys {
		idx := int(m.hash(k) % uint64(len(m.segments)))
		grouped[idx] = append(grouped[idx], i)
	}
	for seg, indices := range grouped {
		segMap := m.segments[seg]
		segMap.mu.Lock()
		for _, i := range indices {
			if err := segMap.putLocked(keys[i], vals[i]); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		segMap.mu.Unlock()
	}
	return firstErr
}

// BatchGet returns the values found for keys as a map keyed by key; missing
// keys are omitted from the found map.
func (m *ConcurrentHashMap[K, V]) BatchGet(keys []K) map[K]V {
	found := make(map[K]V, len(keys))
	for seg, segKeys := range m.keysBySegment(keys) {
		segMap := m.segments[seg]
		segMap.mu.Lock()
		for _, k := range segKeys {
			idx := segMap.bucketIndex(k)
			for n := segMap.buckets[idx]; n != nil; n = n.next {
				if n.key == k {
					found[k] = n.val
					break
				}
			}
		}
		segMap.mu.Unlock()
	}
	return found
}

// Len returns the total entry count across all segments.
func (m *ConcurrentHashMap[K, V]) Len() int {
	total := 0
	for _, seg := range m.segments {
		total += seg.Len()
	}
	return total
}

// Stats returns a per-segment occupancy snapshot, sorted by segment index,
// aggregated under each segment's own lock.
func (m *ConcurrentHashMap[K, V]) Stats() []SegmentStats {
	out := make([]SegmentStats, 0, len(m.segments))
	for i, seg := range m.segments {
		seg.mu.Lock()
		out = append(out, SegmentStats{
			Segment:    i,
			Count:      seg.count,
			LoadFactor: float64(seg.count) / float64(len(seg.buckets)),
		})
		seg.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

// putLocked is Map.Put's body without acquiring the lock, used by
// BatchPut which already holds it for the whole grouped slice.
func (m *Map[K, V]) putLocked(key K, val V) error {
	idx := m.bucketIndex(key)
	for n := m.buckets[idx]; n != nil; n = n.next {
		if n.key == key {
			n.val = val
			return nil
		}
	}
	m.buckets[idx] = &mapNode[K, V]{key: key, val: val, next: m.buckets[idx]}
	m.count++
	if float64(m.count)/float64(len(m.buckets)) > m.loadFactor {
		return ErrLoadFactorExceeded
	}
	return nil
}
