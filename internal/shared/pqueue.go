package shared

import (
	"container/heap"
	"errors"
	"sync"
)

// ErrPriorityQueueEmpty is returned by Dequeue when nothing is pending.
var ErrPriorityQueueEmpty = errors.New("shared: priority queue empty")

// pqItem is one slot of the binary max-heap: higher Priority first, ties
// broken by earlier Timestamp.
type pqItem[T any] struct {
	priority  int64
	timestamp int64
	payload   T
}

type pqHeap[T any] []*pqItem[T]

func (h pqHeap[T]) Len() int { return len(h) }

func (h pqHeap[T]) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority // max-heap on priority
	}
	return h[i].timestamp < h[j].timestamp // earlier timestamp wins ties
}

func (h pqHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pqHeap[T]) Push(x any) { *h = append(*h, x.(*pqItem[T])) }

func (h *pqHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// PriorityQueue is a binary max-heap over (priority, timestamp, payload)
// guarded by a single mutex: enqueue writes a slot and bubbles it up;
// dequeue extracts the root, moves the last slot to the root, and bubbles
// it down. container/heap provides exactly this bubble-up/bubble-down
// behavior.
type PriorityQueue[T any] struct {
	mu  sync.Mutex
	h   pqHeap[T]
	seq int64
}

// NewPriorityQueue constructs an empty PriorityQueue.
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

// Enqueue inserts payload with the given priority (higher values dequeue
// first). Ties are broken by insertion order.
func (q *PriorityQueue[T]) Enqueue(payload T, priority int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	heap.Push(&q.h, &pqItem[T]{priority: priority, timestamp: q.seq, payload: payload})
}

// Dequeue removes and returns the highest-priority, earliest-enqueued item.
func (q *PriorityQueue[T]) Dequeue() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		var zero T
		return zero, ErrPriorityQueueEmpty
	}
	item := heap.Pop(&q.h).(*pqItem[T])
	return item.payload, nil
}

// Peek returns the highest-priority item without removing it.
func (q *PriorityQueue[T]) Peek() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		var zero T
		return zero, ErrPriorityQueueEmpty
	}
	return q.h[0].payload, nil
}

// Len returns the current number of queued items.
func (q *PriorityQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}
