package shared

import (
	"container/list"
	"errors"
	"sync"
)

// ErrNotFound is returned by Manager.Get/Release when no buffer is
// registered under the given name.
var ErrNotFound = errors.New("shared: buffer not found")

// ErrCapacityExceeded is returned by Manager.Allocate when the pool is at
// its configured maximum and nothing was evictable (every buffer has a
// live worker association).
var ErrCapacityExceeded = errors.New("shared: buffer pool at capacity")

type entry struct {
	name    string
	buf     *Buffer
	workers map[string]struct{}
	elem    *list.Element // position in the LRU list
}

// Manager is a named shared-buffer pool: it tracks which
// worker ids reference each buffer and evicts the least-recently-used,
// worker-free buffer when a new allocation would exceed maxBuffers.
type Manager struct {
	mu         sync.Mutex
	maxBuffers int
	byName     map[string]*entry
	lru        *list.List // front = most recently used
}

// NewManager constructs a Manager capped at maxBuffers live buffers. A
// non-positive maxBuffers means unbounded.
func NewManager(maxBuffers int) *Manager {
	return &Manager{
		maxBuffers: maxBuffers,
		byName:     make(map[string]*entry),
		lru:        list.New(),
	}
}

// Allocate creates (or replaces) a named buffer of the given size and
// flags. If the pool is full, the least-recently-used buffer with no
// worker associations is evicted first; if every buffer has at least one
// association, Allocate fails with ErrCapacityExceeded.
func (m *Manager) Allocate(name string, size int, flags uint32) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[name]; !exists && m.maxBuffers > 0 && len(m.byName) >= m.maxBuffers {
		if !m.evictOneLocked() {
			return nil, ErrCapacityExceeded
		}
	}

	buf, err := Allocate(size, flags)
	if err != nil {
		return nil, err
	}

	if old, exists := m.byName[name]; exists {
		m.lru.Remove(old.elem)
		delete(m.byName, name)
	}

	e := &entry{name: name, buf: buf, workers: make(map[string]struct{})}
	e.elem = m.lru.PushFront(e)
	m.byName[name] = e
	return buf, nil
}

// evictOneLocked removes the least-recently-used buffer with no worker
// associations. Returns whether an eviction happened. Must hold m.mu.
func (m *Manager) evictOneLocked() bool {
	for el := m.lru.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		if len(e.workers) == 0 {
			m.lru.Remove(el)
			delete(m.byName, e.name)
			return true
		}
	}
	return false
}

// Get returns the named buffer and marks it most-recently-used.
func (m *Manager) Get(name string) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	m.lru.MoveToFront(e.elem)
	return e.buf, nil
}

// AssociateWorker records that workerID holds a live reference to the
// named buffer, making it ineligible for eviction until every associated
// worker calls ReleaseWorker.
func (m *Manager) AssociateWorker(name, workerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byName[name]
	if !ok {
		return ErrNotFound
	}
	e.workers[workerID] = struct{}{}
	m.lru.MoveToFront(e.elem)
	return nil
}

// ReleaseWorker drops workerID's association with the named buffer.
func (m *Manager) ReleaseWorker(name, workerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byName[name]
	if !ok {
		return ErrNotFound
	}
	delete(e.workers, workerID)
	return nil
}

// Free removes the named buffer regardless of worker associations.
func (m *Manager) Free(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byName[name]
	if !ok {
		return ErrNotFound
	}
	m.lru.Remove(e.elem)
	delete(m.byName, name)
	return nil
}

// Len returns the number of buffers currently tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byName)
}

// Names returns a snapshot of all currently tracked buffer names.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.byName))
	for name := range m.byName {
		out = append(out, name)
	}
	return out
}
