package concrt

import (
	"sync"

	"github.com/concrt-go/concrt/internal/loop"
)

// WaitGroup is a barrier accumulator that completes when its counter
// reaches zero. Unlike sync.WaitGroup, it also supports
// AddError to collect failures from concurrent participants; Wait returns
// the single error unwrapped if exactly one was reported, or an
// *AggregateError if more than one.
type WaitGroup struct {
	mu      sync.Mutex
	counter int
	errs    []error
	waiters []chan struct{}
}

// NewWaitGroup constructs a zeroed WaitGroup.
func NewWaitGroup() *WaitGroup { return &WaitGroup{} }

// Add changes the counter by delta, which may be negative. It panics if
// the resulting counter would go negative, wrapping
// ErrWaitGroupNegativeCounter for callers that want to recover and
// inspect via errors.Is.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	wg.counter += delta
	if wg.counter < 0 {
		panic(ErrWaitGroupNegativeCounter)
	}
	if wg.counter == 0 {
		wg.releaseLocked()
	}
}

// Done is a convenience for Add(-1).
func (wg *WaitGroup) Done() { wg.Add(-1) }

// AddError records a failure to be surfaced from Wait once the counter
// reaches zero. It does not affect the counter.
func (wg *WaitGroup) AddError(err error) {
	if err == nil {
		return
	}
	wg.mu.Lock()
	wg.errs = append(wg.errs, err)
	wg.mu.Unlock()
}

// Wait blocks until the counter reaches zero, then returns nil, the single
// recorded error unwrapped, or an *AggregateError if more than one error
// was recorded via AddError.
func (wg *WaitGroup) Wait() error {
	wg.mu.Lock()
	if wg.counter == 0 {
		err := wg.resultLocked()
		wg.mu.Unlock()
		return err
	}
	ch := make(chan struct{})
	wg.waiters = append(wg.waiters, ch)
	wg.mu.Unlock()

	<-ch

	wg.mu.Lock()
	defer wg.mu.Unlock()
	return wg.resultLocked()
}

func (wg *WaitGroup) resultLocked() error {
	switch len(wg.errs) {
	case 0:
		return nil
	case 1:
		return wg.errs[0]
	default:
		return &loop.AggregateError{Errors: append([]error(nil), wg.errs...)}
	}
}

// releaseLocked wakes all current waiters. Must hold wg.mu.
func (wg *WaitGroup) releaseLocked() {
	waiters := wg.waiters
	wg.waiters = nil
	for _, ch := range waiters {
		close(ch)
	}
}
