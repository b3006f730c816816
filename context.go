package concrt

import (
	"sync"
	"time"

	"github.com/concrt-go/concrt/internal/loop"
)

// Context is a node in a cancellation-and-value propagation tree, built
// on the scheduler's W3C-style AbortController/AbortSignal pair. It
// satisfies the standard library's context.Context interface so it
// interoperates with any stdlib- or ecosystem API that accepts one.
//
// Once a Context has an error it stays errored; children are cancelled no
// later than their parent; value lookup walks the parent chain and returns
// the nearest binding.
type Context struct {
	parent     *Context
	controller *loop.AbortController
	done       chan struct{}

	mu       sync.Mutex
	err      error
	deadline time.Time
	hasDead  bool

	key, val any
}

// Background returns the root of every cancellation tree: it is never
// cancelled, carries no deadline, and holds no values.
func Background() *Context {
	return &Context{
		controller: loop.NewAbortController(),
		done:       make(chan struct{}),
	}
}

// Deadline implements context.Context.
func (c *Context) Deadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadline, c.hasDead
}

// Done implements context.Context. The returned channel is the same value
// on every call and closes exactly once, when the context is cancelled or
// its deadline expires.
func (c *Context) Done() <-chan struct{} {
	return c.done
}

// Err implements context.Context. Returns nil unless the context has been
// cancelled or its deadline has passed, in which case it returns a non-nil
// error that never reverts.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Value implements context.Context, walking the parent chain and returning
// the nearest binding, or nil if no ancestor carries key.
func (c *Context) Value(key any) any {
	for n := c; n != nil; n = n.parent {
		if n.key != nil && n.key == key {
			return n.val
		}
	}
	return nil
}

// CancelFunc cancels the Context it was returned alongside. Calling it more
// than once, or after the Context is already cancelled, is a no-op.
type CancelFunc func()

// cancel settles the context exactly once: it records err, closes done, and
// aborts the underlying AbortController so children (registered via
// AbortSignal.OnAbort in newChild) are cancelled in turn.
func (c *Context) cancel(err error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return
	}
	c.err = err
	c.mu.Unlock()
	close(c.done)
	c.controller.Abort(err)
}

// WithCancel returns a child of parent along with a CancelFunc that, when
// called, cancels the child (and transitively, any of its own children)
// with ErrContextCancelled.
func WithCancel(parent *Context) (*Context, CancelFunc) {
	child := newChild(parent)
	return child, func() { child.cancel(ErrContextCancelled) }
}

// WithValue returns a child of parent that additionally binds key to val.
// Lookups via Value walk up from the child.
func WithValue(parent *Context, key, val any) *Context {
	child := newChild(parent)
	child.key, child.val = key, val
	return child
}

// WithDeadline returns a child of parent that is automatically cancelled
// with ErrContextDeadlineExceeded at deadline, or earlier if explicitly
// cancelled via the returned CancelFunc.
func WithDeadline(parent *Context, deadline time.Time) (*Context, CancelFunc) {
	return withDeadlineCause(parent, deadline, ErrContextDeadlineExceeded)
}

func withDeadlineCause(parent *Context, deadline time.Time, cause error) (*Context, CancelFunc) {
	child := newChild(parent)
	child.mu.Lock()
	child.deadline = deadline
	child.hasDead = true
	child.mu.Unlock()

	d := time.Until(deadline)
	if d <= 0 {
		child.cancel(cause)
		return child, func() {}
	}

	// Routed through the same shared cooperative Loop that backs Timer and
	// Ticker (timer.go's sharedTimerLoop), rather than a bare
	// time.AfterFunc, so deadline expiry is dispatched through
	// ScheduleTimer/CancelTimer on the loop goroutine, the same way
	// AbortTimeout (internal/loop/abort.go) arms AbortController.Abort.
	l, err := sharedTimerLoop()
	if err != nil {
		child.cancel(err)
		return child, func() { child.cancel(ErrContextCancelled) }
	}

	id, err := l.ScheduleTimer(d, func() {
		child.cancel(cause)
	})
	if err != nil {
		child.cancel(err)
		return child, func() { child.cancel(ErrContextCancelled) }
	}

	return child, func() {
		_ = l.CancelTimer(id)
		child.cancel(ErrContextCancelled)
	}
}

// WithTimeout returns a child of parent that is automatically cancelled
// with ErrContextTimeout once d has elapsed. It shares WithDeadline's
// machinery but carries the distinct timeout cause so callers can tell
// "relative timeout fired" from "absolute deadline passed".
func WithTimeout(parent *Context, d time.Duration) (*Context, CancelFunc) {
	return withDeadlineCause(parent, time.Now().Add(d), ErrContextTimeout)
}

// newChild wires a fresh Context beneath parent: it registers on parent's
// AbortSignal so cancelling the parent immediately cancels the child with
// the parent's own cause - propagation is never later than the parent's.
func newChild(parent *Context) *Context {
	if parent == nil {
		panic("concrt: nil parent passed to context constructor")
	}

	child := &Context{
		parent:     parent,
		controller: loop.NewAbortController(),
		done:       make(chan struct{}),
	}

	parent.controller.Signal().OnAbort(func(reason any) {
		err, ok := reason.(error)
		if !ok {
			err = ErrContextCancelled
		}
		child.cancel(err)
	})

	return child
}
