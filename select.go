package concrt

import (
	"sync"
	"time"
)

// selectOp identifies which non-blocking operation a Case performs.
type selectOp int

const (
	// SelectReceive attempts a non-blocking receive.
	SelectReceive selectOp = iota
	// SelectSend attempts a non-blocking send.
	SelectSend
)

// Case is a single branch of a Select call: either a receive or a send on
// ch, with an optional handler invoked with the exchanged value when this
// case wins.
type Case[T any] struct {
	Channel *Channel[T]
	Op      selectOp
	Value   T // used only when Op == SelectSend
	Handler func(value T, ok bool)
}

// Recv builds a receive Case.
func Recv[T any](ch *Channel[T], handler func(value T, ok bool)) Case[T] {
	return Case[T]{Channel: ch, Op: SelectReceive, Handler: handler}
}

// Send builds a send Case.
func Send[T any](ch *Channel[T], value T, handler func(value T, ok bool)) Case[T] {
	return Case[T]{Channel: ch, Op: SelectSend, Value: value, Handler: handler}
}

// selectOptions configures a Select call.
type selectOptions struct {
	timeout    time.Duration
	hasTimeout bool
	defaultFn  func()
}

// SelectOption configures Select.
type SelectOption interface {
	applySelect(*selectOptions)
}

type selectOptionImpl struct{ fn func(*selectOptions) }

func (s *selectOptionImpl) applySelect(opts *selectOptions) { s.fn(opts) }

// WithSelectTimeout bounds how long Select waits for a case to become
// ready in the election phase.
func WithSelectTimeout(d time.Duration) SelectOption {
	return &selectOptionImpl{func(opts *selectOptions) {
		opts.timeout = d
		opts.hasTimeout = true
	}}
}

// WithDefault provides a default branch invoked immediately if no case is
// ready during the fast-scan phase, short-circuiting the election phase
// entirely.
func WithDefault(fn func()) SelectOption {
	return &selectOptionImpl{func(opts *selectOptions) { opts.defaultFn = fn }}
}

func resolveSelectOptions(opts []SelectOption) *selectOptions {
	cfg := &selectOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applySelect(cfg)
	}
	return cfg
}

// trier is the operation-erased view of a Case that Select needs: a
// non-blocking attempt and a blocking attempt (used only by the election
// phase's race path for unbuffered channels).
type trier interface {
	// tryFast attempts the case's non-blocking variant. Returns true if it
	// succeeded (the handler, if any, has already been invoked).
	tryFast() bool
	// race repeatedly attempts the case's blocking variant under e's
	// attempt lock until the election is settled. Used only for unbuffered
	// channels during the election phase.
	race(e *election)
}

// election coordinates the blocking racers of one Select call. Attempts
// are serialized under mu, so at most one rendezvous can ever complete
// per election: the racer that completes it marks won while still holding
// the lock, and every other racer observes won (or closed) before it can
// start another attempt. A completed rendezvous is therefore always the
// unique winner - no consumed value is ever dropped and no second handler
// can fire.
type election struct {
	mu     sync.Mutex
	won    bool
	closed bool
	wonCh  chan struct{}
}

type caseTrier[T any] struct {
	c Case[T]
}

func (t caseTrier[T]) tryFast() bool {
	switch t.c.Op {
	case SelectReceive:
		v, ok := t.c.Channel.TryReceive()
		if !ok {
			return false
		}
		if t.c.Handler != nil {
			t.c.Handler(v, true)
		}
		return true
	case SelectSend:
		if !t.c.Channel.TrySend(t.c.Value) {
			return false
		}
		if t.c.Handler != nil {
			t.c.Handler(t.c.Value, true)
		}
		return true
	}
	return false
}

// raceSlice bounds each blocking attempt so a losing racer re-checks the
// election state instead of blocking indefinitely on a rendezvous partner
// that may never arrive. It also bounds how long a settled election can
// have one last attempt in flight.
const raceSlice = 25 * time.Millisecond

func (t caseTrier[T]) race(e *election) {
	for {
		e.mu.Lock()
		if e.won || e.closed {
			e.mu.Unlock()
			return
		}

		// The attempt runs while holding e.mu: a rendezvous completed here
		// is necessarily the election's only one, so claiming the win
		// cannot race another completed operation.
		switch t.c.Op {
		case SelectReceive:
			v, err := t.c.Channel.Receive(raceSlice)
			if err == nil {
				e.won = true
				e.mu.Unlock()
				if t.c.Handler != nil {
					t.c.Handler(v, true)
				}
				e.wonCh <- struct{}{}
				return
			}
		case SelectSend:
			err := t.c.Channel.Send(t.c.Value, raceSlice)
			if err == nil {
				e.won = true
				e.mu.Unlock()
				if t.c.Handler != nil {
					t.c.Handler(t.c.Value, true)
				}
				e.wonCh <- struct{}{}
				return
			}
		}
		e.mu.Unlock()
	}
}

// isUnbuffered reports whether the underlying channel has zero capacity.
func (t caseTrier[T]) isUnbuffered() bool { return t.c.Channel.Capacity() == 0 }

// Select implements a non-deterministic multi-case election:
//  1. Fast scan: try each case's non-blocking variant in order; the first
//     to succeed wins immediately.
//  2. If a default was provided and nothing was ready, invoke it and
//     return.
//  3. Election: if any case channel is unbuffered, race blocking variants
//     of all cases (the first to complete wins, others are abandoned).
//     Otherwise poll with exponential backoff (1ms, capped at 100ms) until
//     one succeeds or the timeout elapses.
//  4. On overall timeout, return false with no error; at most one handler
//     ever runs.
func Select(cases []trier, opts ...SelectOption) (won bool) {
	cfg := resolveSelectOptions(opts)

	for _, c := range cases {
		if c.tryFast() {
			return true
		}
	}

	if cfg.defaultFn != nil {
		cfg.defaultFn()
		return false
	}

	hasUnbuffered := false
	for _, c := range cases {
		if u, ok := c.(interface{ isUnbuffered() bool }); ok && u.isUnbuffered() {
			hasUnbuffered = true
			break
		}
	}

	deadline := time.Time{}
	if cfg.hasTimeout {
		deadline = time.Now().Add(cfg.timeout)
	}

	if hasUnbuffered {
		return electByRace(cases, cfg)
	}

	backoff := time.Millisecond
	const maxBackoff = 100 * time.Millisecond
	for {
		for _, c := range cases {
			if c.tryFast() {
				return true
			}
		}
		if cfg.hasTimeout && time.Now().After(deadline) {
			return false
		}
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// electByRace spawns one goroutine per case, each attempting the blocking
// variant under the election's attempt lock; the first to complete a
// rendezvous is the unique winner. On timeout the election is closed
// under the same lock, which waits out any attempt already in flight - if
// that attempt won in the meantime its value was handled, so the win is
// honored rather than dropped.
func electByRace(cases []trier, cfg *selectOptions) bool {
	e := &election{wonCh: make(chan struct{}, 1)}

	var timeoutC <-chan time.Time
	if cfg.hasTimeout {
		timer := time.NewTimer(cfg.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	for _, c := range cases {
		go c.race(e)
	}

	select {
	case <-e.wonCh:
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		return true
	case <-timeoutC:
		e.mu.Lock()
		e.closed = true
		won := e.won
		e.mu.Unlock()
		if won {
			// A racer completed its rendezvous between the timer firing
			// and the lock being acquired; its handler already ran.
			return true
		}
		return false
	}
}

// Cases is a convenience constructor erasing a slice of typed Case values
// into the []trier shape Select expects.
func Cases[T any](cs ...Case[T]) []trier {
	out := make([]trier, len(cs))
	for i, c := range cs {
		out[i] = caseTrier[T]{c: c}
	}
	return out
}
