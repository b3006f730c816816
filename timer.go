package concrt

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/concrt-go/concrt/internal/loop"
)

// sharedTimerLoopOnce, sharedTimerLoopInst and sharedTimerLoopErr back the
// single cooperative Loop shared by every Timer and Ticker in the process.
// Every timer callback is driven through one Loop's ScheduleTimer/
// CancelTimer pair rather than a raw background timer goroutine per call;
// the instance is bound exactly once (lazily, via sync.Once) behind this
// facade rather than constructed ad hoc by each caller.
var (
	sharedTimerLoopOnce sync.Once
	sharedTimerLoopInst *loop.Loop
	sharedTimerLoopErr  error
)

func sharedTimerLoop() (*loop.Loop, error) {
	sharedTimerLoopOnce.Do(func() {
		l, err := loop.New()
		if err != nil {
			sharedTimerLoopErr = err
			return
		}
		sharedTimerLoopInst = l
		go func() { _ = l.Run(context.Background()) }()
	})
	return sharedTimerLoopInst, sharedTimerLoopErr
}

// Timer resolves a single Future after a duration, supporting Stop and
// Reset. Scheduling is routed through the shared cooperative Loop's
// ScheduleTimer/CancelTimer pair rather than a bare time.AfterFunc, so a
// fired callback always runs on the loop goroutine rather than an ad hoc
// runtime timer goroutine.
type Timer struct {
	mu      sync.Mutex
	loop    *loop.Loop
	timerID loop.TimerID
	fired   *Future[time.Time]
	stopped bool
}

// NewTimer constructs a Timer that fires after d, resolving its Future
// with the fire time.
func NewTimer(d time.Duration) (*Timer, error) {
	l, err := sharedTimerLoop()
	if err != nil {
		return nil, err
	}

	t := &Timer{fired: NewFuture[time.Time](), loop: l}
	id, err := l.ScheduleTimer(d, func() { t.fired.Resolve(time.Now()) })
	if err != nil {
		return nil, err
	}
	t.timerID = id
	return t, nil
}

// C returns the Future observing the timer's fire event. Callers awaiting
// it typically do `<-t.C().Done()` or `t.C().Wait(ctx)`.
func (t *Timer) C() *Future[time.Time] { return t.fired }

// Stop prevents the Timer from firing. It returns true if it stopped the
// timer before it fired, false if the timer had already fired or been
// stopped, matching stdlib time.Timer.Stop's contract.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return t.loop.CancelTimer(t.timerID) == nil
}

// Reset changes the timer to fire after d from now, installing a fresh
// Future for the new firing (the old one, if never settled, is left
// pending forever - callers should re-fetch C() after Reset, matching
// stdlib time.Timer's own "drain before reset" caveat in spirit).
func (t *Timer) Reset(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	// ErrTimerNotFound here just means the previous timer already fired;
	// either way a fresh one is scheduled below.
	_ = t.loop.CancelTimer(t.timerID)

	t.fired = NewFuture[time.Time]()
	fired := t.fired
	id, err := t.loop.ScheduleTimer(d, func() { fired.Resolve(time.Now()) })
	if err != nil {
		return err
	}
	t.timerID = id
	t.stopped = false
	return nil
}

// Ticker delivers monotonically increasing tick counts into an owned
// Channel at a fixed interval.
type Ticker struct {
	mu                 sync.Mutex
	loop               *loop.Loop
	ch                 *Channel[int]
	interval           time.Duration
	currentLoopTimerID loop.TimerID
	count              int
	canceled           atomic.Bool
}

// NewTicker constructs a running Ticker delivering ticks every interval
// into a Channel with capacity 1 (the standard library's own buffering
// choice for time.Ticker, so a slow consumer never blocks the ticker
// goroutine - a tick that arrives while the channel is full is dropped, so
// the earliest undelivered tick is the one retained).
func NewTicker(interval time.Duration) (*Ticker, error) {
	if interval <= 0 {
		return nil, ErrInvalidTimeout
	}
	ch, err := NewChannel[int](WithCapacity(1))
	if err != nil {
		return nil, err
	}
	l, err := sharedTimerLoop()
	if err != nil {
		return nil, err
	}

	t := &Ticker{ch: ch, interval: interval, loop: l}
	id, err := l.ScheduleTimer(interval, t.fire)
	if err != nil {
		return nil, err
	}
	t.currentLoopTimerID = id
	return t, nil
}

// fire runs on the shared Loop's goroutine when a scheduled tick elapses.
// It delivers the tick, then reschedules the next one via ScheduleTimer
// from within the fired callback rather than relying on a
// natively-repeating timer, double-checking the canceled flag around the
// reschedule to close the cancel-during-fire window.
func (t *Ticker) fire() {
	if t.canceled.Load() {
		return
	}

	t.mu.Lock()
	t.count++
	n := t.count
	t.mu.Unlock()

	// Drop the tick if the channel is already full, matching time.Ticker's
	// own "best effort, never blocks the sender" delivery guarantee.
	t.ch.TrySend(n)

	if t.canceled.Load() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled.Load() {
		return
	}
	id, err := t.loop.ScheduleTimer(t.interval, t.fire)
	if err != nil {
		return
	}
	t.currentLoopTimerID = id
}

// C returns the Channel on which tick counts are delivered.
func (t *Ticker) C() *Channel[int] { return t.ch }

// Stop halts the ticker. It does not close the underlying channel, so any
// buffered tick remains available to a consumer that hasn't drained it yet.
func (t *Ticker) Stop() {
	t.canceled.Store(true)
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.loop.CancelTimer(t.currentLoopTimerID)
}

// Reset changes the ticker's interval: the pending fire is cancelled and
// rearmed with the new interval immediately.
func (t *Ticker) Reset(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidTimeout
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.loop.CancelTimer(t.currentLoopTimerID)
	t.interval = interval

	id, err := t.loop.ScheduleTimer(interval, t.fire)
	if err != nil {
		return err
	}
	t.currentLoopTimerID = id
	t.canceled.Store(false)
	return nil
}

// Sleep pauses the calling goroutine for d. It is a thin wrapper over
// time.Sleep, provided so user tasks route every suspension point through
// this package's vocabulary rather than mixing in raw stdlib calls.
func Sleep(d time.Duration) { time.Sleep(d) }

// SleepUntil pauses until t, or returns immediately if t has already
// passed.
func SleepUntil(t time.Time) {
	if d := time.Until(t); d > 0 {
		time.Sleep(d)
	}
}

// SleepWithBackoff pauses for base*2^attempt, capped at max. attempt is
// typically a zero-based retry counter.
func SleepWithBackoff(base time.Duration, attempt int, max time.Duration) {
	d := base << uint(attempt)
	if d <= 0 || d > max {
		d = max
	}
	time.Sleep(d)
}

// SleepWithJitter pauses for a duration uniformly distributed in
// [d*(1-jitter), d*(1+jitter)]. jitter is clamped to [0, 1].
func SleepWithJitter(d time.Duration, jitter float64) {
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	if jitter == 0 {
		time.Sleep(d)
		return
	}
	spread := float64(d) * jitter
	offset := (rand.Float64()*2 - 1) * spread
	actual := time.Duration(float64(d) + offset)
	if actual < 0 {
		actual = 0
	}
	time.Sleep(actual)
}
