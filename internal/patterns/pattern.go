// Package patterns implements the lifecycle/metrics base, global
// registry, and worker-pool skeleton: shared scaffolding that larger
// components (the parallel Task backend, any future domain-specific
// worker pool) build on rather than reimplementing retry, metrics, and
// health bookkeeping each time.
package patterns

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyRunning / ErrNotRunning guard Start/Stop against misuse.
var (
	ErrAlreadyRunning = errors.New("patterns: already running")
	ErrNotRunning     = errors.New("patterns: not running")
)

// Metrics is a point-in-time snapshot of a Base's operation counters.
type Metrics struct {
	Total             int64
	Successful        int64
	Failed            int64
	AverageDuration   time.Duration
	ActiveOperations  int64
	PeakConcurrency   int64
	LastOperationTime time.Time
}

// Config configures a Base instance.
type Config struct {
	// Name identifies the pattern instance in a Registry.
	Name string
	// MaxConcurrency bounds concurrent Execute calls; 0 means unbounded.
	MaxConcurrency int
	// Timeout bounds a single Execute attempt; 0 means no per-attempt
	// timeout (the caller's context still applies).
	Timeout time.Duration
	// RetryAttempts is the number of additional attempts after the first
	// failure, using exponential backoff capped at RetryMaxBackoff.
	RetryAttempts int
	// RetryBaseBackoff is the first retry's delay; it doubles each
	// subsequent attempt up to RetryMaxBackoff.
	RetryBaseBackoff time.Duration
	// RetryMaxBackoff caps the exponential backoff delay.
	RetryMaxBackoff time.Duration
	// OnError, if set, is invoked (outside the holding lock) for every
	// failed attempt, including ones that will be retried.
	OnError func(err error)
}

// Base is the lifecycle/metrics scaffolding shared by every pattern:
// start/stop/isRunning, a concurrency gate, retry with exponential
// backoff, and a Metrics snapshot.
type Base struct {
	cfg Config

	mu      sync.Mutex
	running bool
	metrics Metrics
	active  int64

	gate chan struct{} // nil when MaxConcurrency <= 0 (unbounded)
}

// NewBase constructs a Base from cfg. Defaults: RetryBaseBackoff 50ms,
// RetryMaxBackoff 5s, if left zero.
func NewBase(cfg Config) *Base {
	if cfg.RetryBaseBackoff <= 0 {
		cfg.RetryBaseBackoff = 50 * time.Millisecond
	}
	if cfg.RetryMaxBackoff <= 0 {
		cfg.RetryMaxBackoff = 5 * time.Second
	}
	b := &Base{cfg: cfg}
	if cfg.MaxConcurrency > 0 {
		b.gate = make(chan struct{}, cfg.MaxConcurrency)
	}
	return b
}

// Name returns the pattern's configured name.
func (b *Base) Name() string { return b.cfg.Name }

// Start transitions the pattern to running. It fails if already running.
func (b *Base) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return ErrAlreadyRunning
	}
	b.running = true
	return nil
}

// Stop transitions the pattern to stopped. It fails if not running.
func (b *Base) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return ErrNotRunning
	}
	b.running = false
	return nil
}

// IsRunning reports the current lifecycle state.
func (b *Base) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Execute runs fn under the concurrency gate, retrying on failure with
// exponential backoff up to cfg.RetryAttempts additional attempts, and
// updates Metrics regardless of outcome. ctx cancellation aborts both the
// current attempt's wait and any pending retry.
func (b *Base) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if b.gate != nil {
		select {
		case b.gate <- struct{}{}:
			defer func() { <-b.gate }()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.beginOp()
	start := time.Now()

	var err error
	delay := b.cfg.RetryBaseBackoff
	for attempt := 0; attempt <= b.cfg.RetryAttempts; attempt++ {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if b.cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		}
		err = fn(attemptCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			break
		}
		if b.cfg.OnError != nil {
			b.cfg.OnError(err)
		}
		if attempt == b.cfg.RetryAttempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			err = ctx.Err()
			attempt = b.cfg.RetryAttempts // stop retrying
		}
		delay *= 2
		if delay > b.cfg.RetryMaxBackoff {
			delay = b.cfg.RetryMaxBackoff
		}
	}

	b.endOp(err == nil, time.Since(start))
	return err
}

func (b *Base) beginOp() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active++
	if b.active > b.metrics.PeakConcurrency {
		b.metrics.PeakConcurrency = b.active
	}
}

func (b *Base) endOp(success bool, dur time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active--
	b.metrics.Total++
	if success {
		b.metrics.Successful++
	} else {
		b.metrics.Failed++
	}
	// Incremental mean: avoids retaining every observation just to average.
	if b.metrics.Total == 1 {
		b.metrics.AverageDuration = dur
	} else {
		b.metrics.AverageDuration += (dur - b.metrics.AverageDuration) / time.Duration(b.metrics.Total)
	}
	b.metrics.ActiveOperations = b.active
	b.metrics.LastOperationTime = time.Now()
}

// Metrics returns a snapshot of this pattern's counters.
func (b *Base) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.metrics
	m.ActiveOperations = b.active
	return m
}
