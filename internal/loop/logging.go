package loop

import (
	"github.com/joeycumines/logiface"
)

// Logger is the structured logging interface accepted by [WithLogger]. It is
// a type alias for logiface's erased Logger so callers can plug in any
// logiface backend (stumpy, zerolog, logrus, slog) without this package
// depending on a concrete one.
type Logger = logiface.Logger[logiface.Event]

// WithLogger attaches a structured logger to the Loop. Diagnostics that
// previously would have been silently dropped - task panics, poll errors -
// are written through it. Nil (the default) disables logging entirely, at
// zero cost.
func WithLogger(logger *Logger) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// logTaskPanic reports a recovered task panic through the configured logger.
// No-op if no logger was configured.
func (l *Loop) logTaskPanic(r any) {
	if l.logger == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		err = &PanicError{Value: r}
	}
	l.logger.Err().Err(err).Str("category", "task").Log("task panicked")
}

// logPollError reports a poller error through the configured logger.
func (l *Loop) logPollError(err error, critical bool) {
	if l.logger == nil {
		return
	}
	b := l.logger.Warning()
	if critical {
		b = l.logger.Err()
	}
	b.Err(err).Str("category", "poll").Log("poll error")
}
