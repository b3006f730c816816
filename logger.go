package concrt

import (
	"io"

	"github.com/joeycumines/stumpy"

	"github.com/concrt-go/concrt/internal/loop"
)

// Logger is the structured logging sink accepted by WithRuntimeLogger,
// NewProxyMutex and NewProxySemaphore. It is the same type internal/loop
// accepts: WithRuntimeLogger hands it to the Runtime's underlying
// scheduler. Channel, WaitGroup, the shared-memory layer and the patterns
// registry take no logger.
type Logger = loop.Logger

// NewStumpyLogger builds a ready-to-use [Logger] writing newline-delimited
// JSON to w, using stumpy, the logiface backend already vendored by the
// scheduler this runtime is built on. Most callers that just want readable
// logs without picking a backend should use this.
func NewStumpyLogger(w io.Writer) *Logger {
	typed := stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(w)))
	return typed.Logger()
}
