package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrShuttingDown is reported by the readiness probe once shutdown began.
var ErrShuttingDown = errors.New("shutting down")

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// ReadyFunc reports whether dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// Probes answers liveness while the process runs and readiness while dependencies are reachable
// and shutdown has not begun.
type Probes struct {
	log      *slog.Logger
	ready    ReadyFunc
	draining atomic.Bool
}

// NewProbes creates Probes. A nil ready func makes readiness depend on shutdown only.
func NewProbes(ready ReadyFunc, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, ready: ready}
}

// Drain makes readiness fail from now on.
func (p *Probes) Drain() {
	if p.draining.CompareAndSwap(false, true) {
		p.log.Info("readiness probe switched to draining")
	}
}

// Liveness always succeeds while the process can answer.
func (p *Probes) Liveness(context.Context) error {
	return nil
}

// Readiness fails while draining or when a dependency check fails.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return ErrShuttingDown
	}
	if p.ready == nil {
		return nil
	}
	return p.ready(ctx)
}
