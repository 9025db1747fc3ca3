package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

// DefaultTimeout bounds a single adapter call.
const DefaultTimeout = 30 * time.Second

// Status is the outcome of one adapter call.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
	StatusTimeout     Status = "timeout"
)

// Result describes one adapter call.
type Result struct {
	Source       string        `json:"source" yaml:"source"`
	Provider     string        `json:"provider,omitempty" yaml:"provider,omitempty"`
	Status       Status        `json:"status" yaml:"status"`
	Observations int           `json:"observations" yaml:"observations"`
	Duration     time.Duration `json:"duration_ns" yaml:"duration"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Runner calls adapters one after another, each under its own timeout.
type Runner struct {
	Timeout time.Duration
	Log     *zap.Logger
}

// NewRunner returns a runner; a zero timeout means DefaultTimeout.
func NewRunner(log *zap.Logger, timeout time.Duration) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{Timeout: timeout, Log: log}
}

// Run collects from every adapter in order. The returned batches line up
// with adapters. A failing or slow adapter never stops the others; whatever
// it emitted before failing is kept.
func (r *Runner) Run(ctx context.Context, adapters ...Adapter) ([][]health.Observation, []Result) {
	batches := make([][]health.Observation, len(adapters))
	results := make([]Result, len(adapters))
	for i, a := range adapters {
		batches[i], results[i] = r.collect(ctx, a)
	}
	return batches, results
}

type buffer struct {
	mu     sync.Mutex
	obs    []health.Observation
	closed bool
}

func (b *buffer) add(o health.Observation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.obs = append(b.obs, o)
	}
}

// close stops accepting observations and returns what was collected.
func (b *buffer) close() []health.Observation {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.obs
}

func (r *Runner) collect(parent context.Context, a Adapter) ([]health.Observation, Result) {
	log := r.Log.With(zap.String("source", a.Name()))
	res := Result{Source: a.Name()}

	ctx, cancel := context.WithTimeout(parent, r.Timeout)
	defer cancel()

	buf := &buffer{}
	done := make(chan error, 1)
	start := time.Now()
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("adapter panic: %v", p)
			}
		}()
		done <- a.Collect(ctx, buf.add)
	}()

	var err error
	finished := true
	select {
	case err = <-done:
	case <-ctx.Done():
		finished = false
		err = ctx.Err()
	}
	obs := buf.close()
	res.Duration = time.Since(start)
	res.Observations = len(obs)

	if finished {
		if p, ok := a.(interface{ Provider() string }); ok {
			res.Provider = p.Provider()
		}
	}

	switch {
	case err == nil:
		res.Status = StatusOK
		log.Info("Source collected",
			zap.String("provider", res.Provider),
			zap.Int("observations", res.Observations),
			zap.Duration("took", res.Duration))
	case errors.Is(err, ErrUnavailable):
		res.Status = StatusUnavailable
		res.Error = err.Error()
		log.Info("Source unavailable", zap.Error(err))
	case errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		res.Status = StatusTimeout
		res.Error = fmt.Sprintf("timed out after %s", r.Timeout)
		log.Warn("Source timed out, keeping partial results",
			zap.Duration("timeout", r.Timeout), zap.Int("observations", res.Observations))
	default:
		res.Status = StatusFailed
		res.Error = err.Error()
		log.Warn("Source failed", zap.Error(err), zap.Int("observations", res.Observations))
	}
	return obs, res
}
