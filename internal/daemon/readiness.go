package daemon

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Prober checks whether the daemon answers on its control API.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) error

// Probe calls f(ctx).
func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// ReadinessConfig is the retry budget for Poll.
type ReadinessConfig struct {
	MaxAttempts  int
	Interval     time.Duration
	ProbeTimeout time.Duration // per attempt; 0 means no extra deadline
}

// DefaultReadinessConfig returns the default budget: 300 attempts 100ms
// apart, about 30s in the worst case.
func DefaultReadinessConfig() ReadinessConfig {
	return ReadinessConfig{
		MaxAttempts:  300,
		Interval:     100 * time.Millisecond,
		ProbeTimeout: 2 * time.Second,
	}
}

// Result reports the outcome of a readiness poll.
type Result struct {
	Ready    bool
	Attempts int
	Elapsed  time.Duration
}

// Poll probes until the daemon answers or the attempt counter exceeds
// MaxAttempts, so it makes at most MaxAttempts+1 probes. The delay between
// attempts is fixed. Waiting suspends only the calling goroutine.
//
// A timeout is returned as ErrReadinessTimeout with Result.Ready false.
// ctx is only there so the shell can stop a poll when it exits.
func Poll(ctx context.Context, p Prober, cfg ReadinessConfig) (Result, error) {
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}

	start := time.Now()
	attempt := 1
	for {
		err := probeOnce(ctx, p, cfg.ProbeTimeout)
		if err == nil {
			return Result{Ready: true, Attempts: attempt, Elapsed: time.Since(start)}, nil
		}

		if attempt > cfg.MaxAttempts {
			res := Result{Attempts: attempt, Elapsed: time.Since(start)}
			return res, fmt.Errorf("%w after %d attempts: %v", ErrReadinessTimeout, attempt, err)
		}
		if attempt == 1 || attempt%50 == 0 {
			log.Printf("[readiness] Daemon not ready (attempt %d): %v", attempt, err)
		}
		attempt++

		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Attempts: attempt - 1, Elapsed: time.Since(start)}, ctx.Err()
		case <-timer.C:
		}
	}
}

func probeOnce(ctx context.Context, p Prober, timeout time.Duration) error {
	if timeout <= 0 {
		return p.Probe(ctx)
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Probe(pctx)
}
