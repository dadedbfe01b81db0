package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func failingUntil(n int32, calls *atomic.Int32) Prober {
	return ProbeFunc(func(ctx context.Context) error {
		if calls.Add(1) >= n {
			return nil
		}
		return errors.New("connection refused")
	})
}

func TestPollReady(t *testing.T) {
	tests := []struct {
		name        string
		readyOn     int32
		maxAttempts int
		wantReady   bool
		wantCalls   int32
	}{
		{name: "first attempt", readyOn: 1, maxAttempts: 300, wantReady: true, wantCalls: 1},
		{name: "fifth attempt", readyOn: 5, maxAttempts: 300, wantReady: true, wantCalls: 5},
		{name: "last allowed attempt", readyOn: 4, maxAttempts: 3, wantReady: true, wantCalls: 4},
		{name: "never ready", readyOn: 1000, maxAttempts: 3, wantReady: false, wantCalls: 4},
		{name: "zero budget", readyOn: 1000, maxAttempts: 0, wantReady: false, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			cfg := ReadinessConfig{MaxAttempts: tt.maxAttempts, Interval: time.Millisecond}

			res, err := Poll(context.Background(), failingUntil(tt.readyOn, &calls), cfg)
			if res.Ready != tt.wantReady {
				t.Errorf("Ready = %v, want %v", res.Ready, tt.wantReady)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("probe calls = %d, want %d", got, tt.wantCalls)
			}
			if int32(res.Attempts) != tt.wantCalls {
				t.Errorf("Attempts = %d, want %d", res.Attempts, tt.wantCalls)
			}
			if tt.wantReady && err != nil {
				t.Errorf("Poll() error = %v, want nil", err)
			}
			if !tt.wantReady && !errors.Is(err, ErrReadinessTimeout) {
				t.Errorf("Poll() error = %v, want ErrReadinessTimeout", err)
			}
		})
	}
}

func TestPollAttemptBound(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 20} {
		var calls atomic.Int32
		never := ProbeFunc(func(ctx context.Context) error {
			calls.Add(1)
			return errors.New("down")
		})
		_, err := Poll(context.Background(), never, ReadinessConfig{MaxAttempts: n, Interval: time.Microsecond})
		if !errors.Is(err, ErrReadinessTimeout) {
			t.Fatalf("N=%d: error = %v, want timeout", n, err)
		}
		if got := int(calls.Load()); got != n+1 {
			t.Errorf("N=%d: %d probes, want %d", n, got, n+1)
		}
	}
}

func TestPollWaitsBetweenAttempts(t *testing.T) {
	var calls atomic.Int32
	cfg := ReadinessConfig{MaxAttempts: 10, Interval: 20 * time.Millisecond}

	res, err := Poll(context.Background(), failingUntil(4, &calls), cfg)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	// Three waits happen before the fourth probe.
	if res.Elapsed < 60*time.Millisecond {
		t.Errorf("Elapsed = %v, want at least 60ms", res.Elapsed)
	}
}

func TestPollContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	never := ProbeFunc(func(ctx context.Context) error { return errors.New("down") })

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	res, err := Poll(ctx, never, ReadinessConfig{MaxAttempts: 1000, Interval: 10 * time.Millisecond})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Poll() error = %v, want context.Canceled", err)
	}
	if res.Ready {
		t.Error("Ready = true after cancel")
	}
}

func TestPollProbeTimeout(t *testing.T) {
	var calls atomic.Int32
	slow := ProbeFunc(func(ctx context.Context) error {
		if calls.Add(1) < 2 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	res, err := Poll(context.Background(), slow, ReadinessConfig{
		MaxAttempts:  5,
		Interval:     time.Millisecond,
		ProbeTimeout: 10 * time.Millisecond,
	})
	if err != nil || !res.Ready || res.Attempts != 2 {
		t.Fatalf("Poll() = %+v, %v; want ready on attempt 2", res, err)
	}
}
