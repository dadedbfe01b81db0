package shell

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoopRunsCommandsInOrder(t *testing.T) {
	l := NewLoop(8, nil)
	go l.Run()
	defer l.Stop()

	var got []int
	for i := 0; i < 50; i++ {
		i := i
		if err := l.Post(func() error {
			got = append(got, i)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Call(context.Background(), func() error { return nil }); err != nil {
		t.Fatal(err)
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d", i, v)
		}
	}
	if len(got) != 50 {
		t.Fatalf("ran %d commands, want 50", len(got))
	}
}

func TestLoopErrorsGoToHandler(t *testing.T) {
	var mu sync.Mutex
	var errs []error
	l := NewLoop(1, func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	go l.Run()
	defer l.Stop()

	boom := errors.New("boom")
	_ = l.Post(func() error { return boom })
	_ = l.Post(func() error { panic("kaboom") })

	// Call results go to the caller, not the handler.
	if err := l.Call(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Call() error = %v, want boom", err)
	}
	if err := l.Call(context.Background(), func() error { panic("again") }); err == nil {
		t.Error("Call() of panicking command returned nil")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 2 || !errors.Is(errs[0], boom) {
		t.Errorf("handler errors = %v", errs)
	}
}

func TestLoopStopped(t *testing.T) {
	l := NewLoop(1, nil)
	go l.Run()
	l.Stop()
	l.Stop()

	if err := l.Post(func() error { return nil }); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Post() error = %v, want ErrLoopStopped", err)
	}
	if err := l.Call(context.Background(), func() error { return nil }); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Call() error = %v, want ErrLoopStopped", err)
	}
}

func TestLoopCallHonoursContext(t *testing.T) {
	l := NewLoop(1, nil)
	go l.Run()
	defer l.Stop()

	release := make(chan struct{})
	_ = l.Post(func() error {
		<-release
		return nil
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Call(ctx, func() error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call() error = %v, want deadline exceeded", err)
	}
}
