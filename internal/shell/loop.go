// Package shell wires the daemon supervisor, the event bridge, the windows
// and the tray together around a single dispatch loop.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrLoopStopped is returned when a command is posted after Stop.
var ErrLoopStopped = errors.New("dispatch loop stopped")

// Command is a unit of work run on the dispatch loop.
type Command func() error

// Loop runs commands one at a time on a single goroutine. Everything that
// mutates window or tray state goes through it; other goroutines only Post
// or Call.
type Loop struct {
	cmds     chan Command
	done     chan struct{}
	stopOnce sync.Once
	onError  func(error)
}

// NewLoop creates a loop with a command buffer of the given size. onError
// receives every error a command returns; nil logs it.
func NewLoop(buffer int, onError func(error)) *Loop {
	if onError == nil {
		onError = func(err error) {
			log.Printf("[shell] Command failed: %v", err)
		}
	}
	return &Loop{
		cmds:    make(chan Command, buffer),
		done:    make(chan struct{}),
		onError: onError,
	}
}

// Run drains commands until Stop is called.
func (l *Loop) Run() {
	for {
		select {
		case <-l.done:
			return
		case cmd := <-l.cmds:
			l.exec(cmd)
		}
	}
}

func (l *Loop) exec(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			l.onError(fmt.Errorf("command panicked: %v", r))
		}
	}()
	if err := cmd(); err != nil {
		l.onError(err)
	}
}

// Post queues cmd without waiting for it to run.
func (l *Loop) Post(cmd Command) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}
	select {
	case l.cmds <- cmd:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Call runs cmd on the loop and waits for its result, which goes to the
// caller instead of the error handler. It must not be called from the loop
// itself.
func (l *Loop) Call(ctx context.Context, cmd Command) error {
	result := make(chan error, 1)
	err := l.Post(func() error {
		var cmdErr error
		defer func() {
			if r := recover(); r != nil {
				cmdErr = fmt.Errorf("command panicked: %v", r)
			}
			result <- cmdErr
		}()
		cmdErr = cmd()
		return nil
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// Stop ends Run. Queued commands are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Done is closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
