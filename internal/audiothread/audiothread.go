// Package audiothread runs stream callbacks on a dedicated goroutine.
package audiothread

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/gen2brain/alsad/internal/logging"
	"github.com/gen2brain/alsad/internal/loop"
)

var logger = logging.GetLogger("audiothread")

// Thread calls a stream callback whenever its descriptor is ready for I/O.
// A callback returning an error is removed.
type Thread struct {
	loop *loop.Loop

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// New creates a stopped thread.
func New() (*Thread, error) {
	l, err := loop.New("audio")
	if err != nil {
		return nil, err
	}

	return &Thread{loop: l}, nil
}

// Start runs the thread until Stop.
func (t *Thread) Start() error {
	if t == nil {
		return fmt.Errorf("audio thread is nil")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return loop.ErrRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan error, 1)

	go func(done chan<- error) {
		done <- t.loop.Run(ctx)
	}(t.done)

	return nil
}

// Stop ends the thread and waits for it. It is safe to call on a stopped thread.
func (t *Thread) Stop() error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()

	return <-done
}

// Close stops the thread and releases its descriptors.
func (t *Thread) Close() error {
	if t == nil {
		return nil
	}

	if err := t.Stop(); err != nil {
		logger.Warn("Audio thread stopped with error", "error", err)
	}

	return t.loop.Close()
}

// AddCallback runs cb whenever fd is readable or writable.
func (t *Thread) AddCallback(fd int, cb func() error) error {
	if t == nil {
		return fmt.Errorf("audio thread is nil")
	}

	return t.loop.Watch(fd, unix.POLLIN|unix.POLLOUT, func() {
		if err := cb(); err != nil {
			logger.Warn("Removing failed stream callback", "fd", fd, "error", err)
			t.loop.UnregisterFd(fd)
		}
	})
}

// RemoveCallback stops calling the callback of fd. One already running may still finish.
func (t *Thread) RemoveCallback(fd int) {
	if t == nil {
		return
	}

	t.loop.UnregisterFd(fd)
}

// RemoveCallbackSync removes the callback of fd and returns after any call in progress has returned.
// It must not be called from a callback.
func (t *Thread) RemoveCallbackSync(fd int) {
	if t == nil {
		return
	}

	t.loop.UnregisterFd(fd)
	t.loop.Sync()
}

// HasCallback reports whether fd has a callback.
func (t *Thread) HasCallback(fd int) bool {
	return t != nil && t.loop.Registered(fd)
}
