// Package loop runs descriptor callbacks and posted closures on a single goroutine.
package loop

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/gen2brain/alsad/internal/logging"
)

var logger = logging.GetLogger("loop")

// ErrRunning is returned by Run when the loop is already running.
var ErrRunning = errors.New("loop is already running")

// ErrClosed is returned when registering on a closed loop.
var ErrClosed = errors.New("loop is closed")

type handler struct {
	events int16
	cb     func()
}

// Loop polls registered descriptors and calls their callbacks. Every callback
// and every posted closure runs on the goroutine that called Run.
type Loop struct {
	name string
	wake int

	mu       sync.Mutex
	handlers map[int]handler
	posted   []func()
	running  bool
	closed   bool
}

// New creates a loop. The name only labels log records.
func New(name string) (*Loop, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("eventfd failed: %w", err)
	}

	return &Loop{
		name:     name,
		wake:     fd,
		handlers: make(map[int]handler),
	}, nil
}

// RegisterFd calls cb whenever fd is readable.
func (l *Loop) RegisterFd(fd int, cb func()) error {
	return l.Watch(fd, unix.POLLIN, cb)
}

// Watch calls cb whenever fd reports any of the poll events.
func (l *Loop) Watch(fd int, events int16, cb func()) error {
	if l == nil {
		return fmt.Errorf("loop is nil")
	}

	if cb == nil {
		return fmt.Errorf("callback for fd %d is nil", fd)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()

		return ErrClosed
	}
	l.handlers[fd] = handler{events: events, cb: cb}
	l.mu.Unlock()

	l.wakeup()

	return nil
}

// UnregisterFd stops watching fd. A callback already running is not interrupted.
func (l *Loop) UnregisterFd(fd int) {
	if l == nil {
		return
	}

	l.mu.Lock()
	delete(l.handlers, fd)
	l.mu.Unlock()

	l.wakeup()
}

// Registered reports whether fd is watched.
func (l *Loop) Registered(fd int) bool {
	if l == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.handlers[fd]

	return ok
}

// Post queues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) {
	if l == nil || fn == nil {
		return
	}

	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()

	l.wakeup()
}

// Sync returns once every callback started before the call has finished.
// It must not be called from the loop goroutine.
func (l *Loop) Sync() {
	if l == nil {
		return
	}

	done := make(chan struct{})

	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()

		return
	}
	l.posted = append(l.posted, func() { close(done) })
	l.mu.Unlock()

	l.wakeup()
	<-done
}

// Run polls until ctx is cancelled. Closures posted before it returns still run.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil {
		return fmt.Errorf("loop is nil")
	}

	l.mu.Lock()
	if l.running {
		l.mu.Unlock()

		return ErrRunning
	}
	if l.closed {
		l.mu.Unlock()

		return ErrClosed
	}
	l.running = true
	l.mu.Unlock()

	stop := context.AfterFunc(ctx, l.wakeup)
	defer stop()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()

		l.runPosted()
	}()

	logger.Debug("Loop started", "loop", l.name)

	for {
		l.runPosted()

		if ctx.Err() != nil {
			logger.Debug("Loop stopped", "loop", l.name)

			return nil
		}

		pfds := l.pollSet()

		_, err := unix.Poll(pfds, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll failed: %w", err)
		}

		for _, p := range pfds {
			if p.Revents == 0 {
				continue
			}

			fd := int(p.Fd)
			if fd == l.wake {
				l.drainWake()

				continue
			}

			l.dispatch(fd, p.Revents)
		}
	}
}

func (l *Loop) pollSet() []unix.PollFd {
	l.mu.Lock()
	defer l.mu.Unlock()

	pfds := make([]unix.PollFd, 0, len(l.handlers)+1)
	pfds = append(pfds, unix.PollFd{Fd: int32(l.wake), Events: unix.POLLIN})

	for fd, h := range l.handlers {
		pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: h.events})
	}

	return pfds
}

func (l *Loop) dispatch(fd int, revents int16) {
	l.mu.Lock()
	h, ok := l.handlers[fd]
	if ok && revents&unix.POLLNVAL != 0 {
		delete(l.handlers, fd)
	}
	l.mu.Unlock()

	if !ok {
		return
	}

	if revents&unix.POLLNVAL != 0 {
		logger.Warn("Dropping invalid descriptor", "loop", l.name, "fd", fd)

		return
	}

	h.cb()
}

func (l *Loop) runPosted() {
	for {
		l.mu.Lock()
		posted := l.posted
		l.posted = nil
		l.mu.Unlock()

		if len(posted) == 0 {
			return
		}

		for _, fn := range posted {
			fn()
		}
	}
}

func (l *Loop) wakeup() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)

	if _, err := unix.Write(l.wake, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		logger.Warn("Failed to wake loop", "loop", l.name, "error", err)
	}
}

func (l *Loop) drainWake() {
	var buf [8]byte
	if _, err := unix.Read(l.wake, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		logger.Warn("Failed to read wakeup", "loop", l.name, "error", err)
	}
}

// Close releases the wakeup descriptor. The loop must not be running.
func (l *Loop) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	if l.running {
		return ErrRunning
	}
	l.closed = true
	l.handlers = make(map[int]handler)

	return unix.Close(l.wake)
}
