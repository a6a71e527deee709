package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()

	l, err := New("test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		require.NoError(t, l.Close())
	})

	// Wait until Run holds the loop.
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()

		return l.running
	}, time.Second, time.Millisecond)

	return l, cancel
}

func pipe(t *testing.T) (int, int) {
	t.Helper()

	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK))
	t.Cleanup(func() {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
	})

	return p[0], p[1]
}

func TestLoopInvalidParameters(t *testing.T) {
	var l *Loop
	assert.Error(t, l.RegisterFd(0, func() {}))
	assert.Error(t, l.Run(context.Background()))
	assert.NotPanics(t, func() {
		l.UnregisterFd(0)
		l.Post(func() {})
		l.Sync()
	})
	assert.NoError(t, l.Close())

	l, err := New("test")
	require.NoError(t, err)
	defer l.Close()
	assert.Error(t, l.RegisterFd(3, nil))
}

func TestRegisteredCallback(t *testing.T) {
	l, _ := startLoop(t)
	r, w := pipe(t)

	got := make(chan string, 4)
	require.NoError(t, l.RegisterFd(r, func() {
		buf := make([]byte, 16)
		n, _ := unix.Read(r, buf)
		got <- string(buf[:n])
	}))
	assert.True(t, l.Registered(r))

	_, err := unix.Write(w, []byte("ping"))
	require.NoError(t, err)

	select {
	case s := <-got:
		assert.Equal(t, "ping", s)
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}

	l.UnregisterFd(r)
	l.Sync()
	assert.False(t, l.Registered(r))

	_, err = unix.Write(w, []byte("pong"))
	require.NoError(t, err)
	l.Sync()

	select {
	case s := <-got:
		t.Fatalf("unregistered callback ran with %q", s)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPostOrder(t *testing.T) {
	l, _ := startLoop(t)

	var order []int
	for i := range 5 {
		l.Post(func() { order = append(order, i) })
	}
	l.Sync()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSyncWaitsForCallback(t *testing.T) {
	l, _ := startLoop(t)
	r, w := pipe(t)

	var finished atomic.Bool
	started := make(chan struct{})
	require.NoError(t, l.RegisterFd(r, func() {
		buf := make([]byte, 8)
		_, _ = unix.Read(r, buf)
		close(started)
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	}))

	_, err := unix.Write(w, []byte{1})
	require.NoError(t, err)
	<-started

	l.UnregisterFd(r)
	l.Sync()
	assert.True(t, finished.Load())
}

func TestSyncWithoutRun(t *testing.T) {
	l, err := New("idle")
	require.NoError(t, err)
	defer l.Close()

	done := make(chan struct{})
	go func() {
		l.Sync()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sync blocked on an idle loop")
	}
}

func TestPostedBeforeRun(t *testing.T) {
	l, err := New("early")
	require.NoError(t, err)
	defer l.Close()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	<-ran
	cancel()
	assert.NoError(t, <-done)
}

func TestRunTwice(t *testing.T) {
	l, _ := startLoop(t)

	assert.ErrorIs(t, l.Run(context.Background()), ErrRunning)
	assert.ErrorIs(t, l.Close(), ErrRunning)
}

func TestClosed(t *testing.T) {
	l, err := New("closed")
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.RegisterFd(3, func() {}), ErrClosed)
	assert.ErrorIs(t, l.Run(context.Background()), ErrClosed)
}
