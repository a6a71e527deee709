// Package hotplug reports sound cards appearing and disappearing under the device-node directory.
package hotplug

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gen2brain/alsad/internal/logging"
)

var logger = logging.GetLogger("hotplug")

var controlRegex = regexp.MustCompile(`^controlC(\d+)$`)

// Handler is told about card changes. Calls come from the monitor goroutine, one at a time.
type Handler interface {
	CardAdded(index uint32)
	CardRemoved(index uint32)
}

// Scan returns the indices of the cards with a control node in dir, in ascending order.
func Scan(dir string) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var cards []uint32
	for _, e := range entries {
		if index, ok := cardIndex(e.Name()); ok {
			cards = append(cards, index)
		}
	}
	slices.Sort(cards)

	return cards, nil
}

func cardIndex(name string) (uint32, bool) {
	m := controlRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}

	index, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, false
	}

	return uint32(index), true
}

// Monitor watches a device-node directory.
type Monitor struct {
	dir     string
	settle  time.Duration
	handler Handler

	mu      sync.Mutex
	present map[uint32]bool

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithSettle sets how long to wait after the last node change before rescanning.
// The kernel creates a card's nodes one by one. Default is 500ms.
func WithSettle(d time.Duration) Option {
	return func(m *Monitor) {
		m.settle = d
	}
}

// New creates a monitor of dir reporting to h.
func New(dir string, h Handler, opts ...Option) *Monitor {
	m := &Monitor{
		dir:     dir,
		settle:  500 * time.Millisecond,
		handler: h,
		present: make(map[uint32]bool),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start reports the cards already present as added, then watches for changes.
func (m *Monitor) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(m.dir); err != nil {
		_ = watcher.Close()

		return fmt.Errorf("failed to watch %s: %w", m.dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.watcher, m.cancel = watcher, cancel
	m.done = make(chan struct{})

	m.rescan()

	logger.Info("Watching for cards", "dir", m.dir, "present", len(m.Present()))
	go m.watch(ctx)

	return nil
}

// Stop ends watching and waits for a report in progress.
func (m *Monitor) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	err := m.watcher.Close()
	<-m.done
	m.cancel = nil

	return err
}

// Present returns the indices of the cards last seen, in ascending order.
func (m *Monitor) Present() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	cards := make([]uint32, 0, len(m.present))
	for index := range m.present {
		cards = append(cards, index)
	}
	slices.Sort(cards)

	return cards
}

func (m *Monitor) watch(ctx context.Context) {
	defer close(m.done)

	var timer *time.Timer
	var timerC <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if _, isControl := cardIndex(filepath.Base(ev.Name)); !isControl {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}

			logger.Debug("Control node changed", "node", ev.Name, "op", ev.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(m.settle)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			m.rescan()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Device watcher error", "error", err)
		}
	}
}

// rescan diffs the present cards against the last scan. Removals are reported before additions
// so that a card index reused by a new card is torn down first.
func (m *Monitor) rescan() {
	cards, err := Scan(m.dir)
	if err != nil {
		logger.Warn("Failed to scan cards", "error", err)

		return
	}

	current := make(map[uint32]bool, len(cards))
	for _, index := range cards {
		current[index] = true
	}

	m.mu.Lock()
	var removed, added []uint32
	for index := range m.present {
		if !current[index] {
			removed = append(removed, index)
		}
	}
	for _, index := range cards {
		if !m.present[index] {
			added = append(added, index)
		}
	}
	m.present = current
	m.mu.Unlock()

	slices.Sort(removed)

	for _, index := range removed {
		logger.Info("Card removed", "index", index)
		m.handler.CardRemoved(index)
	}

	for _, index := range added {
		logger.Info("Card added", "index", index)
		m.handler.CardAdded(index)
	}
}
