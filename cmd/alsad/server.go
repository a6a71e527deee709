package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/blacklist"
	"github.com/gen2brain/alsad/card"
	"github.com/gen2brain/alsad/internal/audiothread"
	"github.com/gen2brain/alsad/internal/config"
	"github.com/gen2brain/alsad/internal/events"
	"github.com/gen2brain/alsad/internal/logging"
	"github.com/gen2brain/alsad/internal/loop"
	"github.com/gen2brain/alsad/internal/metrics"
	"github.com/gen2brain/alsad/internal/system"
)

var logger = logging.GetLogger("main")

// hardware opens and describes cards.
type hardware interface {
	card.Hardware
	Describe(index uint32) (alsad.CardInfo, error)
}

// server owns the cards. Cards are added, removed and served on the main loop goroutine.
type server struct {
	opts *config.Options
	hw   hardware

	loop      *loop.Loop
	thread    *audiothread.Thread
	system    *system.State
	bus       *events.Bus
	notifier  *events.Notifier
	collector *metrics.DeviceCollector
	blacklist *blacklist.Blacklist

	cards map[uint32]*card.Manager
}

func newServer(opts *config.Options, hw hardware) (*server, error) {
	bl, err := blacklist.Load(opts.Blacklist)
	if err != nil {
		return nil, err
	}

	l, err := loop.New("main")
	if err != nil {
		return nil, fmt.Errorf("failed to create main loop: %w", err)
	}

	thread, err := audiothread.New()
	if err != nil {
		_ = l.Close()

		return nil, fmt.Errorf("failed to create audio thread: %w", err)
	}

	bus := events.New()

	return &server{
		opts:      opts,
		hw:        hw,
		loop:      l,
		thread:    thread,
		system:    system.New(),
		bus:       bus,
		notifier:  events.NewNotifier(bus),
		collector: metrics.NewDeviceCollector(),
		blacklist: bl,
		cards:     make(map[uint32]*card.Manager),
	}, nil
}

// CardAdded queues bringing up a card.
func (s *server) CardAdded(index uint32) {
	s.loop.Post(func() { s.addCard(index) })
}

// CardRemoved queues tearing down a card.
func (s *server) CardRemoved(index uint32) {
	s.loop.Post(func() { s.removeCard(index) })
}

func (s *server) addCard(index uint32) {
	if _, ok := s.cards[index]; ok {
		return
	}

	info, err := s.hw.Describe(index)
	if err != nil {
		logger.Warn("Failed to describe card", "index", index, "error", err)

		return
	}

	m, err := card.New(card.Config{
		Info:      info,
		ConfigDir: s.opts.CardConfigDir,
		UCMDir:    s.opts.UcmDir,
		UCMSuffix: s.opts.UcmSuffix,
		Blacklist: s.blacklist,
		Hardware:  s.hw,
		Loop:      s.loop,
		Opener: card.PCMOpener{
			PeriodFrames: uint32(max(s.opts.PeriodFrames, 0)),
			PeriodCount:  uint32(max(s.opts.PeriodCount, 0)),
		},
		Thread:   s.thread,
		System:   s.system,
		Notifier: s.notifier,
	})
	if errors.Is(err, card.ErrCardBlocked) {
		logger.Info("Skipping blacklisted card", "card", info.Name, "index", index)

		return
	}
	if err != nil {
		logger.Error("Failed to add card", "index", index, "error", err)

		return
	}

	s.cards[index] = m
	s.collector.Track(m.Devices()...)

	s.bus.Publish(events.CardAddedEvent{
		Card:    index,
		Name:    info.Name,
		USB:     info.Type == alsad.CardTypeUSB,
		Devices: len(m.Devices()),
	})
}

func (s *server) removeCard(index uint32) {
	m, ok := s.cards[index]
	if !ok {
		return
	}

	s.collector.Untrack(m.Devices()...)
	m.Destroy()
	delete(s.cards, index)

	logger.Info("Card removed", "card", m.Info().Name, "index", index)

	s.bus.Publish(events.CardRemovedEvent{Card: index, Name: m.Info().Name})
}

// close tears down every card. The main loop must not be running.
func (s *server) close() {
	for _, index := range slices.Sorted(maps.Keys(s.cards)) {
		s.removeCard(index)
	}

	if err := s.thread.Close(); err != nil {
		logger.Warn("Failed to close audio thread", "error", err)
	}

	if err := s.loop.Close(); err != nil {
		logger.Warn("Failed to close main loop", "error", err)
	}

	if err := s.bus.Close(); err != nil {
		logger.Warn("Failed to close event bus", "error", err)
	}
}
