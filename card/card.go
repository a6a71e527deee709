// Package card manages the lifetime of one sound card: its control handles,
// mixer, jacks, configuration and the devices created on it.
package card

import (
	"errors"
	"fmt"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/blacklist"
	"github.com/gen2brain/alsad/cardconfig"
	"github.com/gen2brain/alsad/hw"
	"github.com/gen2brain/alsad/internal/logging"
	"github.com/gen2brain/alsad/iodev"
	"github.com/gen2brain/alsad/jack"
	"github.com/gen2brain/alsad/mixer"
	"github.com/gen2brain/alsad/ucm"
)

var logger = logging.GetLogger("card")

var (
	// ErrNoHardware is returned when a Config lacks a Hardware.
	ErrNoHardware = errors.New("no hardware backend")
	// ErrCardBlocked is returned for a USB card whose every subdevice is blacklisted.
	ErrCardBlocked = errors.New("every device of the card is blacklisted")
)

// Config describes a card to bring up and the services its devices use.
type Config struct {
	Info alsad.CardInfo

	// ConfigDir holds per-card volume curves, <dir>/<card name>.toml.
	ConfigDir string
	// UCMDir holds use-case configurations, <dir>/<card name><suffix>.toml.
	UCMDir    string
	UCMSuffix string
	Blacklist *blacklist.Blacklist

	Hardware Hardware
	Loop     EventLoop
	Opener   iodev.Opener
	Thread   iodev.AudioThread
	System   iodev.SystemState
	Notifier iodev.Notifier
}

type deviceKey struct {
	dir   alsad.Direction
	index uint32
}

// Manager owns everything created for one card.
type Manager struct {
	cfg  Config
	info alsad.CardInfo

	ctl       Control
	events    EventSource
	mixer     *mixer.ControlSet
	ucm       *ucm.Config
	curves    *cardconfig.Config
	jackLists []*jack.List

	devices []*iodev.Device
	byKey   map[deviceKey]*iodev.Device
	fds     []int
}

// New opens a card and creates its devices. On failure everything created so far is released.
func New(cfg Config) (*Manager, error) {
	if cfg.Hardware == nil {
		return nil, ErrNoHardware
	}

	m := &Manager{
		cfg:   cfg,
		info:  cfg.Info,
		byKey: make(map[deviceKey]*iodev.Device),
	}

	if err := m.init(); err != nil {
		m.Destroy()

		return nil, fmt.Errorf("failed to create %s: %w", cfg.Info, err)
	}

	logger.Info("Card added", "card", m.info.Name, "index", m.info.Index, "type", m.info.Type, "devices", len(m.devices))

	return m, nil
}

func (m *Manager) init() error {
	ctl, err := m.cfg.Hardware.OpenControl(m.info.Index)
	if err != nil {
		return err
	}
	m.ctl = ctl

	m.curves, err = cardconfig.Load(m.cfg.ConfigDir, m.info.Name)
	if err != nil {
		logger.Warn("Ignoring volume config", "card", m.info.Name, "error", err)
		m.curves = nil
	}

	m.ucm, err = ucm.Load(m.cfg.UCMDir, m.info.Name, m.cfg.UCMSuffix)
	if err != nil {
		logger.Warn("Ignoring use-case config", "card", m.info.Name, "error", err)
		m.ucm = nil
	}

	// Without events jacks are read once and never again.
	m.events, err = m.cfg.Hardware.OpenEvents(m.info.Index)
	if err != nil {
		logger.Warn("Jack events unavailable", "card", m.info.Name, "error", err)
		m.events = nil
	}

	m.mixer, err = mixer.New(ctl)
	if err != nil {
		return err
	}
	m.ucm.SetWriter(m.mixer)

	if m.ucm.FullySpecified() {
		err = m.initFromSections()
	} else {
		err = m.initLegacy()
	}
	if err != nil {
		return err
	}

	return m.registerEvents()
}

// initFromSections creates one device per declared (direction, subdevice) the hardware reports.
func (m *Manager) initFromSections() error {
	pcms, err := m.listPCMs()
	if err != nil {
		return err
	}

	var created []*iodev.Device

	for _, sec := range m.ucm.Sections {
		if err := m.mixer.AddControlsForSection(sec); err != nil {
			return err
		}

		key := deviceKey{dir: sec.Direction, index: sec.Device}
		d := m.byKey[key]
		if d == nil {
			info, first, ok := findPCM(pcms[sec.Direction], sec.Device)
			if !ok {
				logger.Warn("Section names a missing subdevice", "card", m.info.Name, "section", sec.Name, "device", sec.Device, "direction", sec.Direction)

				continue
			}

			d, err = m.newDevice(info, sec.Direction, first)
			if err != nil {
				return err
			}
			created = append(created, d)
		}

		if err := d.AddNodeAndJack(sec); err != nil {
			if errors.Is(err, iodev.ErrNoControl) {
				return err
			}

			logger.Warn("Failed to add section", "card", m.info.Name, "section", sec.Name, "error", err)
		}
	}

	for _, d := range created {
		d.CompleteInitUCM()
	}

	return nil
}

// initLegacy discovers controls by name and creates a device for every reported subdevice.
func (m *Manager) initLegacy() error {
	var extra []string
	var coupled map[string][]string
	if m.ucm != nil {
		extra, coupled = m.ucm.MainVolumeNames, m.ucm.CoupledMixers
	}

	if err := m.mixer.AddControlsMatchingNames(extra, coupled); err != nil {
		return err
	}

	pcms, err := m.listPCMs()
	if err != nil {
		return err
	}

	listed, blocked := 0, 0

	for _, dir := range []alsad.Direction{alsad.Output, alsad.Input} {
		for i, info := range pcms[dir] {
			listed++

			if m.blocked(info.Device) {
				logger.Info("Skipping blacklisted device", "card", m.info.Name, "device", info.Device, "direction", dir)
				blocked++

				continue
			}

			if m.byKey[deviceKey{dir, info.Device}] != nil {
				continue
			}

			d, err := m.newDevice(info, dir, i == 0)
			if err != nil {
				return err
			}

			if err := d.LegacyCompleteInit(); err != nil {
				logger.Error("Failed to initialize device", "device", d.Name(), "error", err)
				m.removeDevice(d)
			}
		}
	}

	if listed > 0 && blocked == listed {
		return ErrCardBlocked
	}

	return nil
}

func (m *Manager) blocked(device uint32) bool {
	if m.info.Type != alsad.CardTypeUSB {
		return false
	}

	return m.cfg.Blacklist.IsBlocked(m.info.VendorID, m.info.ProductID, m.info.Checksum, device)
}

func (m *Manager) listPCMs() (map[alsad.Direction][]hw.PcmInfo, error) {
	out, err := m.ctl.PcmDevices(hw.SNDRV_PCM_STREAM_PLAYBACK)
	if err != nil {
		return nil, fmt.Errorf("failed to list playback devices: %w", err)
	}

	in, err := m.ctl.PcmDevices(hw.SNDRV_PCM_STREAM_CAPTURE)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}

	return map[alsad.Direction][]hw.PcmInfo{alsad.Output: out, alsad.Input: in}, nil
}

// findPCM returns the subdevice with the given index and whether it is the first of its direction.
func findPCM(pcms []hw.PcmInfo, device uint32) (hw.PcmInfo, bool, bool) {
	for i, p := range pcms {
		if p.Device == device {
			return p, i == 0, true
		}
	}

	return hw.PcmInfo{}, false, false
}

func (m *Manager) newDevice(info hw.PcmInfo, dir alsad.Direction, first bool) (*iodev.Device, error) {
	p := iodev.Params{
		Card:      m.info,
		Device:    info.Device,
		PCMName:   info.Name,
		PCMID:     info.ID,
		Direction: dir,
		First:     first,
		Mixer:     m.mixer,
		Jacks:     m.jackFactory(info.Device, first, dir),
		System:    m.cfg.System,
		Opener:    m.cfg.Opener,
		Thread:    m.cfg.Thread,
		Notifier:  m.cfg.Notifier,
	}
	if m.curves != nil {
		p.Config = m.curves
	}
	if m.ucm != nil {
		p.UCM = m.ucm
	}

	d, err := iodev.New(p)
	if err != nil {
		return nil, err
	}

	m.devices = append(m.devices, d)
	m.byKey[deviceKey{dir, info.Device}] = d

	return d, nil
}

func (m *Manager) removeDevice(d *iodev.Device) {
	d.Destroy()
	delete(m.byKey, deviceKey{d.Direction(), d.Index()})

	for i, other := range m.devices {
		if other == d {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)

			break
		}
	}
}

// registerEvents watches the event handle when a jack needs it.
func (m *Manager) registerEvents() error {
	if m.events == nil || m.cfg.Loop == nil {
		return nil
	}

	polled := false
	for _, d := range m.devices {
		if d.HasPolledJacks() {
			polled = true

			break
		}
	}

	if !polled {
		return nil
	}

	fd := m.events.Fd()
	if err := m.cfg.Loop.RegisterFd(fd, m.handleEvents); err != nil {
		return fmt.Errorf("failed to watch control events: %w", err)
	}
	m.fds = append(m.fds, fd)

	return nil
}

// handleEvents drains the event handle and passes every event to every jack list.
func (m *Manager) handleEvents() {
	events, err := m.events.ReadEvents()
	if err != nil {
		logger.Warn("Failed to read control events", "card", m.info.Name, "error", err)
	}

	for _, ev := range events {
		for _, l := range m.jackLists {
			l.HandleEvent(ev)
		}
	}
}

// Destroy releases the devices and every handle of the card. It is safe on nil and repeated calls.
func (m *Manager) Destroy() {
	if m == nil {
		return
	}

	for _, d := range m.devices {
		d.Destroy()
	}
	m.devices = nil
	m.byKey = make(map[deviceKey]*iodev.Device)
	m.jackLists = nil

	for _, fd := range m.fds {
		m.cfg.Loop.UnregisterFd(fd)
	}
	m.fds = nil

	if m.events != nil {
		if err := m.events.Close(); err != nil {
			logger.Warn("Failed to close event handle", "card", m.info.Name, "error", err)
		}
		m.events = nil
	}

	m.ucm = nil
	m.mixer = nil
	m.curves = nil

	if m.ctl != nil {
		if err := m.ctl.Close(); err != nil {
			logger.Warn("Failed to close control handle", "card", m.info.Name, "error", err)
		}
		m.ctl = nil
	}
}

// Index returns the card index.
func (m *Manager) Index() uint32 { return m.info.Index }

// Info returns the card description.
func (m *Manager) Info() alsad.CardInfo { return m.info }

// Devices returns the devices in creation order.
func (m *Manager) Devices() []*iodev.Device {
	return append([]*iodev.Device(nil), m.devices...)
}

// Device returns the device for a direction and subdevice, or nil.
func (m *Manager) Device(dir alsad.Direction, index uint32) *iodev.Device {
	return m.byKey[deviceKey{dir, index}]
}

// UseCase returns the use-case configuration of the card, or nil.
func (m *Manager) UseCase() *ucm.Config { return m.ucm }
