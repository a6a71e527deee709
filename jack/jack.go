// Package jack detects headphone, microphone and HDMI connections through the
// "... Jack" boolean elements a card exposes on its control interface.
package jack

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/hw"
	"github.com/gen2brain/alsad/internal/logging"
	"github.com/gen2brain/alsad/ucm"
)

var logger = logging.GetLogger("jack")

// ErrNotFound is returned when a section names a jack the card does not expose.
var ErrNotFound = errors.New("jack not found")

var (
	outputJackNames = []string{"Headphone Jack", "Front Headphone Jack", "Line Out Jack", "Speaker Phantom Jack"}
	inputJackNames  = []string{"Mic Jack", "Front Mic Jack", "Rear Mic Jack", "Headset Jack"}
)

const (
	hdmiPrefix = "HDMI/DP,pcm="
	eldName    = "ELD"

	// ELD baseline block: monitor name length in byte 4, name from byte 20.
	eldNameLenOffset = 4
	eldNameOffset    = 20
	eldNameLenMask   = 0x1f
)

// ElemReader is the subset of a control device jacks read from.
type ElemReader interface {
	Elems() ([]hw.ElemInfo, error)
	ReadValues(numid uint32, count uint32) ([]int64, error)
	ReadBytes(numid uint32, count uint32) ([]byte, error)
}

// Controls looks up mixer controls that belong with a jack.
type Controls interface {
	OutputMatchingName(name string) alsad.Control
	InputMatchingName(name string) alsad.Control
	ControlForSection(sec ucm.Section) alsad.Control
}

// RouteSwitch enables and disables use-case routes.
type RouteSwitch interface {
	SetEnabled(device string, enabled bool) error
}

// Callback receives every plug state change.
type Callback func(j *Jack, plugged bool)

// Config describes which jacks a list watches.
type Config struct {
	Reader    ElemReader
	Controls  Controls
	Routes    RouteSwitch
	Device    uint32
	First     bool
	Direction alsad.Direction
	Callback  Callback
}

// Jack is one plug detector.
type Jack struct {
	name        string
	elem        hw.ElemInfo
	eld         *hw.ElemInfo
	plugged     bool
	ucmDevice   string
	dspName     string
	mixerOutput alsad.Control
	mixerInput  alsad.Control
	list        *List
}

// Name returns the element name, e.g. "Headphone Jack".
func (j *Jack) Name() string { return j.name }

// DSPName returns the DSP key declared for the jack's route.
func (j *Jack) DSPName() string { return j.dspName }

// UCMDevice returns the use-case section the jack belongs to.
func (j *Jack) UCMDevice() string { return j.ucmDevice }

// MixerOutput returns the output control switched by this jack, or nil.
func (j *Jack) MixerOutput() alsad.Control { return j.mixerOutput }

// MixerInput returns the input control switched by this jack, or nil.
func (j *Jack) MixerInput() alsad.Control { return j.mixerInput }

// Plugged returns the last read plug state.
func (j *Jack) Plugged() bool { return j.plugged }

// MonitorName reads the sink name from the ELD of an HDMI jack.
func (j *Jack) MonitorName() string {
	if j.eld == nil {
		return ""
	}

	eld, err := j.list.reader.ReadBytes(j.eld.NumID, j.eld.Count)
	if err != nil {
		logger.Debug("Failed to read ELD", "jack", j.name, "error", err)

		return ""
	}

	return parseMonitorName(eld)
}

func parseMonitorName(eld []byte) string {
	if len(eld) <= eldNameOffset {
		return ""
	}

	n := int(eld[eldNameLenOffset] & eldNameLenMask)
	end := min(eldNameOffset+n, len(eld))

	return strings.TrimRight(string(eld[eldNameOffset:end]), "\x00")
}

// UpdateNodeType corrects the type of a node from what the jack reveals.
func (j *Jack) UpdateNodeType(t alsad.NodeType) alsad.NodeType {
	switch {
	case strings.HasPrefix(j.name, hdmiPrefix):
		return alsad.NodeTypeHDMI
	case strings.HasPrefix(j.name, "Line Out"):
		return alsad.NodeTypeLineout
	default:
		return t
	}
}

// SetRouteEnabled runs the use-case enable or disable sequence of the jack's route.
func (j *Jack) SetRouteEnabled(enabled bool) error {
	if j.ucmDevice == "" || j.list.routes == nil {
		return nil
	}

	return j.list.routes.SetEnabled(j.ucmDevice, enabled)
}

// List is the set of jacks of one device.
type List struct {
	reader   ElemReader
	controls Controls
	routes   RouteSwitch
	device   uint32
	first    bool
	dir      alsad.Direction
	callback Callback
	elems    []hw.ElemInfo
	jacks    []*Jack
}

// New creates an empty jack list for one device.
func New(cfg Config) (*List, error) {
	if cfg.Reader == nil {
		return nil, fmt.Errorf("control device is nil")
	}

	elems, err := cfg.Reader.Elems()
	if err != nil {
		return nil, fmt.Errorf("failed to list jack elements: %w", err)
	}

	return &List{
		reader:   cfg.Reader,
		controls: cfg.Controls,
		routes:   cfg.Routes,
		device:   cfg.Device,
		first:    cfg.First,
		dir:      cfg.Direction,
		callback: cfg.Callback,
		elems:    elems,
	}, nil
}

// Jacks returns the jacks found so far.
func (l *List) Jacks() []*Jack {
	if l == nil {
		return nil
	}

	return l.jacks
}

// wanted reports whether elem is a jack this list should watch.
func (l *List) wanted(e hw.ElemInfo) bool {
	if e.Iface != hw.SNDRV_CTL_ELEM_IFACE_CARD || e.Type != hw.SNDRV_CTL_ELEM_TYPE_BOOLEAN {
		return false
	}

	if l.dir == alsad.Output && strings.HasPrefix(e.Name, hdmiPrefix) {
		dev, ok := hdmiDevice(e.Name)

		return ok && dev == l.device
	}

	// Analog jacks belong to the first device of each direction.
	if !l.first {
		return false
	}

	names := outputJackNames
	if l.dir == alsad.Input {
		names = inputJackNames
	}

	for _, n := range names {
		if e.Name == n {
			return true
		}
	}

	return false
}

func hdmiDevice(name string) (uint32, bool) {
	rest := strings.TrimSuffix(strings.TrimPrefix(name, hdmiPrefix), " Jack")

	dev, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}

	return uint32(dev), true
}

// FindByNameMatching picks up every jack whose element name is known for this direction.
func (l *List) FindByNameMatching() error {
	if l == nil {
		return fmt.Errorf("jack list is nil")
	}

	for _, e := range l.elems {
		if !l.wanted(e) || l.byNumID(e.NumID) != nil {
			continue
		}

		j := l.add(e)
		if l.controls == nil {
			continue
		}

		base := strings.TrimSuffix(e.Name, " Jack")
		if l.dir == alsad.Output {
			j.mixerOutput = l.controls.OutputMatchingName(base)
		} else {
			j.mixerInput = l.controls.InputMatchingName(base)
		}
	}

	return nil
}

// AddForSection adds the jack a use-case section names. A section without a jack yields nil.
func (l *List) AddForSection(sec ucm.Section) (*Jack, error) {
	if l == nil {
		return nil, fmt.Errorf("jack list is nil")
	}

	if sec.Jack == "" {
		return nil, nil
	}

	if sec.JackType != "" && sec.JackType != "hctl" {
		logger.Warn("Unsupported jack type, using control interface", "section", sec.Name, "type", sec.JackType)
	}

	var elem *hw.ElemInfo
	for i := range l.elems {
		e := l.elems[i]
		if e.Iface == hw.SNDRV_CTL_ELEM_IFACE_CARD && e.Name == sec.Jack {
			elem = &e

			break
		}
	}

	if elem == nil {
		return nil, fmt.Errorf("section %s jack %q: %w", sec.Name, sec.Jack, ErrNotFound)
	}

	j := l.byNumID(elem.NumID)
	if j == nil {
		j = l.add(*elem)
	}

	j.ucmDevice = sec.Name
	j.dspName = sec.DSP

	if l.controls != nil {
		if ctl := l.controls.ControlForSection(sec); ctl != nil {
			if sec.Direction == alsad.Output {
				j.mixerOutput = ctl
			} else {
				j.mixerInput = ctl
			}
		}
	}

	return j, nil
}

func (l *List) add(e hw.ElemInfo) *Jack {
	j := &Jack{name: e.Name, elem: e, list: l}

	if strings.HasPrefix(e.Name, hdmiPrefix) {
		j.eld = l.findELD()
	}

	if v, err := l.reader.ReadValues(e.NumID, 1); err == nil && len(v) > 0 {
		j.plugged = v[0] != 0
	} else if err != nil {
		logger.Warn("Failed to read jack state", "jack", e.Name, "error", err)
	}

	l.jacks = append(l.jacks, j)
	logger.Debug("Found jack", "jack", e.Name, "device", l.device, "direction", l.dir, "plugged", j.plugged)

	return j
}

func (l *List) findELD() *hw.ElemInfo {
	for i := range l.elems {
		e := l.elems[i]
		if e.Iface == hw.SNDRV_CTL_ELEM_IFACE_PCM && e.Name == eldName && e.Device == l.device {
			return &e
		}
	}

	return nil
}

func (l *List) byNumID(numid uint32) *Jack {
	for _, j := range l.jacks {
		if j.elem.NumID == numid {
			return j
		}
	}

	return nil
}

// Report delivers the current state of every jack to the callback.
func (l *List) Report() {
	if l == nil || l.callback == nil {
		return
	}

	for _, j := range l.jacks {
		l.callback(j, j.plugged)
	}
}

// HasPolledJacks reports whether any jack needs control events to be watched.
func (l *List) HasPolledJacks() bool {
	return l != nil && len(l.jacks) > 0
}

// HandleEvent re-reads the jack an event refers to and reports a changed state.
func (l *List) HandleEvent(ev hw.Event) {
	if l == nil || !ev.ValueChanged() {
		return
	}

	j := l.byNumID(ev.NumID)
	if j == nil {
		return
	}

	v, err := l.reader.ReadValues(j.elem.NumID, 1)
	if err != nil || len(v) == 0 {
		logger.Warn("Failed to read jack state", "jack", j.name, "error", err)

		return
	}

	plugged := v[0] != 0
	if plugged == j.plugged {
		return
	}

	j.plugged = plugged
	logger.Info("Jack state changed", "jack", j.name, "plugged", plugged)

	if l.callback != nil {
		l.callback(j, plugged)
	}
}

// Destroy drops every jack.
func (l *List) Destroy() {
	if l == nil {
		return
	}

	l.jacks = nil
	l.elems = nil
}
