// Package mixer groups the volume and switch elements of a card into output and input controls.
package mixer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/hw"
	"github.com/gen2brain/alsad/internal/logging"
	"github.com/gen2brain/alsad/ucm"
)

var logger = logging.GetLogger("mixer")

// ErrNoControl is returned when a section names a control the card does not have.
var ErrNoControl = errors.New("no such mixer control")

var (
	mainVolumeNames  = []string{"Master", "Digital"}
	mainCaptureNames = []string{"Capture", "Digital"}
	outputNames      = []string{"Headphone", "Headset", "HDMI", "Speaker"}
	inputNames       = []string{"Mic", "Microphone"}
)

// Elems is the subset of a control device the mixer needs.
type Elems interface {
	Elems() ([]hw.ElemInfo, error)
	ReadValues(numid uint32, count uint32) ([]int64, error)
	WriteValues(numid uint32, values []int64) error
	DBScale(e hw.ElemInfo) (*hw.DBScale, error)
}

type elem struct {
	info  hw.ElemInfo
	scale *hw.DBScale
}

// group is every element sharing one base name in one direction.
type group struct {
	name   string
	volume *elem
	swtch  *elem
}

// Control is one output or input control, possibly made of several coupled groups.
type Control struct {
	name     string
	dir      alsad.Direction
	volumes  []*elem
	switches []*elem
}

// Name returns the control name.
func (c *Control) Name() string {
	return c.name
}

// Direction returns the direction the control belongs to.
func (c *Control) Direction() alsad.Direction {
	return c.dir
}

// HasVolume reports whether the control carries a dB-capable volume element.
func (c *Control) HasVolume() bool {
	return len(c.volumes) > 0
}

// HasSwitch reports whether the control carries a mute switch.
func (c *Control) HasSwitch() bool {
	return len(c.switches) > 0
}

// ControlSet is the mixer of one card.
type ControlSet struct {
	ctl      Elems
	byName   map[string]hw.ElemInfo
	playback map[string]*group
	capture  map[string]*group

	mainVolume    []*elem
	mainSwitch    []*elem
	mainCapture   []*elem
	captureSwitch []*elem

	outputs []*Control
	inputs  []*Control
}

// New reads the element list of a card.
func New(ctl Elems) (*ControlSet, error) {
	if ctl == nil {
		return nil, fmt.Errorf("control device is nil")
	}

	infos, err := ctl.Elems()
	if err != nil {
		return nil, fmt.Errorf("failed to list mixer elements: %w", err)
	}

	m := &ControlSet{
		ctl:      ctl,
		byName:   make(map[string]hw.ElemInfo),
		playback: make(map[string]*group),
		capture:  make(map[string]*group),
	}

	for _, info := range infos {
		if info.Iface != hw.SNDRV_CTL_ELEM_IFACE_MIXER {
			continue
		}

		m.byName[info.Name] = info
		m.classify(info)
	}

	return m, nil
}

// classify files an element under its base name.
func (m *ControlSet) classify(info hw.ElemInfo) {
	name := info.Name
	groups := m.playback
	isSwitch := false

	switch {
	case name == "Capture Volume":
		name, groups = "Capture", m.capture
	case name == "Capture Switch":
		name, groups, isSwitch = "Capture", m.capture, true
	case strings.HasSuffix(name, " Capture Volume"):
		name, groups = strings.TrimSuffix(name, " Capture Volume"), m.capture
	case strings.HasSuffix(name, " Capture Switch"):
		name, groups, isSwitch = strings.TrimSuffix(name, " Capture Switch"), m.capture, true
	case strings.HasSuffix(name, " Playback Volume"):
		name = strings.TrimSuffix(name, " Playback Volume")
	case strings.HasSuffix(name, " Playback Switch"):
		name, isSwitch = strings.TrimSuffix(name, " Playback Switch"), true
	case strings.HasSuffix(name, " Volume"):
		name = strings.TrimSuffix(name, " Volume")
	case strings.HasSuffix(name, " Switch"):
		name, isSwitch = strings.TrimSuffix(name, " Switch"), true
	default:
		return
	}

	g := groups[name]
	if g == nil {
		g = &group{name: name}
		groups[name] = g
	}

	if isSwitch {
		if info.Type == hw.SNDRV_CTL_ELEM_TYPE_BOOLEAN && info.Writable() {
			g.swtch = &elem{info: info}
		}

		return
	}

	if info.Type != hw.SNDRV_CTL_ELEM_TYPE_INTEGER || !info.Writable() {
		return
	}

	scale, err := m.ctl.DBScale(info)
	if err != nil {
		logger.Debug("Volume element has no dB scale", "elem", info.Name, "error", err)

		return
	}

	g.volume = &elem{info: info, scale: scale}
}

func (m *ControlSet) groups(dir alsad.Direction) map[string]*group {
	if dir == alsad.Input {
		return m.capture
	}

	return m.playback
}

// sortedNames returns the group names of one direction in a stable order.
func sortedNames(groups map[string]*group) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// AddControlsMatchingNames picks the main controls and the per-endpoint controls by name.
// extraMain adds main volume names; coupled declares output controls built from several groups.
func (m *ControlSet) AddControlsMatchingNames(extraMain []string, coupled map[string][]string) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	for _, name := range append(append([]string{}, mainVolumeNames...), extraMain...) {
		if g := m.playback[name]; g != nil {
			if g.volume != nil {
				m.mainVolume = append(m.mainVolume, g.volume)
			}
			if g.swtch != nil {
				m.mainSwitch = append(m.mainSwitch, g.swtch)
			}
		}
	}

	for _, name := range mainCaptureNames {
		g := m.capture[name]
		if g == nil {
			continue
		}

		if g.volume != nil {
			m.mainCapture = append(m.mainCapture, g.volume)
		}
		if g.swtch != nil {
			m.captureSwitch = append(m.captureSwitch, g.swtch)
		}
	}

	for _, name := range sortedNames(m.playback) {
		if hasPrefix(name, outputNames) {
			m.addControl(name, alsad.Output, []string{name})
		}
	}

	for _, name := range sortedNames(m.capture) {
		if hasPrefix(name, inputNames) {
			m.addControl(name, alsad.Input, []string{name})
		}
	}

	names := make([]string, 0, len(coupled))
	for name := range coupled {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if ctl := m.addControl(name, alsad.Output, coupled[name]); ctl == nil {
			logger.Warn("Coupled control has no usable elements", "control", name)
		}
	}

	return nil
}

// AddControlsForSection adds the control a use-case section refers to.
func (m *ControlSet) AddControlsForSection(sec ucm.Section) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	switch {
	case len(sec.Coupled) > 0:
		if m.addControl(sec.Name, sec.Direction, sec.Coupled) == nil {
			return fmt.Errorf("section %s: %w", sec.Name, ErrNoControl)
		}
	case sec.Mixer != "":
		if m.lookup(sec.Mixer, sec.Direction) != nil {
			return nil
		}
		if m.addControl(sec.Mixer, sec.Direction, []string{sec.Mixer}) == nil {
			return fmt.Errorf("section %s mixer %q: %w", sec.Name, sec.Mixer, ErrNoControl)
		}
	}

	return nil
}

func (m *ControlSet) addControl(name string, dir alsad.Direction, groupNames []string) *Control {
	if existing := m.lookup(name, dir); existing != nil {
		return existing
	}

	ctl := &Control{name: name, dir: dir}
	groups := m.groups(dir)

	for _, gn := range groupNames {
		g := groups[gn]
		if g == nil {
			continue
		}
		if g.volume != nil {
			ctl.volumes = append(ctl.volumes, g.volume)
		}
		if g.swtch != nil {
			ctl.switches = append(ctl.switches, g.swtch)
		}
	}

	if !ctl.HasVolume() && !ctl.HasSwitch() {
		return nil
	}

	if dir == alsad.Input {
		m.inputs = append(m.inputs, ctl)
	} else {
		m.outputs = append(m.outputs, ctl)
	}

	logger.Debug("Added mixer control", "control", name, "direction", dir, "volumes", len(ctl.volumes), "switches", len(ctl.switches))

	return ctl
}

func (m *ControlSet) lookup(name string, dir alsad.Direction) *Control {
	list := m.outputs
	if dir == alsad.Input {
		list = m.inputs
	}

	for _, c := range list {
		if c.name == name {
			return c
		}
	}

	return nil
}

// ControlForSection returns the control of a section, or nil.
func (m *ControlSet) ControlForSection(sec ucm.Section) alsad.Control {
	if m == nil {
		return nil
	}

	name := sec.Mixer
	if len(sec.Coupled) > 0 {
		name = sec.Name
	}

	if name == "" {
		return nil
	}

	if c := m.lookup(name, sec.Direction); c != nil {
		return c
	}

	return nil
}

// OutputMatchingName returns the output control whose name prefixes name, or nil.
func (m *ControlSet) OutputMatchingName(name string) alsad.Control {
	if m == nil {
		return nil
	}

	return m.matching(m.outputs, name)
}

// InputMatchingName returns the input control whose name prefixes name, or nil.
func (m *ControlSet) InputMatchingName(name string) alsad.Control {
	if m == nil {
		return nil
	}

	return m.matching(m.inputs, name)
}

func (m *ControlSet) matching(list []*Control, name string) alsad.Control {
	for _, c := range list {
		if strings.HasPrefix(name, c.name) {
			return c
		}
	}

	return nil
}

// ListOutputs calls fn for every output control in discovery order.
func (m *ControlSet) ListOutputs(fn func(alsad.Control)) {
	if m == nil {
		return
	}

	for _, c := range m.outputs {
		fn(c)
	}
}

// ListInputs calls fn for every input control in discovery order.
func (m *ControlSet) ListInputs(fn func(alsad.Control)) {
	if m == nil {
		return
	}

	for _, c := range m.inputs {
		fn(c)
	}
}

func asControl(c alsad.Control) *Control {
	ctl, _ := c.(*Control)

	return ctl
}

// setDB spreads dB over main elements first and puts the remainder on the control.
func (m *ControlSet) setDB(main []*elem, ctl *Control, db int64) error {
	remaining := db

	for _, e := range main {
		applied, err := m.writeDB(e, remaining)
		if err != nil {
			return err
		}
		remaining -= applied
	}

	if ctl == nil {
		return nil
	}

	for _, e := range ctl.volumes {
		if _, err := m.writeDB(e, remaining); err != nil {
			return err
		}
	}

	return nil
}

func (m *ControlSet) writeDB(e *elem, db int64) (int64, error) {
	raw := e.scale.FromDB(db)
	if err := m.writeAll(e.info, raw); err != nil {
		return 0, fmt.Errorf("failed to set %s: %w", e.info.Name, err)
	}

	return e.scale.ToDB(raw), nil
}

func (m *ControlSet) writeAll(info hw.ElemInfo, v int64) error {
	count := max(info.Count, 1)
	values := make([]int64, count)
	for i := range values {
		values[i] = v
	}

	return m.ctl.WriteValues(info.NumID, values)
}

func (m *ControlSet) setSwitches(switches []*elem, on bool) error {
	var v int64
	if on {
		v = 1
	}

	var errs []error
	for _, e := range switches {
		if err := m.writeAll(e.info, v); err != nil {
			errs = append(errs, fmt.Errorf("failed to set %s: %w", e.info.Name, err))
		}
	}

	return errors.Join(errs...)
}

// SetOutputDB sets the playback attenuation in 1/100 dB.
func (m *ControlSet) SetOutputDB(c alsad.Control, db int64) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	return m.setDB(m.mainVolume, asControl(c), db)
}

// SetCaptureDB sets the capture gain in 1/100 dB.
func (m *ControlSet) SetCaptureDB(c alsad.Control, db int64) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	return m.setDB(m.mainCapture, asControl(c), db)
}

// SetMute mutes the main playback switch and the switch of c.
func (m *ControlSet) SetMute(c alsad.Control, muted bool) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	err := m.setSwitches(m.mainSwitch, !muted)
	if ctl := asControl(c); ctl != nil {
		err = errors.Join(err, m.setSwitches(ctl.switches, !muted))
	}

	return err
}

// SetCaptureMute mutes the main capture switch and the switch of c.
func (m *ControlSet) SetCaptureMute(c alsad.Control, muted bool) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	err := m.setSwitches(m.captureSwitch, !muted)
	if ctl := asControl(c); ctl != nil {
		err = errors.Join(err, m.setSwitches(ctl.switches, !muted))
	}

	return err
}

// SetOutputActive turns the switch of an output control on or off.
func (m *ControlSet) SetOutputActive(c alsad.Control, active bool) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	ctl := asControl(c)
	if ctl == nil {
		return nil
	}

	return m.setSwitches(ctl.switches, active)
}

func dbRange(elems []*elem) int64 {
	var r int64
	for _, e := range elems {
		r += e.scale.MaxDB() - e.scale.MinDB()
	}

	return r
}

// DBRange returns the combined range of the main volume controls.
func (m *ControlSet) DBRange() int64 {
	if m == nil {
		return 0
	}

	return dbRange(m.mainVolume)
}

// OutputDBRange returns the range of an output control's volume elements.
func (m *ControlSet) OutputDBRange(c alsad.Control) int64 {
	ctl := asControl(c)
	if ctl == nil {
		return 0
	}

	return dbRange(ctl.volumes)
}

// MinCaptureGain returns the lowest gain the main capture controls and c can reach.
func (m *ControlSet) MinCaptureGain(c alsad.Control) int64 {
	if m == nil {
		return 0
	}

	var gain int64
	for _, e := range m.captureElems(c) {
		gain += e.scale.MinDB()
	}

	return gain
}

// MaxCaptureGain returns the highest gain the main capture controls and c can reach.
func (m *ControlSet) MaxCaptureGain(c alsad.Control) int64 {
	if m == nil {
		return 0
	}

	var gain int64
	for _, e := range m.captureElems(c) {
		gain += e.scale.MaxDB()
	}

	return gain
}

func (m *ControlSet) captureElems(c alsad.Control) []*elem {
	elems := append([]*elem{}, m.mainCapture...)
	if ctl := asControl(c); ctl != nil {
		elems = append(elems, ctl.volumes...)
	}

	return elems
}

// HasMainVolume reports whether the card has a main playback volume.
func (m *ControlSet) HasMainVolume() bool {
	return m != nil && len(m.mainVolume) > 0
}

// HasVolume reports whether c has its own volume.
func (m *ControlSet) HasVolume(c alsad.Control) bool {
	ctl := asControl(c)

	return ctl != nil && ctl.HasVolume()
}

// SetByName writes value to every channel of the named element.
func (m *ControlSet) SetByName(name string, value int64) error {
	if m == nil {
		return fmt.Errorf("mixer is nil")
	}

	info, ok := m.byName[name]
	if !ok {
		return fmt.Errorf("element %q: %w", name, ErrNoControl)
	}

	return m.writeAll(info, value)
}

// Value reads the first channel of the named element.
func (m *ControlSet) Value(name string) (int64, error) {
	if m == nil {
		return 0, fmt.Errorf("mixer is nil")
	}

	info, ok := m.byName[name]
	if !ok {
		return 0, fmt.Errorf("element %q: %w", name, ErrNoControl)
	}

	values, err := m.ctl.ReadValues(info.NumID, max(info.Count, 1))
	if err != nil {
		return 0, err
	}

	if len(values) == 0 {
		return 0, fmt.Errorf("element %q returned no values", name)
	}

	return values[0], nil
}

func hasPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}

	return false
}
