package iodev

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/ucm"
	"github.com/gen2brain/alsad/volume"
)

// State is the run state the stream-routing layer keeps for an open device.
type State int

const (
	StateClose State = iota
	StateOpen
	StateNormalRun
	StateNoStreamRun
)

var stateNames = []string{"close", "open", "normal_run", "no_stream_run"}

// String returns the state name.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Params describes a device to create.
type Params struct {
	Card      alsad.CardInfo
	Device    uint32
	PCMName   string
	PCMID     string
	Direction alsad.Direction
	First     bool

	Mixer    MixerControlSet
	Config   CurveConfig
	UCM      UseCase
	Jacks    JackFactory
	System   SystemState
	Opener   Opener
	Thread   AudioThread
	Notifier Notifier

	// Now stamps plug times; time.Now when nil.
	Now func() time.Time
	// Clock stamps queue levels without hardware timestamps; the raw monotonic clock when nil.
	Clock func() time.Time
}

// Device is one subdevice of a card in one direction.
type Device struct {
	ops deviceOps

	card        alsad.CardInfo
	index       uint32
	pcmName     string
	pcmID       string
	name        string
	dir         alsad.Direction
	first       bool
	stableID    uint32
	stableIDNew uint32

	mixer    MixerControlSet
	config   CurveConfig
	ucm      UseCase
	jacks    JackList
	system   SystemState
	opener   Opener
	thread   AudioThread
	notifier Notifier
	now      func() time.Time
	clock    func() time.Time

	nodes         []*Node
	active        *Node
	nextNodeIndex uint32

	fullySpecified bool
	softwareVolume bool
	dmaPeriodUs    uint32
	minBufferLevel uint32
	minCbLevel     uint32
	defaultCurve   volume.Curve
	dspNameDefault string
	dspName        string
	hwTimestamp    bool

	format               alsad.Format
	layout               alsad.ChannelLayout
	stream               Stream
	state                State
	severeUnderrunFrames uint32
	freeRun              FreeRunState
	filledZeros          uint32

	numUnderruns       atomic.Uint64
	numSevereUnderruns atomic.Uint64
}

// New creates a device and its jack list. Nodes are added by LegacyCompleteInit
// or by AddNodeAndJack followed by CompleteInitUCM.
func New(p Params) (*Device, error) {
	if p.Direction != alsad.Output && p.Direction != alsad.Input {
		return nil, fmt.Errorf("invalid direction %d", p.Direction)
	}

	if p.System == nil {
		return nil, fmt.Errorf("system state is nil")
	}

	d := &Device{
		card:     p.Card,
		index:    p.Device,
		pcmName:  p.PCMName,
		pcmID:    p.PCMID,
		dir:      p.Direction,
		first:    p.First,
		mixer:    p.Mixer,
		config:   p.Config,
		ucm:      p.UCM,
		system:   p.System,
		opener:   p.Opener,
		thread:   p.Thread,
		notifier: p.Notifier,
		now:      p.Now,
		clock:    p.Clock,
		layout:   alsad.DefaultChannelLayout(0),
	}

	if d.ucm == nil {
		// Every method of a nil configuration reports "not configured".
		d.ucm = (*ucm.Config)(nil)
	}
	if d.notifier == nil {
		d.notifier = nopNotifier{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.clock == nil {
		d.clock = monotonicRaw
	}

	if d.dir == alsad.Output {
		d.ops = outputOps{}
	} else {
		d.ops = inputOps{}
	}

	d.name = fmt.Sprintf("%s: %s:%d,%d", p.Card.Name, p.PCMName, p.Card.Index, p.Device)
	d.stableID, d.stableIDNew = deviceIDs(p.Card, p.PCMName, p.Device)

	if p.Card.Type == alsad.CardTypeUSB {
		d.minBufferLevel = USBExtraBufferFrames
	}

	if d.dir == alsad.Output {
		d.defaultCurve = d.curveForControl("Default")
		if d.defaultCurve == nil {
			d.defaultCurve = volume.Default
		}
	}

	d.dspNameDefault = d.ucm.DefaultDSPName(d.dir)
	if level := d.ucm.MinBufferLevel(); level > 0 && d.dir == alsad.Output {
		d.minBufferLevel = level
	}
	d.hwTimestamp = d.ucm.HardwareTimestamp()

	// HDMI sinks have no hardware volume.
	if d.dir == alsad.Output && strings.Contains(p.PCMName, HDMINodeName) {
		d.softwareVolume = true
	}

	if p.Jacks != nil {
		jacks, err := p.Jacks(d.jackPlugged)
		if err != nil {
			return nil, fmt.Errorf("failed to create jack list for %s: %w", d.name, err)
		}
		d.jacks = jacks
	}

	logger.Debug("Created device", "device", d.name, "direction", d.dir, "stable_id", d.stableID)

	return d, nil
}

func (d *Device) curveForControl(name string) volume.Curve {
	if d.config == nil {
		return nil
	}

	return d.config.CurveForControl(name)
}

// Destroy closes the device and drops its jacks and nodes.
func (d *Device) Destroy() {
	if d == nil {
		return
	}

	if err := d.Close(); err != nil {
		logger.Warn("Failed to close device", "device", d.name, "error", err)
	}

	if d.jacks != nil {
		d.jacks.Destroy()
		d.jacks = nil
	}

	d.active = nil
	d.nodes = nil
}

// Name returns "<card>: <pcm>:<card index>,<device index>".
func (d *Device) Name() string { return d.name }

// Index returns the subdevice index.
func (d *Device) Index() uint32 { return d.index }

// Direction returns the stream direction.
func (d *Device) Direction() alsad.Direction { return d.dir }

// Card returns the card the device belongs to.
func (d *Device) Card() alsad.CardInfo { return d.card }

// IsFirst reports whether this is the first device of its direction on the card.
func (d *Device) IsFirst() bool { return d.first }

// StableID returns the id derived from the card and PCM names.
func (d *Device) StableID() uint32 { return d.stableID }

// StableIDNew returns the id that also covers the USB serial number.
func (d *Device) StableIDNew() uint32 { return d.stableIDNew }

// FullySpecified reports whether use-case sections declared the nodes.
func (d *Device) FullySpecified() bool { return d.fullySpecified }

// HasPolledJacks reports whether any jack of the device needs control events.
func (d *Device) HasPolledJacks() bool { return d.jacks != nil && d.jacks.HasPolledJacks() }

// DSPName returns the DSP key of the active route.
func (d *Device) DSPName() string { return d.dspName }

// DMAPeriodUs returns the period hint declared by the use-case configuration.
func (d *Device) DMAPeriodUs() uint32 { return d.dmaPeriodUs }

// MinBufferLevel returns the frames kept queued ahead of the hardware.
func (d *Device) MinBufferLevel() uint32 { return d.minBufferLevel }

// MinCbLevel returns the smallest callback size in frames.
func (d *Device) MinCbLevel() uint32 { return d.minCbLevel }

// SetMinCbLevel sets the smallest callback size of the attached streams.
func (d *Device) SetMinCbLevel(frames uint32) { d.minCbLevel = frames }

// DefaultCurve returns the device volume curve.
func (d *Device) DefaultCurve() volume.Curve { return d.defaultCurve }

// HardwareTimestamp reports whether queue timestamps come from the hardware.
func (d *Device) HardwareTimestamp() bool { return d.hwTimestamp }

// Nodes returns the nodes in creation order.
func (d *Device) Nodes() []*Node {
	return append([]*Node(nil), d.nodes...)
}

// ActiveNode returns the active node, or nil.
func (d *Device) ActiveNode() *Node { return d.active }

// Node returns the node with the given index, or nil.
func (d *Device) Node(index uint32) *Node {
	for _, n := range d.nodes {
		if n.index == index {
			return n
		}
	}

	return nil
}

// NodeByName returns the first node with the given name, or nil.
func (d *Device) NodeByName(name string) *Node {
	for _, n := range d.nodes {
		if n.name == name {
			return n
		}
	}

	return nil
}

func (d *Device) hasNode(name string) bool {
	return d.NodeByName(name) != nil
}

// firstPluggedNode returns the first plugged node, else the first node.
func (d *Device) firstPluggedNode() *Node {
	for _, n := range d.nodes {
		if n.plugged {
			return n
		}
	}

	if len(d.nodes) > 0 {
		return d.nodes[0]
	}

	return nil
}

// newNode creates a node, infers its state and appends it.
func (d *Device) newNode(ctl alsad.Control, name string) *Node {
	st := inferInitialState(name, d.dir, d.card.Type)

	n := &Node{
		dev:      d,
		index:    d.nextNodeIndex,
		name:     st.name,
		typ:      st.typ,
		position: st.position,
		plugged:  st.plugged,
		volume:   volume.MaxIndex,
		control:  ctl,
	}
	d.nextNodeIndex++

	// Ids hash the name as discovered, before any fallback.
	n.stableID, n.stableIDNew = nodeIDs(name, d.stableID, d.stableIDNew)

	if n.plugged {
		n.pluggedTime = d.now()
	}

	d.ops.initNode(d, n, name)
	d.nodes = append(d.nodes, n)

	logger.Debug("New node", "device", d.name, "node", n.name, "type", n.typ, "position", n.position, "plugged", n.plugged)

	d.checkAutoUnplug(n, n.plugged)
	d.notifier.NodesChanged(d)

	return n
}

// setNodePlugged updates a node's plugged state and timestamp.
func (d *Device) setNodePlugged(n *Node, plugged bool) {
	if n == nil {
		return
	}

	if plugged {
		n.pluggedTime = d.now()
	}

	if n.plugged == plugged {
		return
	}

	n.plugged = plugged
	d.notifier.NodePlugged(d, n, plugged)
}

// SoftwareVolumeNeeded reports whether the device or its active node scales samples in software.
func (d *Device) SoftwareVolumeNeeded() bool {
	return d.softwareVolume || (d.active != nil && d.active.softwareVolume)
}

// MaxSoftwareGain returns the software gain ceiling of the active node.
func (d *Device) MaxSoftwareGain() int64 {
	if d.active == nil {
		return 0
	}

	return d.active.maxSoftwareGain
}
