package iodev

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/volume"
)

// Well-known node names.
const (
	DefaultNodeName = "(default)"
	InternalSpeaker = "Speaker"
	InternalMic     = "Internal Mic"
	KeyboardMic     = "Keyboard Mic"
	HDMINodeName    = "HDMI"
	HotwordNodeName = "Wake on Voice"
	USBNodeName     = "USB"

	speakerPhantomJack = "Speaker Phantom Jack"
)

// nodeDefault is one row of the name-prefix table.
type nodeDefault struct {
	prefix   string
	typ      alsad.NodeType
	position alsad.Position
}

// nodeDefaults is searched in order; the first matching prefix wins.
var nodeDefaults = []nodeDefault{
	{DefaultNodeName, alsad.NodeTypeUnknown, alsad.PositionInternal},
	{InternalSpeaker, alsad.NodeTypeInternalSpeaker, alsad.PositionInternal},
	{InternalMic, alsad.NodeTypeMic, alsad.PositionInternal},
	{KeyboardMic, alsad.NodeTypeMic, alsad.PositionKeyboard},
	{HDMINodeName, alsad.NodeTypeHDMI, alsad.PositionExternal},
	{"IEC958", alsad.NodeTypeHDMI, alsad.PositionExternal},
	{"Headphone", alsad.NodeTypeHeadphone, alsad.PositionExternal},
	{"Front Headphone", alsad.NodeTypeHeadphone, alsad.PositionExternal},
	{"Front Mic", alsad.NodeTypeMic, alsad.PositionFront},
	{"Rear Mic", alsad.NodeTypeMic, alsad.PositionRear},
	{"Mic", alsad.NodeTypeMic, alsad.PositionExternal},
	{HotwordNodeName, alsad.NodeTypeHotword, alsad.PositionInternal},
	{"Haptic", alsad.NodeTypeHaptic, alsad.PositionInternal},
	{"Rumbler", alsad.NodeTypeHaptic, alsad.PositionInternal},
	{"Line Out", alsad.NodeTypeLineout, alsad.PositionExternal},
}

// initialState is what a node looks like right after it is created.
type initialState struct {
	name     string
	typ      alsad.NodeType
	position alsad.Position
	plugged  bool
}

// inferInitialState derives type, position and plugged state from a node name.
func inferInitialState(name string, dir alsad.Direction, cardType alsad.CardType) initialState {
	st := initialState{name: name, typ: alsad.NodeTypeUnknown, position: alsad.PositionExternal}

	matched := false
	for _, d := range nodeDefaults {
		if strings.HasPrefix(name, d.prefix) {
			st.typ, st.position = d.typ, d.position
			st.plugged = d.position != alsad.PositionExternal
			matched = true

			break
		}
	}

	if !matched {
		// Names like "DAISY-I2S Mic Jack" or "Rockchip HDMI Jack".
		if strings.HasSuffix(name, "Jack") {
			if dir == alsad.Output {
				st.typ = alsad.NodeTypeHeadphone
			} else {
				st.typ = alsad.NodeTypeMic
			}
		}
		if dir == alsad.Output && strings.Contains(name, HDMINodeName) {
			st.typ = alsad.NodeTypeHDMI
		}
	}

	// A USB headset may call its output "Speaker"; it is still external.
	if cardType == alsad.CardTypeUSB {
		st.typ, st.position = alsad.NodeTypeUSB, alsad.PositionExternal
	}

	if !utf8.ValidString(st.name) {
		st.name = fallbackName(st.typ)
	}

	return st
}

// fallbackName replaces a name that is not valid UTF-8.
func fallbackName(t alsad.NodeType) string {
	switch t {
	case alsad.NodeTypeUSB:
		return USBNodeName
	case alsad.NodeTypeHDMI:
		return HDMINodeName
	default:
		return DefaultNodeName
	}
}

// Node is one routable endpoint of a device.
type Node struct {
	dev         *Device
	index       uint32
	name        string
	stableID    uint32
	stableIDNew uint32
	typ         alsad.NodeType
	position    alsad.Position
	plugged     bool
	pluggedTime time.Time

	volume      int64
	captureGain int64

	softwareVolume  bool
	maxSoftwareGain int64
	swapped         bool

	control alsad.Control
	jack    Jack
	curve   volume.Curve
	scalers []float32
}

// Index returns the node index, unique within its device.
func (n *Node) Index() uint32 { return n.index }

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// StableID returns the id derived from the card, device and node names.
func (n *Node) StableID() uint32 { return n.stableID }

// StableIDNew returns the id that also covers the USB serial number.
func (n *Node) StableIDNew() uint32 { return n.stableIDNew }

// Type returns what the node is connected to.
func (n *Node) Type() alsad.NodeType { return n.typ }

// Position returns where the node sits.
func (n *Node) Position() alsad.Position { return n.position }

// Plugged reports whether the node can be used.
func (n *Node) Plugged() bool { return n.plugged }

// PluggedTime returns when the node was last plugged.
func (n *Node) PluggedTime() time.Time { return n.pluggedTime }

// Device returns the owning device.
func (n *Node) Device() *Device { return n.dev }

// Control returns the mixer control bound to the node, or nil.
func (n *Node) Control() alsad.Control { return n.control }

// Jack returns the jack bound to the node, or nil.
func (n *Node) Jack() Jack { return n.jack }

// Curve returns the node's own volume curve, or nil when it uses the device default.
func (n *Node) Curve() volume.Curve { return n.curve }

// Scalers returns the software volume table of an output node.
func (n *Node) Scalers() []float32 { return n.scalers }

// Volume returns the node volume, 0 to 100.
func (n *Node) Volume() int64 { return n.volume }

// CaptureGain returns the node capture gain offset in 1/100 dB.
func (n *Node) CaptureGain() int64 { return n.captureGain }

// SoftwareVolumeNeeded reports whether samples must be scaled in software.
func (n *Node) SoftwareVolumeNeeded() bool { return n.softwareVolume }

// MaxSoftwareGain returns the largest software gain allowed, in 1/100 dB.
func (n *Node) MaxSoftwareGain() int64 { return n.maxSoftwareGain }

// Swapped reports whether left and right are swapped.
func (n *Node) Swapped() bool { return n.swapped }

// Active reports whether the node is the active node of its device.
func (n *Node) Active() bool { return n.dev != nil && n.dev.active == n }

// adjustVolume maps the system volume through the node volume: a node at 100
// passes it unchanged, lower values shift it down.
func (n *Node) adjustVolume(system int64) int64 {
	return volume.Clamp(system - (volume.MaxIndex - n.volume))
}

// SetVolume sets the node volume and re-applies it when the node is active.
func (n *Node) SetVolume(v int64) error {
	n.volume = volume.Clamp(v)

	if n.Active() {
		return n.dev.UpdateVolume()
	}

	return nil
}

// SetCaptureGain sets the node gain offset and re-applies it when the node is active.
func (n *Node) SetCaptureGain(gain int64) error {
	n.captureGain = gain

	if n.Active() {
		return n.dev.UpdateCaptureGain()
	}

	return nil
}
