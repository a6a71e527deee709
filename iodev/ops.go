package iodev

import (
	"strings"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/volume"
)

// deviceOps holds what differs between output and input devices.
type deviceOps interface {
	// initNode fills direction-specific node state; name is the name as discovered.
	initNode(d *Device, n *Node, name string)
	listControls(d *Device)
	addDefaultNodes(d *Device)
	nodeForJack(d *Device, j Jack) *Node
	newNodeForJack(d *Device, j Jack, name string) *Node
	bindJack(d *Device, n *Node, j Jack)
	initSettings(d *Device)
	// canonicalName is the built-in endpoint auto-unplug keys on.
	canonicalName() string
}

type outputOps struct{}

func (outputOps) initNode(d *Device, n *Node, name string) {
	n.curve = d.curveForControl(name)
	n.softwareVolume = d.outputNeedsSoftwareVolume(n)
	if n.softwareVolume {
		logger.Debug("Using software volume", "node", n.name)
	}
}

func (d *Device) outputNeedsSoftwareVolume(n *Node) bool {
	if d.ucm.DisableSoftwareVolume() {
		return false
	}

	needed := n.typ == alsad.NodeTypeHDMI
	if d.mixer == nil {
		return true
	}

	if !d.mixer.HasMainVolume() && !d.mixer.HasVolume(n.control) {
		needed = true
	}

	if n.typ == alsad.NodeTypeUSB && d.mixer.DBRange()+d.mixer.OutputDBRange(n.control) < MinUSBVolumeRange {
		needed = true
	}

	return needed
}

func (outputOps) listControls(d *Device) {
	if d.mixer == nil {
		return
	}

	d.mixer.ListOutputs(func(c alsad.Control) { d.newNodeForControl(c) })
}

func (outputOps) addDefaultNodes(d *Device) {
	if d.ucm.NoDefaultNode(alsad.Output) {
		return
	}

	switch {
	case d.firstInternal() && !d.hasNode(InternalSpeaker) && !d.hasNode(HDMINodeName):
		if strings.Contains(d.name, HDMINodeName) {
			d.newNode(nil, HDMINodeName)
		} else {
			d.newNode(nil, InternalSpeaker)
		}
	case len(d.nodes) == 0:
		d.newNode(nil, DefaultNodeName)
	}
}

// nodeForJack searches by jack first, then by the jack's output control.
func (outputOps) nodeForJack(d *Device, j Jack) *Node {
	for _, n := range d.nodes {
		if n.jack == j {
			return n
		}
	}

	ctl := j.MixerOutput()
	if ctl == nil {
		return nil
	}

	for _, n := range d.nodes {
		if n.control == ctl {
			return n
		}
	}

	return nil
}

func (outputOps) newNodeForJack(d *Device, j Jack, name string) *Node {
	n := d.newNode(nil, name)
	n.typ = j.UpdateNodeType(n.typ)

	return n
}

func (outputOps) bindJack(d *Device, n *Node, j Jack) {
	n.jack = j
	if n.curve == nil {
		n.curve = d.curveForJack(j)
	}
}

func (outputOps) initSettings(d *Device) {
	d.setVolumeLimits()
	if err := d.UpdateVolume(); err != nil {
		logger.Warn("Failed to set volume", "device", d.name, "error", err)
	}
	if err := d.UpdateMute(); err != nil {
		logger.Warn("Failed to set mute", "device", d.name, "error", err)
	}
}

func (outputOps) canonicalName() string { return InternalSpeaker }

type inputOps struct{}

func (inputOps) initNode(d *Device, n *Node, _ string) {
	if gain, ok := d.ucm.MaxSoftwareGain(n.name); ok {
		n.softwareVolume = true
		n.maxSoftwareGain = gain
		logger.Info("Using software gain", "node", n.name, "max_gain", gain)
	}

	if gain, ok := d.ucm.DefaultNodeGain(n.name); ok {
		n.captureGain = gain
	}
}

func (inputOps) listControls(d *Device) {
	if d.mixer == nil {
		return
	}

	d.mixer.ListInputs(func(c alsad.Control) { d.newNodeForControl(c) })
}

func (inputOps) addDefaultNodes(d *Device) {
	if d.ucm.NoDefaultNode(alsad.Input) {
		return
	}

	switch {
	case d.firstInternal() && !d.hasNode(InternalMic):
		d.newNode(nil, InternalMic)
	case strings.Contains(d.pcmName, KeyboardMic):
		d.newNode(nil, KeyboardMic)
	case strings.Contains(d.pcmID, HotwordNodeName):
		d.newNode(nil, HotwordNodeName)
	case len(d.nodes) == 0:
		d.newNode(nil, DefaultNodeName)
	}
}

// nodeForJack searches by the jack's input control when it has one, else by jack.
func (inputOps) nodeForJack(d *Device, j Jack) *Node {
	ctl := j.MixerInput()

	for _, n := range d.nodes {
		if ctl == nil && n.jack == j {
			return n
		}
		if ctl != nil && n.control == ctl {
			return n
		}
	}

	return nil
}

func (inputOps) newNodeForJack(d *Device, j Jack, name string) *Node {
	return d.newNode(j.MixerInput(), name)
}

func (inputOps) bindJack(_ *Device, n *Node, j Jack) {
	n.jack = j
}

func (inputOps) initSettings(d *Device) {
	var ctl alsad.Control
	if d.active != nil {
		ctl = d.active.control
	}

	switch {
	case d.SoftwareVolumeNeeded():
		d.system.SetCaptureGainLimits(DefaultMinCaptureGain, d.MaxSoftwareGain())
	case d.mixer != nil:
		d.system.SetCaptureGainLimits(d.mixer.MinCaptureGain(ctl), d.mixer.MaxCaptureGain(ctl))
	}

	if err := d.UpdateCaptureGain(); err != nil {
		logger.Warn("Failed to set capture gain", "device", d.name, "error", err)
	}
}

func (inputOps) canonicalName() string { return InternalMic }

func (d *Device) firstInternal() bool {
	return d.first && d.card.Type == alsad.CardTypeInternal
}

// newNodeForControl names a node after its control, prefixed with the device name on USB cards.
func (d *Device) newNodeForControl(c alsad.Control) {
	name := c.Name()
	if name == "" {
		return
	}

	if d.card.Type == alsad.CardTypeUSB {
		name = d.name + ": " + name
	}

	d.newNode(c, name)
}

// curveForJack looks the curve up by use-case device name, then by jack name.
func (d *Device) curveForJack(j Jack) volume.Curve {
	if c := d.curveForControl(j.UCMDevice()); c != nil {
		return c
	}

	return d.curveForControl(j.Name())
}
