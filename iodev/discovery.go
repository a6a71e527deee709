package iodev

import (
	"errors"
	"fmt"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/ucm"
	"github.com/gen2brain/alsad/volume"
)

// LegacyCompleteInit discovers nodes from mixer controls and jacks, adds the
// default node if needed and selects the initial active node.
func (d *Device) LegacyCompleteInit() error {
	// Per-control nodes such as Headphone and Speaker live on the first device only.
	if d.first {
		d.ops.listControls(d)
	}

	if d.jacks != nil {
		if err := d.jacks.FindByNameMatching(); err != nil {
			return fmt.Errorf("failed to find jacks for %s: %w", d.name, err)
		}

		// Creates nodes for jacks no control claimed and reads their initial state.
		d.jacks.Report()
	}

	d.ops.addDefaultNodes(d)
	d.finishInit()

	return nil
}

// AddNodeAndJack adds the node a use-case section declares and binds its jack.
func (d *Device) AddNodeAndJack(sec ucm.Section) error {
	if sec.Device != d.index {
		return fmt.Errorf("section %s device %d on %s: %w", sec.Name, sec.Device, d.name, ErrSubdeviceMismatch)
	}

	if sec.Direction != d.dir {
		return fmt.Errorf("section %s is %s, device %s is %s", sec.Name, sec.Direction, d.name, d.dir)
	}

	d.fullySpecified = true

	// The period may be declared on only one of several sections sharing the PCM.
	if d.dmaPeriodUs == 0 {
		d.dmaPeriodUs = d.ucm.DMAPeriod(sec.Name)
	}

	var ctl alsad.Control
	if d.mixer != nil {
		ctl = d.mixer.ControlForSection(sec)
	}

	if ctl == nil && sec.Mixer != "" {
		return fmt.Errorf("section %s mixer %q: %w", sec.Name, sec.Mixer, ErrNoControl)
	}

	n := d.newNode(ctl, sec.Name)

	if d.jacks == nil {
		return nil
	}

	j, err := d.jacks.AddForSection(sec)
	if err != nil {
		return fmt.Errorf("failed to add jack for section %s: %w", sec.Name, err)
	}

	if j != nil {
		d.ops.bindJack(d, n, j)
	}

	return nil
}

// CompleteInitUCM finishes a device whose nodes came from use-case sections.
func (d *Device) CompleteInitUCM() {
	if d.jacks != nil {
		d.jacks.Report()
	}

	d.finishInit()
}

// finishInit builds scalers, picks the active node, plugs the first USB device
// and loads the default hotword model.
func (d *Device) finishInit() {
	if d.dir == alsad.Output {
		d.buildScalers()
	}

	if err := d.SetActiveNode(d.firstPluggedNode(), false); err != nil && !errors.Is(err, ErrNoNode) {
		logger.Warn("Failed to set initial active node", "device", d.name, "error", err)
	}

	if d.card.Type == alsad.CardTypeUSB && d.first {
		d.setNodePlugged(d.active, true)
	}

	d.setDefaultHotwordModel()
}

func (d *Device) buildScalers() {
	for _, n := range d.nodes {
		n.scalers = volume.Scalers(d.curveForNode(n))
	}
}
