package iodev

import (
	"fmt"

	"github.com/gen2brain/alsad"
)

// SetActiveNode makes n the active node. enabled tells whether the device is in use,
// which decides the use-case route state and whether output controls are switched.
func (d *Device) SetActiveNode(n *Node, enabled bool) error {
	if n == nil || n.dev != d {
		return ErrNoNode
	}

	if d.active == n {
		d.enableActiveUCM(enabled)
		d.initDeviceSettings()

		return nil
	}

	d.enableActiveUCM(false)

	if enabled && d.dir == alsad.Output {
		d.unmuteNode(n)
	}

	d.active = n
	d.dspName = d.activeDSPName()
	d.enableActiveUCM(enabled)

	// Also unmutes unless the system is muted.
	d.initDeviceSettings()

	logger.Info("Active node changed", "device", d.name, "node", n.name)
	d.notifier.ActiveNodeChanged(d, n)

	return nil
}

// UpdateActiveNode selects the node with the given index, else the first plugged node.
func (d *Device) UpdateActiveNode(index uint32, enabled bool) error {
	n := d.Node(index)
	if n == nil {
		n = d.firstPluggedNode()
	}

	return d.SetActiveNode(n, enabled)
}

// unmuteNode activates the control of n and deactivates every other output control.
func (d *Device) unmuteNode(n *Node) {
	if n.control == nil || d.mixer == nil {
		return
	}

	if d.stream != nil {
		if err := d.mixer.SetMute(d.activeControl(), true); err != nil {
			logger.Warn("Failed to mute before switching", "device", d.name, "error", err)
		}
	}

	for _, other := range d.nodes {
		if other.control == nil {
			continue
		}

		if err := d.mixer.SetOutputActive(other.control, other == n); err != nil {
			logger.Warn("Failed to switch output control", "control", other.control.Name(), "error", err)
		}
	}
}

// enableActiveUCM runs the route sequence of the active node, through its jack when it has one.
func (d *Device) enableActiveUCM(enabled bool) {
	n := d.active
	if n == nil {
		return
	}

	var err error
	if n.jack != nil {
		err = n.jack.SetRouteEnabled(enabled)
	} else {
		err = d.ucm.SetEnabled(n.name, enabled)
	}

	if err != nil {
		logger.Warn("Failed to switch route", "device", d.name, "node", n.name, "enabled", enabled, "error", err)
	}
}

func (d *Device) activeDSPName() string {
	if d.active == nil {
		return ""
	}

	if d.active.jack != nil {
		if name := d.active.jack.DSPName(); name != "" {
			return name
		}
	}

	return d.dspNameDefault
}

// SetSwapMode swaps left and right of a node through the use-case configuration.
func (d *Device) SetSwapMode(n *Node, on bool) error {
	if n == nil || n.dev != d {
		return ErrNoNode
	}

	if !d.ucm.SwapModeExists() {
		return fmt.Errorf("swap mode is not supported on %s", d.name)
	}

	if err := d.ucm.SetSwapMode(n.name, on); err != nil {
		return fmt.Errorf("failed to set swap mode on %s: %w", n.name, err)
	}

	n.swapped = on

	return nil
}
