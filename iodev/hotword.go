package iodev

import (
	"fmt"

	"github.com/gen2brain/alsad"
)

// DefaultHotwordModel is loaded when a hotword node becomes active at init.
const DefaultHotwordModel = "en_us"

// HotwordModels returns the hotword models the card can load.
func (d *Device) HotwordModels() []string { return d.ucm.HotwordModels() }

// SetHotwordModel loads a hotword model, unloading the previous one.
func (d *Device) SetHotwordModel(name string) error {
	if err := d.ucm.SetHotwordModel(name); err != nil {
		return fmt.Errorf("failed to set hotword model of %s: %w", d.name, err)
	}

	logger.Info("Set hotword model", "device", d.name, "model", name)

	return nil
}

// setDefaultHotwordModel is a no-op unless a hotword node is active and the card knows the default model.
func (d *Device) setDefaultHotwordModel() {
	if d.active == nil || d.active.typ != alsad.NodeTypeHotword {
		return
	}

	if err := d.SetHotwordModel(DefaultHotwordModel); err != nil {
		logger.Debug("Default hotword model not loaded", "device", d.name, "error", err)
	}
}
