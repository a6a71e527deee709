package iodev

import (
	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/volume"
)

// curveForNode returns the node's curve, else the device default.
func (d *Device) curveForNode(n *Node) volume.Curve {
	if n != nil && n.curve != nil {
		return n.curve
	}

	if d.defaultCurve != nil {
		return d.defaultCurve
	}

	return volume.Default
}

func (d *Device) activeControl() alsad.Control {
	if d.active == nil {
		return nil
	}

	return d.active.control
}

// effectiveVolume is the system volume shifted by the active node's volume.
func (d *Device) effectiveVolume() int64 {
	index := volume.Clamp(d.system.Volume())
	if d.active != nil {
		index = d.active.adjustVolume(index)
	}

	return index
}

// hardwareVolume is the index sent to the mixer; software volume pins it to the maximum.
func (d *Device) hardwareVolume() int64 {
	if d.SoftwareVolumeNeeded() {
		return volume.MaxIndex
	}

	return d.effectiveVolume()
}

// SoftwareVolumeScaler returns the sample multiplier for the current volume, 1 when the
// hardware attenuates.
func (d *Device) SoftwareVolumeScaler() float32 {
	if d.dir != alsad.Output || !d.SoftwareVolumeNeeded() {
		return 1
	}

	index := d.effectiveVolume()
	if d.active != nil && len(d.active.scalers) > int(index) {
		return d.active.scalers[index]
	}

	return volume.Scalers(d.curveForNode(d.active))[index]
}

func (d *Device) setVolumeLimits() {
	if d.stream == nil {
		return
	}

	curve := d.curveForNode(d.active)
	d.system.SetVolumeLimits(curve.DB(1), curve.DB(volume.MaxIndex))
}

// UpdateVolume applies the system volume to the mixer of an open output.
func (d *Device) UpdateVolume() error {
	if d.dir != alsad.Output || d.mixer == nil || d.stream == nil {
		return nil
	}

	curve := d.curveForNode(d.active)

	return d.mixer.SetOutputDB(d.activeControl(), curve.DB(d.hardwareVolume()))
}

// UpdateMute applies the system mute to the mixer of an open output.
func (d *Device) UpdateMute() error {
	if d.dir != alsad.Output || d.mixer == nil || d.stream == nil {
		return nil
	}

	return d.mixer.SetMute(d.activeControl(), d.system.Mute())
}

// effectiveCaptureGain is the system gain plus the active node's offset.
func (d *Device) effectiveCaptureGain() int64 {
	gain := d.system.CaptureGain()
	if d.active != nil {
		gain += d.active.captureGain
	}

	return gain
}

// UpdateCaptureGain applies the system capture gain and mute to the mixer of an open input.
// Under software gain the hardware stays at 0 dB.
func (d *Device) UpdateCaptureGain() error {
	if d.dir != alsad.Input || d.mixer == nil || d.stream == nil {
		return nil
	}

	gain := d.effectiveCaptureGain()
	if d.SoftwareVolumeNeeded() {
		gain = 0
	}

	ctl := d.activeControl()
	if err := d.mixer.SetCaptureDB(ctl, gain); err != nil {
		return err
	}

	return d.mixer.SetCaptureMute(ctl, d.system.CaptureMute())
}

// UpdateCaptureMute applies the system capture mute.
func (d *Device) UpdateCaptureMute() error {
	return d.UpdateCaptureGain()
}

// SoftwareCaptureGain returns the gain the capture path applies in software, in 1/100 dB.
func (d *Device) SoftwareCaptureGain() int64 {
	if d.dir != alsad.Input || !d.SoftwareVolumeNeeded() {
		return 0
	}

	return min(max(d.effectiveCaptureGain(), DefaultMinCaptureGain), d.MaxSoftwareGain())
}

func (d *Device) initDeviceSettings() {
	d.ops.initSettings(d)
}
