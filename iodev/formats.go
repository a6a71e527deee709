package iodev

import (
	"fmt"

	"github.com/gen2brain/alsad"
)

// SupportedFormats returns the rates, channel counts and sample formats the
// subdevice accepts. A rate fixed by the active node's use-case section
// replaces the hardware rates. The query opens the PCM, so call it while the
// device is closed.
func (d *Device) SupportedFormats() (Capabilities, error) {
	if d.opener == nil {
		return Capabilities{}, fmt.Errorf("device %s has no opener", d.name)
	}

	caps, err := d.opener.Capabilities(d.card.Index, d.index, d.dir)
	if err != nil {
		return Capabilities{}, fmt.Errorf("failed to query formats of %s: %w", d.name, err)
	}

	if d.active != nil {
		if rate := d.ucm.SampleRate(d.active.name); rate > 0 {
			caps.Rates = []uint32{rate}
		}
	}

	return caps, nil
}

// UpdateChannelLayout sets the channel layout of the open stream. Input nodes
// may declare a capture channel map in their use-case section; everything
// else uses the default order.
func (d *Device) UpdateChannelLayout() error {
	if d.stream == nil {
		return ErrNotOpen
	}

	layout := alsad.DefaultChannelLayout(d.format.Channels)

	if d.dir == alsad.Input && d.active != nil {
		if m := d.ucm.CaptureChannelMap(d.active.name); len(m) > 0 {
			if len(m) != int(alsad.NumChannels) {
				return fmt.Errorf("capture channel map of %s has %d entries, want %d", d.active.name, len(m), alsad.NumChannels)
			}

			var l alsad.ChannelLayout
			copy(l[:], m)

			if !l.Valid(d.format.Channels) {
				return fmt.Errorf("capture channel map of %s does not fit %d channels", d.active.name, d.format.Channels)
			}

			layout = l
		}
	}

	d.layout = layout

	return nil
}

// ChannelLayout returns the channel layout of the open stream.
func (d *Device) ChannelLayout() alsad.ChannelLayout { return d.layout }
