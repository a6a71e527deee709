package iodev

import (
	"fmt"

	"github.com/gen2brain/alsad"
)

// FreeRunState tracks how an idle output is kept fed.
type FreeRunState int

const (
	// FreeRunNormal plays application samples.
	FreeRunNormal FreeRunState = iota
	// FreeRunDraining appends silence behind the last valid samples.
	FreeRunDraining
	// FreeRunActive has the whole buffer silent and lets the hardware loop over it.
	FreeRunActive
)

var freeRunNames = []string{"normal", "draining", "free_run"}

// String returns the state name.
func (s FreeRunState) String() string {
	if s >= 0 && int(s) < len(freeRunNames) {
		return freeRunNames[s]
	}

	return fmt.Sprintf("FreeRunState(%d)", int(s))
}

// FreeRun returns the free-run state.
func (d *Device) FreeRun() FreeRunState { return d.freeRun }

// FilledZeros returns the frames of silence written while draining.
func (d *Device) FilledZeros() uint32 { return d.filledZeros }

// NoStream is called when no stream has samples for an output (enable) or when one has again.
func (d *Device) NoStream(enable bool) error {
	if d.dir != alsad.Output {
		return nil
	}

	if enable {
		d.state = StateNoStreamRun

		return d.enterFreeRun()
	}

	d.state = StateNormalRun

	return d.leaveFreeRun()
}

// enterFreeRun drains valid samples with silence, then fills the whole buffer once they are played.
func (d *Device) enterFreeRun() error {
	if d.freeRun == FreeRunActive {
		return nil
	}

	queued, _, err := d.FramesQueued()
	if err != nil {
		return err
	}

	if queued == 0 || queued <= d.filledZeros {
		if err := d.stream.FillWholeBufferZeros(); err != nil {
			return fmt.Errorf("failed to fill buffer with zeros: %w", err)
		}

		d.freeRun = FreeRunActive
		logger.Debug("Entered free run", "device", d.name)

		return nil
	}

	target := 2 * d.minCbLevel
	if queued > target {
		return nil
	}

	frames := min(target-queued, d.bufferAvail(queued))
	if err := d.fillZeros(frames); err != nil {
		return err
	}

	d.filledZeros += frames
	d.freeRun = FreeRunDraining

	return nil
}

// leaveFreeRun moves the application pointer back in front of the hardware.
func (d *Device) leaveFreeRun() error {
	if d.freeRun != FreeRunActive {
		return nil
	}

	if err := d.adjustApplPtr(); err != nil {
		logger.Error("Failed to leave free run", "device", d.name, "error", err)

		return err
	}

	d.freeRun = FreeRunNormal
	d.filledZeros = 0

	return nil
}

// ShouldWake reports whether the audio thread must service the output.
func (d *Device) ShouldWake() bool {
	if d.freeRun == FreeRunActive {
		return false
	}

	return d.state == StateNoStreamRun || d.state == StateNormalRun
}

// OutputUnderrun silences the whole buffer and restarts playback the minimum distance
// ahead of the hardware.
func (d *Device) OutputUnderrun() error {
	if d.dir != alsad.Output {
		return nil
	}

	if d.stream == nil {
		return ErrNotOpen
	}

	if err := d.stream.FillWholeBufferZeros(); err != nil {
		return fmt.Errorf("failed to fill buffer with zeros: %w", err)
	}

	if err := d.adjustApplPtr(); err != nil {
		return err
	}

	d.freeRun = FreeRunNormal
	d.filledZeros = 0

	return nil
}

func (d *Device) adjustApplPtr() error {
	if d.stream == nil {
		return ErrNotOpen
	}

	if err := d.stream.ResumeApplPtr(d.minBufferLevel + d.minCbLevel); err != nil {
		return fmt.Errorf("failed to resume appl ptr: %w", err)
	}

	return nil
}

// bufferAvail is the room left above the minimum buffer level.
func (d *Device) bufferAvail(queued uint32) uint32 {
	size := d.BufferSize()
	if queued+d.minBufferLevel > size {
		return 0
	}

	return size - d.minBufferLevel - queued
}

// fillZeros writes frames of silence through the mmap area.
func (d *Device) fillZeros(frames uint32) error {
	for frames > 0 {
		area, n, err := d.GetBuffer(frames)
		if err != nil {
			return err
		}

		if n == 0 {
			return nil
		}

		clear(area)

		if err := d.PutBuffer(n); err != nil {
			return err
		}

		frames -= n
	}

	return nil
}
