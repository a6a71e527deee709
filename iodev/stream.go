package iodev

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gen2brain/alsad"
)

// Open opens the PCM at the given format and applies volume, mute and gain.
// Capture starts immediately; playback waits for samples.
func (d *Device) Open(format alsad.Format) error {
	if !format.Valid() {
		return ErrNoFormat
	}

	if d.stream != nil {
		return fmt.Errorf("device %s is already open", d.name)
	}

	if d.opener == nil {
		return fmt.Errorf("device %s has no opener", d.name)
	}

	d.numUnderruns.Store(0)
	d.freeRun = FreeRunNormal
	d.filledZeros = 0
	d.severeUnderrunFrames = SevereUnderrunMs * format.Rate / 1000

	var period uint32
	if d.dmaPeriodUs > 0 {
		period = uint32(uint64(format.Rate) * uint64(d.dmaPeriodUs) / 1000000)
	}

	stream, err := d.opener.Open(d.card.Index, d.index, d.dir, format, period)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", d.name, err)
	}

	d.stream = stream
	d.format = format
	d.state = StateOpen

	if d.minCbLevel == 0 {
		d.minCbLevel = stream.PeriodSize()
	}

	if err := d.UpdateChannelLayout(); err != nil {
		logger.Warn("Using default channel layout", "device", d.name, "error", err)
		d.layout = alsad.DefaultChannelLayout(format.Channels)
	}

	d.initDeviceSettings()

	if d.active != nil && d.active.typ == alsad.NodeTypeHotword && d.thread != nil {
		d.addHotwordCallback()
	}

	if d.dir == alsad.Input {
		if err := stream.Start(); err != nil {
			_ = d.Close()

			return fmt.Errorf("failed to start %s: %w", d.name, err)
		}
	}

	logger.Info("Opened device", "device", d.name, "rate", format.Rate, "channels", format.Channels, "buffer", stream.BufferSize())

	return nil
}

// addHotwordCallback wakes the audio thread once when the hotword engine first delivers data.
func (d *Device) addHotwordCallback() {
	fd := d.stream.Fd()
	err := d.thread.AddCallback(fd, func() error {
		d.thread.RemoveCallback(fd)

		return nil
	})
	if err != nil {
		logger.Warn("Failed to add hotword callback", "device", d.name, "error", err)
	}
}

// Close waits for the audio thread to drop the stream, then closes it.
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}

	if d.thread != nil {
		d.thread.RemoveCallbackSync(d.stream.Fd())
	}

	err := d.stream.Close()

	d.stream = nil
	d.format = alsad.Format{}
	d.layout = alsad.DefaultChannelLayout(0)
	d.state = StateClose
	d.freeRun = FreeRunNormal
	d.filledZeros = 0

	logger.Info("Closed device", "device", d.name)

	return err
}

// IsOpen reports whether the PCM is open.
func (d *Device) IsOpen() bool { return d.stream != nil }

// State returns the run state.
func (d *Device) State() State { return d.state }

// SetState records the run state decided by the stream-routing layer.
func (d *Device) SetState(s State) {
	if d.stream == nil {
		return
	}

	d.state = s
}

// Format returns the format of the open stream.
func (d *Device) Format() alsad.Format { return d.format }

// Fd returns the descriptor of the open stream, or -1.
func (d *Device) Fd() int {
	if d.stream == nil {
		return -1
	}

	return d.stream.Fd()
}

// BufferSize returns the hardware buffer size in frames.
func (d *Device) BufferSize() uint32 {
	if d.stream == nil {
		return 0
	}

	return d.stream.BufferSize()
}

// Start starts an open stream; a running stream is left alone.
func (d *Device) Start() error {
	if d.stream == nil {
		return ErrNotOpen
	}

	return d.stream.Start()
}

// FramesQueued returns the frames waiting to be played (output) or read (input)
// and when that level was sampled. The stamp comes from the hardware when the
// use-case configuration enables it, else from the raw monotonic clock.
// A hardware pointer past the severe threshold returns ErrSevereUnderrun.
func (d *Device) FramesQueued() (uint32, time.Time, error) {
	if d.stream == nil {
		return 0, time.Time{}, ErrNotOpen
	}

	avail, tstamp, err := d.stream.Timestamp()
	if err != nil {
		return 0, time.Time{}, err
	}

	if !d.hwTimestamp {
		tstamp = d.clock()
	}

	size := d.stream.BufferSize()
	if avail > size {
		if avail > d.severeUnderrunFrames {
			d.numSevereUnderruns.Add(1)
			logger.Error("Severe underrun", "device", d.name, "avail", avail, "buffer", size)
			d.notifier.SevereUnderrun(d)

			return 0, time.Time{}, ErrSevereUnderrun
		}

		d.numUnderruns.Add(1)
		avail = size
	}

	if d.dir == alsad.Input {
		return avail, tstamp, nil
	}

	return size - avail, tstamp, nil
}

// DelayFrames returns the frames between the application pointer and the
// sample being heard or captured now, at most the buffer size.
func (d *Device) DelayFrames() (uint32, error) {
	if d.stream == nil {
		return 0, ErrNotOpen
	}

	delay, err := d.stream.Delay()
	if err != nil {
		return 0, fmt.Errorf("failed to get delay of %s: %w", d.name, err)
	}

	return uint32(min(max(delay, 0), int(d.stream.BufferSize()))), nil
}

// FlushBuffer drops captured frames not yet read. Output samples are kept.
func (d *Device) FlushBuffer() error {
	if d.stream == nil {
		return ErrNotOpen
	}

	if d.dir != alsad.Input {
		return nil
	}

	dropped, err := d.stream.Forward()
	if err != nil {
		return fmt.Errorf("failed to flush %s: %w", d.name, err)
	}

	logger.Debug("Flushed capture buffer", "device", d.name, "frames", dropped)

	return nil
}

// GetBuffer returns up to frames of contiguous mmap area to fill or read.
func (d *Device) GetBuffer(frames uint32) ([]byte, uint32, error) {
	if d.stream == nil {
		return nil, 0, ErrNotOpen
	}

	return d.stream.MmapBegin(frames)
}

// PutBuffer commits frames written to or read from the area of GetBuffer.
func (d *Device) PutBuffer(frames uint32) error {
	if d.stream == nil {
		return ErrNotOpen
	}

	return d.stream.MmapCommit(frames)
}

// NumUnderruns returns the underruns since the device was opened.
func (d *Device) NumUnderruns() uint64 { return d.numUnderruns.Load() }

// NumSevereUnderruns returns the severe underruns over the device's life.
func (d *Device) NumSevereUnderruns() uint64 { return d.numSevereUnderruns.Load() }

func monotonicRaw() time.Time {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return time.Now()
	}

	return time.Unix(ts.Unix())
}
