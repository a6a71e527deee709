package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/blacklist"
	"github.com/gen2brain/alsad/card"
	"github.com/gen2brain/alsad/internal/config"
	"github.com/gen2brain/alsad/internal/source"
	"github.com/gen2brain/alsad/internal/system"
	"github.com/gen2brain/alsad/iodev"
)

// playbackDevice is the part of an output device the player drives.
type playbackDevice interface {
	Format() alsad.Format
	BufferSize() uint32
	MinCbLevel() uint32
	FramesQueued() (uint32, time.Time, error)
	NumUnderruns() uint64
	GetBuffer(frames uint32) ([]byte, uint32, error)
	PutBuffer(frames uint32) error
	Start() error
	OutputUnderrun() error
	NoStream(enable bool) error
	FreeRun() iodev.FreeRunState
}

type frameReader interface {
	ReadFrames(dst []byte, f alsad.Format) (int, error)
}

func newPlayCmd(opts *config.Options) *cobra.Command {
	var cardIndex uint32
	var deviceIndex int

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play a WAV or MP3 file through an output device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return play(ctx, cmd, opts, args[0], cardIndex, deviceIndex)
		},
	}

	cmd.Flags().Uint32Var(&cardIndex, "card", 0, "The card to play through")
	cmd.Flags().IntVar(&deviceIndex, "device", -1, "The output device of the card, -1 for its first")

	return cmd
}

func play(ctx context.Context, cmd *cobra.Command, opts *config.Options, path string, cardIndex uint32, deviceIndex int) error {
	src, err := source.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	bl, err := blacklist.Load(opts.Blacklist)
	if err != nil {
		return err
	}

	m, err := openCard(card.ALSA{}, opts, bl, system.New(), cardIndex)
	if err != nil {
		return err
	}
	defer m.Destroy()

	d := outputDevice(m.Devices(), deviceIndex)
	if d == nil {
		return fmt.Errorf("card %d has no output device %d", cardIndex, deviceIndex)
	}

	format := src.Format()
	if err := d.Open(format); err != nil {
		return err
	}
	defer d.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Playing %s on %s\n", path, d.Name())
	if n := d.ActiveNode(); n != nil {
		fmt.Fprintf(out, "Node: %s\n", n.Name())
	}
	if duration, err := src.Duration(); err == nil {
		fmt.Fprintf(out, "Duration: %s, %d Hz, %d channels\n", duration.Round(time.Millisecond), format.Rate, format.Channels)
	}

	start := time.Now()

	err = pump(ctx, d, src)
	if err == nil {
		err = drain(ctx, d)
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	fmt.Fprintf(out, "Played %s, %d underruns, %d severe\n",
		time.Since(start).Round(time.Millisecond), d.NumUnderruns(), d.NumSevereUnderruns())

	return err
}

// outputDevice returns the output with the given index, or the first output when index is negative.
func outputDevice(devices []*iodev.Device, index int) *iodev.Device {
	for _, d := range devices {
		if d.Direction() != alsad.Output {
			continue
		}

		if index < 0 || d.Index() == uint32(index) {
			return d
		}
	}

	return nil
}

// period is the time the hardware takes to play the minimum callback level.
func period(d playbackDevice) time.Duration {
	rate := d.Format().Rate
	if rate == 0 {
		return 10 * time.Millisecond
	}

	return time.Duration(max(d.MinCbLevel(), 1)) * time.Second / time.Duration(rate)
}

func sleep(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pump copies frames from r into the device until r is exhausted. The device is
// started once the first frames are queued. A started device that runs dry is
// refilled with silence before copying resumes.
func pump(ctx context.Context, d playbackDevice, r frameReader) error {
	format := d.Format()
	frameBytes := int(format.FrameBytes())
	wait := period(d)
	started := false
	underruns := d.NumUnderruns()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		queued, _, err := d.FramesQueued()
		if errors.Is(err, iodev.ErrSevereUnderrun) {
			logger.Warn("Severe underrun, restarting playback")

			if err := d.OutputUnderrun(); err != nil {
				return err
			}

			continue
		}
		if err != nil {
			return err
		}

		n := d.NumUnderruns()
		rose := n > underruns
		underruns = n

		if started && (queued == 0 || rose) {
			logger.Warn("Underrun, refilling playback buffer", "queued", queued, "underruns", n)

			if err := d.OutputUnderrun(); err != nil {
				return err
			}

			continue
		}

		writable := d.BufferSize() - queued
		if writable == 0 || writable < min(d.MinCbLevel(), d.BufferSize()) {
			if err := sleep(ctx, wait); err != nil {
				return err
			}

			continue
		}

		area, frames, err := d.GetBuffer(writable)
		if err != nil {
			return err
		}

		if frames == 0 {
			if err := sleep(ctx, wait); err != nil {
				return err
			}

			continue
		}

		read, err := r.ReadFrames(area[:int(frames)*frameBytes], format)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if err := d.PutBuffer(uint32(read)); err != nil {
			return err
		}

		if !started && read > 0 {
			if err := d.Start(); err != nil {
				return err
			}
			started = true
		}
	}

	return nil
}

// drain pads the queued frames with silence until the device runs free.
func drain(ctx context.Context, d playbackDevice) error {
	wait := period(d)

	for {
		if err := d.NoStream(true); err != nil {
			return err
		}

		if d.FreeRun() == iodev.FreeRunActive {
			return nil
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}
