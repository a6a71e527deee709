package card

import (
	"fmt"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/hw"
	"github.com/gen2brain/alsad/iodev"
)

// Control is an open control device of a card.
type Control interface {
	Elems() ([]hw.ElemInfo, error)
	ReadValues(numid uint32, count uint32) ([]int64, error)
	ReadBytes(numid uint32, count uint32) ([]byte, error)
	WriteValues(numid uint32, values []int64) error
	DBScale(e hw.ElemInfo) (*hw.DBScale, error)
	PcmDevices(stream int) ([]hw.PcmInfo, error)
	Close() error
}

// EventSource is a non-blocking control handle subscribed to element events.
type EventSource interface {
	Fd() int
	ReadEvents() ([]hw.Event, error)
	Close() error
}

// Hardware opens the handles of a card.
type Hardware interface {
	OpenControl(card uint32) (Control, error)
	OpenEvents(card uint32) (EventSource, error)
}

// EventLoop watches descriptors on the main loop.
type EventLoop interface {
	RegisterFd(fd int, cb func()) error
	UnregisterFd(fd int)
}

// ALSA is the Hardware of the running kernel.
type ALSA struct{}

// OpenControl opens /dev/snd/controlC<card>.
func (ALSA) OpenControl(card uint32) (Control, error) {
	ctl, err := hw.CtlOpen(uint(card))
	if err != nil {
		return nil, err
	}

	return ctl, nil
}

// OpenEvents opens a second, event-subscribed control handle.
func (ALSA) OpenEvents(card uint32) (EventSource, error) {
	ctl, err := hw.CtlOpenEvents(uint(card))
	if err != nil {
		return nil, err
	}

	return ctl, nil
}

// Describe reads a present card: its name from the control device and, for USB cards, the device identity.
func (ALSA) Describe(index uint32) (alsad.CardInfo, error) {
	ctl, err := hw.CtlOpen(uint(index))
	if err != nil {
		return alsad.CardInfo{}, err
	}
	defer ctl.Close()

	info := alsad.CardInfo{
		Index: index,
		Type:  alsad.CardTypeInternal,
		Name:  ctl.CardInfo().Name,
	}

	if usb, ok := hw.USBIdentity(index); ok {
		info.Type = alsad.CardTypeUSB
		info.VendorID = usb.VendorID
		info.ProductID = usb.ProductID
		info.Serial = usb.Serial
		info.Checksum = usb.Checksum
	}

	return info, nil
}

// DefaultPeriodCount is the number of periods in a hardware buffer.
const DefaultPeriodCount = 4

// PCMOpener opens device streams through hw.PcmOpen.
type PCMOpener struct {
	// PeriodFrames is used when the device declares no period.
	PeriodFrames uint32
	// PeriodCount is the number of periods in the buffer; DefaultPeriodCount when zero.
	PeriodCount uint32
}

// Open opens the PCM of a subdevice in mmap mode.
func (o PCMOpener) Open(card, device uint32, dir alsad.Direction, format alsad.Format, periodFrames uint32) (iodev.Stream, error) {
	if periodFrames == 0 {
		periodFrames = o.PeriodFrames
	}

	count := o.PeriodCount
	if count == 0 {
		count = DefaultPeriodCount
	}

	pcm, err := hw.PcmOpen(uint(card), uint(device), dir == alsad.Input, hw.Config{
		Format:      int32(format.Sample),
		Channels:    format.Channels,
		Rate:        format.Rate,
		PeriodSize:  periodFrames,
		PeriodCount: count,
	})
	if err != nil {
		return nil, err
	}

	if pcm.Rate() != format.Rate || pcm.Channels() != format.Channels {
		_ = pcm.Close()

		return nil, fmt.Errorf("hw:%d,%d does not support %d Hz %d channels (got %d Hz %d channels)",
			card, device, format.Rate, format.Channels, pcm.Rate(), pcm.Channels())
	}

	return pcm, nil
}

// Common stream formats checked against the hardware parameter space.
var (
	testRates    = []uint32{4000, 8000, 16000, 22050, 32000, 44100, 48000, 96000, 192000}
	testChannels = []uint32{1, 2, 4, 6, 8, 10}
	testSamples  = []alsad.SampleFormat{alsad.FormatS16LE, alsad.FormatS24LE, alsad.FormatS32LE, alsad.FormatS24_3LE}
)

// paramSpace is the refined parameter space of a PCM.
type paramSpace interface {
	RangeMin(param hw.PcmParam) (uint32, error)
	RangeMax(param hw.PcmParam) (uint32, error)
	FormatIsSupported(format int32) bool
}

// Capabilities lists the common rates, channel counts and sample formats the subdevice accepts.
func (o PCMOpener) Capabilities(card, device uint32, dir alsad.Direction) (iodev.Capabilities, error) {
	params, err := hw.PcmParamsGetRefined(uint(card), uint(device), dir == alsad.Input)
	if err != nil {
		return iodev.Capabilities{}, err
	}

	caps, err := capabilities(params)
	if err != nil {
		return iodev.Capabilities{}, fmt.Errorf("hw:%d,%d: %w", card, device, err)
	}

	return caps, nil
}

func capabilities(p paramSpace) (iodev.Capabilities, error) {
	inRange := func(param hw.PcmParam, candidates []uint32) ([]uint32, error) {
		lo, err := p.RangeMin(param)
		if err != nil {
			return nil, err
		}

		hi, err := p.RangeMax(param)
		if err != nil {
			return nil, err
		}

		var out []uint32
		for _, v := range candidates {
			if v >= lo && v <= hi {
				out = append(out, v)
			}
		}

		return out, nil
	}

	var caps iodev.Capabilities
	var err error

	if caps.Rates, err = inRange(hw.SNDRV_PCM_HW_PARAM_RATE, testRates); err != nil {
		return iodev.Capabilities{}, err
	}

	if caps.Channels, err = inRange(hw.SNDRV_PCM_HW_PARAM_CHANNELS, testChannels); err != nil {
		return iodev.Capabilities{}, err
	}

	for _, f := range testSamples {
		if p.FormatIsSupported(int32(f)) {
			caps.Samples = append(caps.Samples, f)
		}
	}

	if len(caps.Rates) == 0 || len(caps.Channels) == 0 || len(caps.Samples) == 0 {
		return iodev.Capabilities{}, fmt.Errorf("no common stream format supported")
	}

	return caps, nil
}
