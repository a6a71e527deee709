// Package iodev implements the devices and nodes of a sound card.
//
// A Device is one openable PCM subdevice in one direction. It owns an ordered
// list of Nodes, the user-facing endpoints (speaker, headphone, microphone)
// routed through that subdevice, and keeps one of them active.
//
// Everything except the audio path (FramesQueued, DelayFrames, GetBuffer,
// PutBuffer, FlushBuffer, NoStream, OutputUnderrun, ShouldWake) runs on the
// main loop. Jack callbacks
// arrive synchronously from that loop, so the node list needs no lock. The
// audio thread only touches stream state between Open and Close; Close waits
// for the audio thread to drop the stream before releasing it.
package iodev

import (
	"errors"
	"time"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/internal/logging"
	"github.com/gen2brain/alsad/ucm"
	"github.com/gen2brain/alsad/volume"
)

var logger = logging.GetLogger("iodev")

var (
	// ErrNoFormat is returned by Open without a usable stream format.
	ErrNoFormat = errors.New("no stream format")
	// ErrNotOpen is returned by audio-path calls on a closed device.
	ErrNotOpen = errors.New("device is not open")
	// ErrFullySpecified is returned when a node would be synthesized on a device declared by use-case sections.
	ErrFullySpecified = errors.New("device is fully specified")
	// ErrSubdeviceMismatch is returned for a section that declares another subdevice.
	ErrSubdeviceMismatch = errors.New("section subdevice does not match device")
	// ErrNoControl is returned when a section names a mixer control the card lacks.
	ErrNoControl = errors.New("section mixer control not found")
	// ErrSevereUnderrun is returned by FramesQueued when the hardware ran far past the application pointer.
	ErrSevereUnderrun = errors.New("severe underrun")
	// ErrNoNode is returned when a node does not belong to the device.
	ErrNoNode = errors.New("no such node")
)

const (
	// USBExtraBufferFrames is the minimum buffer level of USB devices.
	USBExtraBufferFrames = 768
	// SevereUnderrunMs is how far the hardware may run ahead before an underrun counts as severe.
	SevereUnderrunMs = 5000
	// DefaultMinCaptureGain is the lower capture gain limit under software gain, in 1/100 dB.
	DefaultMinCaptureGain = -5000
	// MinUSBVolumeRange is the smallest hardware dB range a USB node may use without software volume.
	MinUSBVolumeRange = 4000
)

// MixerControlSet is the mixer of the card the device belongs to.
type MixerControlSet interface {
	ListOutputs(fn func(alsad.Control))
	ListInputs(fn func(alsad.Control))
	ControlForSection(sec ucm.Section) alsad.Control
	SetOutputDB(c alsad.Control, db int64) error
	SetCaptureDB(c alsad.Control, db int64) error
	SetMute(c alsad.Control, muted bool) error
	SetCaptureMute(c alsad.Control, muted bool) error
	DBRange() int64
	OutputDBRange(c alsad.Control) int64
	MinCaptureGain(c alsad.Control) int64
	MaxCaptureGain(c alsad.Control) int64
	SetOutputActive(c alsad.Control, active bool) error
	HasMainVolume() bool
	HasVolume(c alsad.Control) bool
}

// Jack is one plug detector bound to a node.
type Jack interface {
	Name() string
	DSPName() string
	UCMDevice() string
	MixerOutput() alsad.Control
	MixerInput() alsad.Control
	MonitorName() string
	UpdateNodeType(t alsad.NodeType) alsad.NodeType
	SetRouteEnabled(enabled bool) error
}

// JackList is the set of jacks watched for one device.
type JackList interface {
	FindByNameMatching() error
	AddForSection(sec ucm.Section) (Jack, error)
	Report()
	HasPolledJacks() bool
	Destroy()
}

// JackCallback receives plug state changes.
type JackCallback func(j Jack, plugged bool)

// JackFactory creates the jack list of a device, reporting to cb.
type JackFactory func(cb JackCallback) (JackList, error)

// UseCase is the use-case configuration of the card.
type UseCase interface {
	SwapModeExists() bool
	SetSwapMode(device string, on bool) error
	SetEnabled(device string, enabled bool) error
	DefaultDSPName(dir alsad.Direction) string
	DMAPeriod(device string) uint32
	MinBufferLevel() uint32
	HardwareTimestamp() bool
	MaxSoftwareGain(device string) (int64, bool)
	DefaultNodeGain(device string) (int64, bool)
	AutoUnplug(dir alsad.Direction) bool
	NoDefaultNode(dir alsad.Direction) bool
	DisableSoftwareVolume() bool
	SampleRate(device string) uint32
	CaptureChannelMap(device string) []int8
	HotwordModels() []string
	SetHotwordModel(name string) error
}

// CurveConfig provides per-card volume curves by control name.
type CurveConfig interface {
	CurveForControl(name string) volume.Curve
}

// Stream is an open PCM in mmap mode.
type Stream interface {
	Fd() int
	BufferSize() uint32
	PeriodSize() uint32
	// Timestamp returns the available frames and when the kernel last updated them.
	Timestamp() (uint32, time.Time, error)
	Delay() (int, error)
	Forward() (uint32, error)
	MmapBegin(frames uint32) ([]byte, uint32, error)
	MmapCommit(frames uint32) error
	FillWholeBufferZeros() error
	ResumeApplPtr(ahead uint32) error
	Start() error
	Close() error
}

// Capabilities are the stream formats a subdevice accepts.
type Capabilities struct {
	Rates    []uint32
	Channels []uint32
	Samples  []alsad.SampleFormat
}

// Opener opens the PCM of a device. A zero periodFrames lets the opener choose.
type Opener interface {
	Open(card, device uint32, dir alsad.Direction, format alsad.Format, periodFrames uint32) (Stream, error)
	Capabilities(card, device uint32, dir alsad.Direction) (Capabilities, error)
}

// AudioThread runs callbacks when a stream descriptor becomes ready.
type AudioThread interface {
	AddCallback(fd int, cb func() error) error
	RemoveCallback(fd int)
	RemoveCallbackSync(fd int)
}

// SystemState is the process-wide volume, mute and gain.
type SystemState interface {
	Volume() int64
	Mute() bool
	CaptureGain() int64
	CaptureMute() bool
	SetVolumeLimits(minDB, maxDB int64)
	SetCaptureGainLimits(minGain, maxGain int64)
}

// Notifier is told about node and device changes.
type Notifier interface {
	NodePlugged(d *Device, n *Node, plugged bool)
	ActiveNodeChanged(d *Device, n *Node)
	NodesChanged(d *Device)
	SevereUnderrun(d *Device)
}

type nopNotifier struct{}

func (nopNotifier) NodePlugged(*Device, *Node, bool) {}
func (nopNotifier) ActiveNodeChanged(*Device, *Node) {}
func (nopNotifier) NodesChanged(*Device)             {}
func (nopNotifier) SevereUnderrun(*Device)           {}
