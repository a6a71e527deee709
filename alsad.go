// Package alsad holds the vocabulary shared by the card, device and node layers of the audio endpoint manager.
package alsad

import (
	"fmt"
	"strings"
)

// Direction is the stream direction of a device or node.
type Direction int

const (
	// Output is a playback direction.
	Output Direction = iota
	// Input is a capture direction.
	Input
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	if d == Input {
		return "input"
	}

	return "output"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts "output"/"playback" and "input"/"capture".
func (d *Direction) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "output", "playback":
		*d = Output
	case "input", "capture":
		*d = Input
	default:
		return fmt.Errorf("unknown direction %q", text)
	}

	return nil
}

// NodeType classifies what a node is physically connected to.
type NodeType int

const (
	NodeTypeUnknown NodeType = iota
	NodeTypeInternalSpeaker
	NodeTypeHeadphone
	NodeTypeHDMI
	NodeTypeHaptic
	NodeTypeLineout
	NodeTypeMic
	NodeTypeHotword
	NodeTypeUSB
)

var nodeTypeNames = map[NodeType]string{
	NodeTypeUnknown:         "UNKNOWN",
	NodeTypeInternalSpeaker: "INTERNAL_SPEAKER",
	NodeTypeHeadphone:       "HEADPHONE",
	NodeTypeHDMI:            "HDMI",
	NodeTypeHaptic:          "HAPTIC",
	NodeTypeLineout:         "LINEOUT",
	NodeTypeMic:             "MIC",
	NodeTypeHotword:         "HOTWORD",
	NodeTypeUSB:             "USB",
}

// String returns the upper-case type name.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Position is where a node sits relative to the machine.
// The zero value is External.
type Position int

const (
	PositionExternal Position = iota
	PositionInternal
	PositionFront
	PositionRear
	PositionKeyboard
)

var positionNames = []string{"EXTERNAL", "INTERNAL", "FRONT", "REAR", "KEYBOARD"}

// String returns the upper-case position name.
func (p Position) String() string {
	if p >= 0 && int(p) < len(positionNames) {
		return positionNames[p]
	}

	return fmt.Sprintf("Position(%d)", int(p))
}

// CardType tells built-in cards apart from hot-pluggable USB cards.
type CardType int

const (
	CardTypeInternal CardType = iota
	CardTypeUSB
)

// String returns "internal" or "usb".
func (c CardType) String() string {
	if c == CardTypeUSB {
		return "usb"
	}

	return "internal"
}

// CardInfo describes one sound card as seen at arrival time.
type CardInfo struct {
	Index     uint32
	Type      CardType
	Name      string
	VendorID  uint32
	ProductID uint32
	Serial    string
	Checksum  uint32
}

// String returns a short identification of the card.
func (c CardInfo) String() string {
	if c.Type == CardTypeUSB {
		return fmt.Sprintf("card %d (%s, usb %04x:%04x)", c.Index, c.Name, c.VendorID, c.ProductID)
	}

	return fmt.Sprintf("card %d (%s)", c.Index, c.Name)
}

// Control is an opaque handle to a mixer control owned by a control set.
type Control interface {
	Name() string
}

// SampleFormat is a PCM sample encoding, numerically equal to the kernel's SNDRV_PCM_FORMAT value.
type SampleFormat int32

const (
	FormatS16LE   SampleFormat = 2
	FormatS24LE   SampleFormat = 6
	FormatS32LE   SampleFormat = 10
	FormatFloatLE SampleFormat = 14
	FormatS24_3LE SampleFormat = 32
)

// Bytes returns the container size of one sample in bytes, or 0 if unknown.
func (f SampleFormat) Bytes() uint32 {
	switch f {
	case FormatS16LE:
		return 2
	case FormatS24_3LE:
		return 3
	case FormatS24LE, FormatS32LE, FormatFloatLE:
		return 4
	default:
		return 0
	}
}

// String returns the kernel name of the sample format.
func (f SampleFormat) String() string {
	switch f {
	case FormatS16LE:
		return "S16_LE"
	case FormatS24LE:
		return "S24_LE"
	case FormatS32LE:
		return "S32_LE"
	case FormatFloatLE:
		return "FLOAT_LE"
	case FormatS24_3LE:
		return "S24_3LE"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int32(f))
	}
}

// Format is the stream format an open device runs at.
type Format struct {
	Sample   SampleFormat
	Rate     uint32
	Channels uint32
}

// FrameBytes returns the size of one interleaved frame.
func (f Format) FrameBytes() uint32 {
	return f.Sample.Bytes() * f.Channels
}

// Valid reports whether the format can be used to open a stream.
func (f Format) Valid() bool {
	return f.Rate > 0 && f.Channels > 0 && f.Sample.Bytes() > 0
}

// Channel is a speaker position.
type Channel int

const (
	ChannelFL Channel = iota
	ChannelFR
	ChannelRL
	ChannelRR
	ChannelFC
	ChannelLFE
	ChannelSL
	ChannelSR
	ChannelRC
	ChannelFLC
	ChannelFRC

	// NumChannels is the number of known positions.
	NumChannels
)

// ChannelLayout holds the slot of each position in an interleaved frame, -1 when the frame does not carry it.
type ChannelLayout [NumChannels]int8

// DefaultChannelLayout places the first channels positions in order.
func DefaultChannelLayout(channels uint32) ChannelLayout {
	var l ChannelLayout
	for i := range l {
		l[i] = -1
		if uint32(i) < channels {
			l[i] = int8(i)
		}
	}

	return l
}

// Valid reports whether every slot in use is below channels and used once.
func (l ChannelLayout) Valid(channels uint32) bool {
	seen := make(map[int8]bool)
	for _, slot := range l {
		if slot < 0 {
			continue
		}

		if uint32(slot) >= channels || seen[slot] {
			return false
		}
		seen[slot] = true
	}

	return true
}
