package iodev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/alsad"
)

func TestInferInitialState(t *testing.T) {
	tests := []struct {
		name     string
		dir      alsad.Direction
		card     alsad.CardType
		wantName string
		typ      alsad.NodeType
		position alsad.Position
		plugged  bool
	}{
		{"Speaker", alsad.Output, alsad.CardTypeInternal, "Speaker", alsad.NodeTypeInternalSpeaker, alsad.PositionInternal, true},
		{"Headphone", alsad.Output, alsad.CardTypeInternal, "Headphone", alsad.NodeTypeHeadphone, alsad.PositionExternal, false},
		{"Front Headphone", alsad.Output, alsad.CardTypeInternal, "Front Headphone", alsad.NodeTypeHeadphone, alsad.PositionExternal, false},
		{"HDMI", alsad.Output, alsad.CardTypeInternal, "HDMI", alsad.NodeTypeHDMI, alsad.PositionExternal, false},
		{"IEC958", alsad.Output, alsad.CardTypeInternal, "IEC958", alsad.NodeTypeHDMI, alsad.PositionExternal, false},
		{"Line Out", alsad.Output, alsad.CardTypeInternal, "Line Out", alsad.NodeTypeLineout, alsad.PositionExternal, false},
		{"Haptic", alsad.Output, alsad.CardTypeInternal, "Haptic", alsad.NodeTypeHaptic, alsad.PositionInternal, true},
		{"(default)", alsad.Output, alsad.CardTypeInternal, "(default)", alsad.NodeTypeUnknown, alsad.PositionInternal, true},
		{"Internal Mic", alsad.Input, alsad.CardTypeInternal, "Internal Mic", alsad.NodeTypeMic, alsad.PositionInternal, true},
		{"Keyboard Mic", alsad.Input, alsad.CardTypeInternal, "Keyboard Mic", alsad.NodeTypeMic, alsad.PositionKeyboard, true},
		{"Front Mic", alsad.Input, alsad.CardTypeInternal, "Front Mic", alsad.NodeTypeMic, alsad.PositionFront, true},
		{"Rear Mic", alsad.Input, alsad.CardTypeInternal, "Rear Mic", alsad.NodeTypeMic, alsad.PositionRear, true},
		{"Mic", alsad.Input, alsad.CardTypeInternal, "Mic", alsad.NodeTypeMic, alsad.PositionExternal, false},
		{"Wake on Voice", alsad.Input, alsad.CardTypeInternal, "Wake on Voice", alsad.NodeTypeHotword, alsad.PositionInternal, true},
		{"DAISY-I2S Headphone Jack", alsad.Output, alsad.CardTypeInternal, "DAISY-I2S Headphone Jack", alsad.NodeTypeHeadphone, alsad.PositionExternal, false},
		{"DAISY-I2S Mic Jack", alsad.Input, alsad.CardTypeInternal, "DAISY-I2S Mic Jack", alsad.NodeTypeMic, alsad.PositionExternal, false},
		{"Rockchip HDMI Jack", alsad.Output, alsad.CardTypeInternal, "Rockchip HDMI Jack", alsad.NodeTypeHDMI, alsad.PositionExternal, false},
		{"Something", alsad.Output, alsad.CardTypeInternal, "Something", alsad.NodeTypeUnknown, alsad.PositionExternal, false},
		{"Speaker", alsad.Output, alsad.CardTypeUSB, "Speaker", alsad.NodeTypeUSB, alsad.PositionExternal, true},
		{"Mic", alsad.Input, alsad.CardTypeUSB, "Mic", alsad.NodeTypeUSB, alsad.PositionExternal, false},
		{"\xff\xfe", alsad.Output, alsad.CardTypeUSB, USBNodeName, alsad.NodeTypeUSB, alsad.PositionExternal, false},
		{"HDMI\xff", alsad.Output, alsad.CardTypeInternal, HDMINodeName, alsad.NodeTypeHDMI, alsad.PositionExternal, false},
		{"\xff", alsad.Input, alsad.CardTypeInternal, DefaultNodeName, alsad.NodeTypeUnknown, alsad.PositionExternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.dir.String()+"/"+tt.name, func(t *testing.T) {
			st := inferInitialState(tt.name, tt.dir, tt.card)
			assert.Equal(t, tt.wantName, st.name)
			assert.Equal(t, tt.typ, st.typ)
			assert.Equal(t, tt.position, st.position)
			assert.Equal(t, tt.plugged, st.plugged)
		})
	}
}

func TestDeviceIDs(t *testing.T) {
	id, idNew := deviceIDs(internalCard, "ALC3246 Analog", 0)
	assert.Equal(t, id, idNew)

	again, _ := deviceIDs(internalCard, "ALC3246 Analog", 0)
	assert.Equal(t, id, again, "ids are stable")

	other, _ := deviceIDs(internalCard, "ALC3246 Analog", 1)
	assert.NotEqual(t, id, other, "subdevice index is part of the id")

	usbID, usbIDNew := deviceIDs(usbCard, "USB Audio", 0)
	assert.NotEqual(t, usbID, usbIDNew)

	// Internal ids ignore USB identity, USB ids ignore the subdevice index.
	reindexed, _ := deviceIDs(usbCard, "USB Audio", 1)
	assert.Equal(t, usbID, reindexed)

	other2 := usbCard
	other2.Serial = "ZZZZ"
	sameID, newID := deviceIDs(other2, "USB Audio", 0)
	assert.Equal(t, usbID, sameID, "serial only enters the new id")
	assert.NotEqual(t, usbIDNew, newID)

	other2.ProductID++
	changed, _ := deviceIDs(other2, "USB Audio", 0)
	assert.NotEqual(t, usbID, changed)
}

func TestNodeIDsHashDiscoveredName(t *testing.T) {
	m := newFakeMixer(ctl("\xffbad"))
	m.dbRange = 6000
	e := newEnv(t, withCard(usbCard), withPCM("USB Audio", "USB Audio"), withMixer(m))
	require.NoError(t, e.dev.LegacyCompleteInit())

	n := e.dev.Nodes()[0]
	assert.Equal(t, USBNodeName, n.Name())

	raw := e.dev.Name() + ": \xffbad"
	wantID, wantIDNew := nodeIDs(raw, e.dev.StableID(), e.dev.StableIDNew())
	assert.Equal(t, wantID, n.StableID())
	assert.Equal(t, wantIDNew, n.StableIDNew())
	assert.NotEqual(t, n.StableID(), n.StableIDNew())
}

func TestNodeVolume(t *testing.T) {
	n := &Node{volume: 100}
	assert.EqualValues(t, 80, n.adjustVolume(80))

	n.volume = 90
	assert.EqualValues(t, 70, n.adjustVolume(80))

	n.volume = 0
	assert.EqualValues(t, 0, n.adjustVolume(50))

	require.NoError(t, n.SetVolume(150))
	assert.EqualValues(t, 100, n.Volume())

	require.NoError(t, n.SetVolume(-5))
	assert.EqualValues(t, 0, n.Volume())
	assert.False(t, n.Active())
}
