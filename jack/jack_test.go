package jack

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/hw"
	"github.com/gen2brain/alsad/ucm"
)

type fakeReader struct {
	elems  []hw.ElemInfo
	values map[uint32]int64
	bytes  map[uint32][]byte
}

func newFakeReader() *fakeReader {
	return &fakeReader{values: make(map[uint32]int64), bytes: make(map[uint32][]byte)}
}

func (f *fakeReader) add(iface hw.ElemIface, name string, device uint32, typ hw.ElemType) uint32 {
	numid := uint32(len(f.elems) + 1)
	f.elems = append(f.elems, hw.ElemInfo{NumID: numid, Iface: iface, Name: name, Device: device, Type: typ, Count: 1})

	return numid
}

func (f *fakeReader) jack(name string, plugged bool) uint32 {
	numid := f.add(hw.SNDRV_CTL_ELEM_IFACE_CARD, name, 0, hw.SNDRV_CTL_ELEM_TYPE_BOOLEAN)
	f.set(numid, plugged)

	return numid
}

func (f *fakeReader) set(numid uint32, plugged bool) {
	f.values[numid] = 0
	if plugged {
		f.values[numid] = 1
	}
}

func (f *fakeReader) Elems() ([]hw.ElemInfo, error) {
	return f.elems, nil
}

func (f *fakeReader) ReadValues(numid uint32, _ uint32) ([]int64, error) {
	v, ok := f.values[numid]
	if !ok {
		return nil, fmt.Errorf("no element %d", numid)
	}

	return []int64{v}, nil
}

func (f *fakeReader) ReadBytes(numid uint32, _ uint32) ([]byte, error) {
	b, ok := f.bytes[numid]
	if !ok {
		return nil, fmt.Errorf("no element %d", numid)
	}

	return b, nil
}

type control string

func (c control) Name() string { return string(c) }

type fakeControls struct{}

func (fakeControls) OutputMatchingName(name string) alsad.Control {
	if name == "Headphone" {
		return control("Headphone")
	}

	return nil
}

func (fakeControls) InputMatchingName(name string) alsad.Control {
	if name == "Mic" {
		return control("Mic")
	}

	return nil
}

func (fakeControls) ControlForSection(sec ucm.Section) alsad.Control {
	if sec.Mixer == "" {
		return nil
	}

	return control(sec.Mixer)
}

type routes map[string]bool

func (r routes) SetEnabled(device string, enabled bool) error {
	r[device] = enabled

	return nil
}

type report struct {
	name    string
	plugged bool
}

func newList(t *testing.T, r *fakeReader, cfg Config) (*List, *[]report) {
	t.Helper()

	var reports []report
	cfg.Reader = r
	cfg.Controls = fakeControls{}
	cfg.Callback = func(j *Jack, plugged bool) {
		reports = append(reports, report{j.Name(), plugged})
	}

	l, err := New(cfg)
	require.NoError(t, err)

	return l, &reports
}

func eld(name string) []byte {
	b := make([]byte, 20+len(name)+4)
	b[4] = byte(len(name))
	copy(b[20:], name)

	return b
}

func TestListInvalidParameters(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	var l *List
	assert.Error(t, l.FindByNameMatching())
	_, err = l.AddForSection(ucm.Section{Jack: "Headphone Jack"})
	assert.Error(t, err)
	assert.False(t, l.HasPolledJacks())
	assert.Nil(t, l.Jacks())
	l.Report()
	l.HandleEvent(hw.Event{Mask: hw.SNDRV_CTL_EVENT_MASK_VALUE})
	l.Destroy()
}

func TestFindByNameMatching(t *testing.T) {
	r := newFakeReader()
	r.jack("Headphone Jack", true)
	r.jack("Mic Jack", false)
	r.jack("HDMI/DP,pcm=3 Jack", true)
	r.jack("HDMI/DP,pcm=7 Jack", false)
	r.add(hw.SNDRV_CTL_ELEM_IFACE_MIXER, "Headphone Playback Switch", 0, hw.SNDRV_CTL_ELEM_TYPE_BOOLEAN)

	t.Run("FirstOutput", func(t *testing.T) {
		l, reports := newList(t, r, Config{Direction: alsad.Output, First: true})
		require.NoError(t, l.FindByNameMatching())
		require.NoError(t, l.FindByNameMatching())

		require.Len(t, l.Jacks(), 1)
		hp := l.Jacks()[0]
		assert.Equal(t, "Headphone Jack", hp.Name())
		assert.Equal(t, "Headphone", hp.MixerOutput().Name())
		assert.Nil(t, hp.MixerInput())
		assert.True(t, l.HasPolledJacks())

		l.Report()
		assert.Equal(t, []report{{"Headphone Jack", true}}, *reports)
	})

	t.Run("HDMIDevice", func(t *testing.T) {
		l, _ := newList(t, r, Config{Direction: alsad.Output, Device: 3})
		require.NoError(t, l.FindByNameMatching())

		require.Len(t, l.Jacks(), 1)
		assert.Equal(t, "HDMI/DP,pcm=3 Jack", l.Jacks()[0].Name())
		assert.Equal(t, alsad.NodeTypeHDMI, l.Jacks()[0].UpdateNodeType(alsad.NodeTypeUnknown))
	})

	t.Run("FirstInput", func(t *testing.T) {
		l, _ := newList(t, r, Config{Direction: alsad.Input, First: true})
		require.NoError(t, l.FindByNameMatching())

		require.Len(t, l.Jacks(), 1)
		assert.Equal(t, "Mic", l.Jacks()[0].MixerInput().Name())
		assert.False(t, l.Jacks()[0].Plugged())
	})

	t.Run("SecondDevice", func(t *testing.T) {
		l, _ := newList(t, r, Config{Direction: alsad.Output, Device: 1})
		require.NoError(t, l.FindByNameMatching())
		assert.Empty(t, l.Jacks())
		assert.False(t, l.HasPolledJacks())
	})
}

func TestAddForSection(t *testing.T) {
	r := newFakeReader()
	r.jack("Headphone Jack", false)
	rt := routes{}

	l, _ := newList(t, r, Config{Direction: alsad.Output, Routes: rt})

	j, err := l.AddForSection(ucm.Section{Name: "Speaker"})
	require.NoError(t, err)
	assert.Nil(t, j)

	_, err = l.AddForSection(ucm.Section{Name: "Line Out", Jack: "Line Out Jack"})
	assert.ErrorIs(t, err, ErrNotFound)

	j, err = l.AddForSection(ucm.Section{Name: "Headphone", Jack: "Headphone Jack", Mixer: "Headphone", DSP: "headphone_eq"})
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "Headphone", j.UCMDevice())
	assert.Equal(t, "headphone_eq", j.DSPName())
	assert.Equal(t, "Headphone", j.MixerOutput().Name())

	require.NoError(t, j.SetRouteEnabled(true))
	assert.Equal(t, routes{"Headphone": true}, rt)
}

func TestHandleEvent(t *testing.T) {
	r := newFakeReader()
	numid := r.jack("Headphone Jack", false)

	l, reports := newList(t, r, Config{Direction: alsad.Output, First: true})
	require.NoError(t, l.FindByNameMatching())

	change := hw.Event{Mask: hw.SNDRV_CTL_EVENT_MASK_VALUE, NumID: numid}

	l.HandleEvent(change)
	assert.Empty(t, *reports)

	r.set(numid, true)
	l.HandleEvent(hw.Event{Mask: hw.SNDRV_CTL_EVENT_MASK_VALUE, NumID: 99})
	l.HandleEvent(hw.Event{Mask: hw.SNDRV_CTL_EVENT_MASK_REMOVE, NumID: numid})
	assert.Empty(t, *reports)

	l.HandleEvent(change)
	l.HandleEvent(change)
	r.set(numid, false)
	l.HandleEvent(change)

	assert.Equal(t, []report{{"Headphone Jack", true}, {"Headphone Jack", false}}, *reports)
}

func TestMonitorName(t *testing.T) {
	r := newFakeReader()
	r.jack("HDMI/DP,pcm=3 Jack", true)
	numid := r.add(hw.SNDRV_CTL_ELEM_IFACE_PCM, "ELD", 3, hw.SNDRV_CTL_ELEM_TYPE_BYTES)
	r.bytes[numid] = eld("DELL U2415")

	l, _ := newList(t, r, Config{Direction: alsad.Output, Device: 3})
	require.NoError(t, l.FindByNameMatching())
	require.Len(t, l.Jacks(), 1)

	assert.Equal(t, "DELL U2415", l.Jacks()[0].MonitorName())

	assert.Equal(t, "", parseMonitorName([]byte{1, 2, 3}))
	assert.Equal(t, "", (&Jack{}).MonitorName())
}

func TestUpdateNodeType(t *testing.T) {
	assert.Equal(t, alsad.NodeTypeLineout, (&Jack{name: "Line Out Jack"}).UpdateNodeType(alsad.NodeTypeHeadphone))
	assert.Equal(t, alsad.NodeTypeHeadphone, (&Jack{name: "Headphone Jack"}).UpdateNodeType(alsad.NodeTypeHeadphone))
}
