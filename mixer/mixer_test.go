package mixer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/hw"
	"github.com/gen2brain/alsad/ucm"
)

const rw = hw.SNDRV_CTL_ELEM_ACCESS_READ | hw.SNDRV_CTL_ELEM_ACCESS_WRITE

type scale struct {
	minDB int32
	step  uint32
}

type fakeCtl struct {
	elems  []hw.ElemInfo
	values map[uint32][]int64
	scales map[uint32]scale
}

func newFakeCtl() *fakeCtl {
	return &fakeCtl{values: make(map[uint32][]int64), scales: make(map[uint32]scale)}
}

func (f *fakeCtl) volume(name string, hi int64, minDB int32, step uint32) {
	numid := uint32(len(f.elems) + 1)
	f.elems = append(f.elems, hw.ElemInfo{
		NumID:  numid,
		Iface:  hw.SNDRV_CTL_ELEM_IFACE_MIXER,
		Name:   name,
		Type:   hw.SNDRV_CTL_ELEM_TYPE_INTEGER,
		Access: rw | hw.SNDRV_CTL_ELEM_ACCESS_TLV_READ,
		Count:  2,
		Max:    hi,
		Step:   1,
	})
	f.values[numid] = []int64{hi, hi}
	f.scales[numid] = scale{minDB: minDB, step: step}
}

func (f *fakeCtl) toggle(name string) {
	numid := uint32(len(f.elems) + 1)
	f.elems = append(f.elems, hw.ElemInfo{
		NumID:  numid,
		Iface:  hw.SNDRV_CTL_ELEM_IFACE_MIXER,
		Name:   name,
		Type:   hw.SNDRV_CTL_ELEM_TYPE_BOOLEAN,
		Access: rw,
		Count:  2,
		Max:    1,
	})
	f.values[numid] = []int64{1, 1}
}

func (f *fakeCtl) Elems() ([]hw.ElemInfo, error) {
	return f.elems, nil
}

func (f *fakeCtl) ReadValues(numid uint32, count uint32) ([]int64, error) {
	v, ok := f.values[numid]
	if !ok {
		return nil, fmt.Errorf("no element %d", numid)
	}

	return v[:min(int(count), len(v))], nil
}

func (f *fakeCtl) WriteValues(numid uint32, values []int64) error {
	if _, ok := f.values[numid]; !ok {
		return fmt.Errorf("no element %d", numid)
	}
	f.values[numid] = append([]int64{}, values...)

	return nil
}

func (f *fakeCtl) DBScale(e hw.ElemInfo) (*hw.DBScale, error) {
	s, ok := f.scales[e.NumID]
	if !ok {
		return nil, hw.ErrNoDBInfo
	}

	return hw.ParseDBScale([]uint32{hw.SNDRV_CTL_TLVT_DB_SCALE, 8, uint32(s.minDB), s.step}, e.Min, e.Max)
}

func (f *fakeCtl) value(t *testing.T, name string) int64 {
	t.Helper()

	for _, e := range f.elems {
		if e.Name == name {
			return f.values[e.NumID][0]
		}
	}

	t.Fatalf("no element %q", name)

	return 0
}

// hdaCard mimics a typical laptop codec.
func hdaCard() *fakeCtl {
	f := newFakeCtl()
	f.volume("Master Playback Volume", 87, -6525, 75)
	f.toggle("Master Playback Switch")
	f.volume("Headphone Playback Volume", 87, -6525, 75)
	f.toggle("Headphone Playback Switch")
	f.volume("Speaker Playback Volume", 87, -6525, 75)
	f.toggle("Speaker Playback Switch")
	f.volume("Capture Volume", 63, -1725, 75)
	f.toggle("Capture Switch")
	f.volume("Mic Capture Volume", 10, 0, 100)
	f.volume("PCM Playback Volume", 255, -5100, 20)

	return f
}

func newSet(t *testing.T, f *fakeCtl) *ControlSet {
	t.Helper()

	m, err := New(f)
	require.NoError(t, err)
	require.NoError(t, m.AddControlsMatchingNames(nil, nil))

	return m
}

func names(list func(func(alsad.Control))) []string {
	var out []string
	list(func(c alsad.Control) { out = append(out, c.Name()) })

	return out
}

func TestControlSetInvalidParameters(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	var m *ControlSet
	assert.Error(t, m.AddControlsMatchingNames(nil, nil))
	assert.Error(t, m.AddControlsForSection(ucm.Section{}))
	assert.Error(t, m.SetOutputDB(nil, 0))
	assert.Error(t, m.SetCaptureDB(nil, 0))
	assert.Error(t, m.SetMute(nil, true))
	assert.Error(t, m.SetCaptureMute(nil, true))
	assert.Error(t, m.SetOutputActive(nil, true))
	assert.Error(t, m.SetByName("Master Playback Volume", 0))
	assert.Nil(t, m.ControlForSection(ucm.Section{Mixer: "Headphone"}))
	assert.Nil(t, m.OutputMatchingName("Headphone Jack"))
	assert.Nil(t, m.InputMatchingName("Mic Jack"))
	assert.False(t, m.HasMainVolume())
	assert.Zero(t, m.DBRange())
	assert.Zero(t, m.MinCaptureGain(nil))
	m.ListOutputs(func(alsad.Control) { t.Fatal("unexpected control") })
}

func TestAddControlsMatchingNames(t *testing.T) {
	m := newSet(t, hdaCard())

	assert.Equal(t, []string{"Headphone", "Speaker"}, names(m.ListOutputs))
	assert.Equal(t, []string{"Mic"}, names(m.ListInputs))
	assert.True(t, m.HasMainVolume())
	assert.Equal(t, int64(6525), m.DBRange())

	hp := m.OutputMatchingName("Headphone Jack")
	require.NotNil(t, hp)
	assert.Equal(t, "Headphone", hp.Name())
	assert.True(t, m.HasVolume(hp))
	assert.Equal(t, int64(6525), m.OutputDBRange(hp))
	assert.False(t, m.HasVolume(nil))

	assert.Equal(t, "Mic", m.InputMatchingName("Mic Jack").Name())
	assert.Nil(t, m.OutputMatchingName("Line Out Jack"))
}

func TestExtraAndCoupledNames(t *testing.T) {
	f := hdaCard()
	f.volume("Bass Speaker Playback Volume", 87, -6525, 75)

	m, err := New(f)
	require.NoError(t, err)
	require.NoError(t, m.AddControlsMatchingNames([]string{"PCM"}, map[string][]string{
		"Speakers": {"Speaker", "Bass Speaker"},
		"Nothing":  {"Missing"},
	}))

	assert.Equal(t, int64(6525+5100), m.DBRange())
	assert.Equal(t, []string{"Headphone", "Speaker", "Speakers"}, names(m.ListOutputs))

	var coupled alsad.Control
	m.ListOutputs(func(c alsad.Control) {
		if c.Name() == "Speakers" {
			coupled = c
		}
	})
	assert.Equal(t, int64(2*6525), m.OutputDBRange(coupled))
}

func TestSetOutputDB(t *testing.T) {
	f := hdaCard()
	m := newSet(t, f)
	hp := m.OutputMatchingName("Headphone")

	// Master takes what it can reach; the remainder lands on the headphone control.
	require.NoError(t, m.SetOutputDB(hp, -2000))
	assert.Equal(t, int64(60), f.value(t, "Master Playback Volume"))
	assert.Equal(t, int64(87), f.value(t, "Headphone Playback Volume"))

	require.NoError(t, m.SetOutputDB(nil, -6525))
	assert.Equal(t, int64(0), f.value(t, "Master Playback Volume"))
	assert.Equal(t, int64(87), f.value(t, "Speaker Playback Volume"))
}

func TestSetOutputDBWithoutMainVolume(t *testing.T) {
	f := newFakeCtl()
	f.volume("Speaker Playback Volume", 87, -6525, 75)

	m := newSet(t, f)
	spk := m.OutputMatchingName("Speaker")

	assert.False(t, m.HasMainVolume())
	require.NoError(t, m.SetOutputDB(spk, -1500))
	assert.Equal(t, int64(67), f.value(t, "Speaker Playback Volume"))
}

func TestCaptureGain(t *testing.T) {
	f := hdaCard()
	m := newSet(t, f)
	mic := m.InputMatchingName("Mic")

	assert.Equal(t, int64(-1725), m.MinCaptureGain(nil))
	assert.Equal(t, int64(3000), m.MaxCaptureGain(nil))
	assert.Equal(t, int64(-1725), m.MinCaptureGain(mic))
	assert.Equal(t, int64(4000), m.MaxCaptureGain(mic))

	require.NoError(t, m.SetCaptureDB(mic, 0))
	assert.Equal(t, int64(23), f.value(t, "Capture Volume"))

	require.NoError(t, m.SetCaptureMute(mic, true))
	assert.Equal(t, int64(0), f.value(t, "Capture Switch"))
}

func TestSwitches(t *testing.T) {
	f := hdaCard()
	m := newSet(t, f)
	hp := m.OutputMatchingName("Headphone")
	spk := m.OutputMatchingName("Speaker")

	require.NoError(t, m.SetMute(spk, true))
	assert.Equal(t, int64(0), f.value(t, "Master Playback Switch"))
	assert.Equal(t, int64(0), f.value(t, "Speaker Playback Switch"))
	assert.Equal(t, int64(1), f.value(t, "Headphone Playback Switch"))

	require.NoError(t, m.SetMute(spk, false))
	assert.Equal(t, int64(1), f.value(t, "Master Playback Switch"))

	require.NoError(t, m.SetOutputActive(hp, false))
	assert.Equal(t, int64(0), f.value(t, "Headphone Playback Switch"))
	require.NoError(t, m.SetOutputActive(nil, false))
}

func TestSections(t *testing.T) {
	f := hdaCard()
	m, err := New(f)
	require.NoError(t, err)

	require.NoError(t, m.AddControlsForSection(ucm.Section{Name: "Headphone", Mixer: "Headphone"}))
	require.NoError(t, m.AddControlsForSection(ucm.Section{Name: "Headphone", Mixer: "Headphone"}))
	require.NoError(t, m.AddControlsForSection(ucm.Section{Name: "Speaker"}))
	require.NoError(t, m.AddControlsForSection(ucm.Section{
		Name: "Internal Mic", Direction: alsad.Input, Coupled: []string{"Capture", "Mic"},
	}))

	err = m.AddControlsForSection(ucm.Section{Name: "Line Out", Mixer: "Line Out"})
	assert.ErrorIs(t, err, ErrNoControl)

	assert.Equal(t, []string{"Headphone"}, names(m.ListOutputs))

	ctl := m.ControlForSection(ucm.Section{Name: "Headphone", Mixer: "Headphone"})
	require.NotNil(t, ctl)
	assert.Equal(t, "Headphone", ctl.Name())

	assert.Nil(t, m.ControlForSection(ucm.Section{Name: "Speaker"}))

	mic := m.ControlForSection(ucm.Section{Name: "Internal Mic", Direction: alsad.Input, Coupled: []string{"Capture", "Mic"}})
	require.NotNil(t, mic)
	assert.Equal(t, int64(4000), m.MaxCaptureGain(mic))
	assert.Zero(t, m.MaxCaptureGain(nil))
}

func TestSetByName(t *testing.T) {
	f := hdaCard()
	m := newSet(t, f)

	require.NoError(t, m.SetByName("Headphone Playback Switch", 0))
	v, err := m.Value("Headphone Playback Switch")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	assert.ErrorIs(t, m.SetByName("Missing Switch", 1), ErrNoControl)
	_, err = m.Value("Missing Switch")
	assert.ErrorIs(t, err, ErrNoControl)
}
