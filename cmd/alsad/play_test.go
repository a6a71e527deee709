package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/iodev"
)

// fakePlayback plays up to rate frames every time its level is read once started.
type fakePlayback struct {
	format alsad.Format
	size   uint32
	minCb  uint32
	rate   uint32

	queued  uint32
	area    []byte
	written []byte

	started  int
	severe   int
	resets   int
	noStream int
	freeRun  iodev.FreeRunState

	// The level read number underrunAt finds the buffer empty.
	calls      int
	underrunAt int
	underruns  uint64
}

func newFakePlayback() *fakePlayback {
	f := &fakePlayback{
		format: alsad.Format{Sample: alsad.FormatS16LE, Rate: 48000, Channels: 2},
		size:   64,
		minCb:  16,
		rate:   32,
	}
	f.area = make([]byte, int(f.size)*int(f.format.FrameBytes()))

	return f
}

func (f *fakePlayback) tick() {
	if f.started > 0 {
		f.queued -= min(f.queued, f.rate)
	}
}

func (f *fakePlayback) Format() alsad.Format        { return f.format }
func (f *fakePlayback) BufferSize() uint32          { return f.size }
func (f *fakePlayback) MinCbLevel() uint32          { return f.minCb }
func (f *fakePlayback) FreeRun() iodev.FreeRunState { return f.freeRun }
func (f *fakePlayback) NumUnderruns() uint64        { return f.underruns }

func (f *fakePlayback) Start() error {
	f.started++

	return nil
}

func (f *fakePlayback) OutputUnderrun() error {
	f.resets++
	if f.started > 0 {
		f.queued = f.size
	}

	return nil
}

func (f *fakePlayback) FramesQueued() (uint32, time.Time, error) {
	f.calls++

	if f.severe > 0 {
		f.severe--

		return 0, time.Time{}, iodev.ErrSevereUnderrun
	}

	f.tick()

	if f.calls == f.underrunAt {
		f.queued = 0
		f.underruns++
	}

	return f.queued, time.Unix(0, int64(f.calls)), nil
}

func (f *fakePlayback) GetBuffer(frames uint32) ([]byte, uint32, error) {
	n := min(frames, f.size-f.queued)

	return f.area[:int(n)*int(f.format.FrameBytes())], n, nil
}

func (f *fakePlayback) PutBuffer(frames uint32) error {
	f.written = append(f.written, f.area[:int(frames)*int(f.format.FrameBytes())]...)
	f.queued += frames

	return nil
}

func (f *fakePlayback) NoStream(enable bool) error {
	f.noStream++
	f.tick()

	if f.queued == 0 {
		f.freeRun = iodev.FreeRunActive
	} else {
		f.freeRun = iodev.FreeRunDraining
	}

	return nil
}

type fakeReader struct {
	data []byte
}

func (r *fakeReader) ReadFrames(dst []byte, f alsad.Format) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}

	n := copy(dst, r.data)
	r.data = r.data[n:]

	return n / int(f.FrameBytes()), nil
}

func samples(frames int) []byte {
	b := make([]byte, frames*4)
	for i := range b {
		b[i] = byte(i)
	}

	return b
}

func TestPumpCopiesEverything(t *testing.T) {
	d := newFakePlayback()
	data := samples(200)

	require.NoError(t, pump(context.Background(), d, &fakeReader{data: data}))

	assert.Equal(t, data, d.written)
	assert.Equal(t, 1, d.started)
	assert.Zero(t, d.resets)
	assert.LessOrEqual(t, d.queued, d.size)
}

func TestPumpRecoversFromUnderrun(t *testing.T) {
	d := newFakePlayback()
	d.underrunAt = 3
	data := samples(200)

	require.NoError(t, pump(context.Background(), d, &fakeReader{data: data}))

	assert.Equal(t, 1, d.resets)
	assert.Equal(t, 1, d.started)
	assert.Equal(t, data, d.written)
}

func TestPumpUnderrunBeforeStart(t *testing.T) {
	d := newFakePlayback()
	d.underrunAt = 1
	data := samples(50)

	require.NoError(t, pump(context.Background(), d, &fakeReader{data: data}))

	assert.Zero(t, d.resets)
	assert.Equal(t, data, d.written)
}

func TestPumpRecoversFromSevereUnderrun(t *testing.T) {
	d := newFakePlayback()
	d.severe = 1
	data := samples(100)

	require.NoError(t, pump(context.Background(), d, &fakeReader{data: data}))

	assert.Equal(t, 1, d.resets)
	assert.Equal(t, data, d.written)
}

func TestPumpEmptySource(t *testing.T) {
	d := newFakePlayback()

	require.NoError(t, pump(context.Background(), d, &fakeReader{}))

	assert.Zero(t, d.started)
	assert.Empty(t, d.written)
}

func TestPumpCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pump(ctx, newFakePlayback(), &fakeReader{data: samples(10)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrainUntilFreeRun(t *testing.T) {
	d := newFakePlayback()
	require.NoError(t, pump(context.Background(), d, &fakeReader{data: samples(100)}))

	require.NoError(t, drain(context.Background(), d))

	assert.Equal(t, iodev.FreeRunActive, d.FreeRun())
	assert.Zero(t, d.queued)
	assert.GreaterOrEqual(t, d.noStream, 1)
}

func TestPeriod(t *testing.T) {
	d := newFakePlayback()
	d.minCb = 480

	assert.Equal(t, 10*time.Millisecond, period(d))

	d.format.Rate = 0
	assert.Equal(t, 10*time.Millisecond, period(d))
}
