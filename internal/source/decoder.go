package source

import (
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// Decoder yields integer PCM samples of one encoded stream.
type Decoder interface {
	// PCMBuffer reads interleaved samples into buf and returns the number of samples read.
	PCMBuffer(buf *audio.IntBuffer) (n int, err error)
	Duration() (time.Duration, error)
	NumChans() uint16
	SampleRate() uint32
	BitDepth() uint16
	IsFloat() bool
}

// wavAudioFormatFloat is the WAVE format tag of IEEE float samples.
const wavAudioFormatFloat = 3

type wavDecoder struct {
	*wav.Decoder
}

func newWavDecoder(r io.ReadSeeker) (Decoder, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}

	return &wavDecoder{Decoder: d}, nil
}

func (w *wavDecoder) SampleRate() uint32 { return w.Decoder.SampleRate }
func (w *wavDecoder) NumChans() uint16   { return w.Decoder.NumChans }
func (w *wavDecoder) BitDepth() uint16   { return uint16(w.Decoder.BitDepth) }
func (w *wavDecoder) IsFloat() bool      { return w.Decoder.WavAudioFormat == wavAudioFormatFloat }

// mp3Decoder always yields 16-bit stereo.
type mp3Decoder struct {
	decoder *mp3.Decoder
	length  int64
	scratch []byte
}

func newMp3Decoder(r io.Reader) (Decoder, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	return &mp3Decoder{decoder: d, length: d.Length()}, nil
}

func (m *mp3Decoder) PCMBuffer(buf *audio.IntBuffer) (int, error) {
	need := len(buf.Data) * 2
	if cap(m.scratch) < need {
		m.scratch = make([]byte, need)
	}
	b := m.scratch[:need]

	read, err := io.ReadFull(m.decoder, b)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}

	samples := read / 2
	for i := range samples {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(b[i*2:])))
	}

	if samples > 0 && errors.Is(err, io.EOF) {
		err = nil
	}

	return samples, err
}

func (m *mp3Decoder) Duration() (time.Duration, error) {
	if m.length < 0 {
		return 0, errors.New("stream length unknown")
	}

	frames := m.length / 4

	return time.Duration(frames) * time.Second / time.Duration(m.decoder.SampleRate()), nil
}

func (m *mp3Decoder) SampleRate() uint32 { return uint32(m.decoder.SampleRate()) }
func (m *mp3Decoder) NumChans() uint16   { return 2 }
func (m *mp3Decoder) BitDepth() uint16   { return 16 }
func (m *mp3Decoder) IsFloat() bool      { return false }
