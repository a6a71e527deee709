// Package source decodes WAV and MP3 files into interleaved PCM frames.
package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"

	"github.com/gen2brain/alsad"
)

var (
	// ErrInvalidFile is returned for files that are neither WAV nor MP3.
	ErrInvalidFile = errors.New("not a WAV or MP3 file")
	// ErrUnsupported is returned for sample encodings that cannot be converted.
	ErrUnsupported = errors.New("unsupported sample encoding")
)

// Source is an open audio file.
type Source struct {
	closer io.Closer
	dec    Decoder
	buf    *audio.IntBuffer
	eof    bool
}

// Open opens a WAV or MP3 file. The container is chosen by extension, else by content.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	s, err := newSource(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	s.closer = f

	return s, nil
}

// New decodes r, sniffing the container from its first bytes.
func New(r io.ReadSeeker) (*Source, error) {
	return newSource(r, "")
}

func newSource(r io.ReadSeeker, ext string) (*Source, error) {
	if ext == "" {
		var err error
		if ext, err = sniff(r); err != nil {
			return nil, err
		}
	}

	var dec Decoder
	var err error
	switch ext {
	case ".wav":
		dec, err = newWavDecoder(r)
	case ".mp3":
		dec, err = newMp3Decoder(r)
	default:
		return nil, ErrInvalidFile
	}
	if err != nil {
		return nil, err
	}

	if dec.IsFloat() {
		return nil, fmt.Errorf("float samples: %w", ErrUnsupported)
	}
	if d := dec.BitDepth(); d == 0 || d > 32 {
		return nil, fmt.Errorf("%d-bit samples: %w", d, ErrUnsupported)
	}
	if dec.NumChans() == 0 || dec.SampleRate() == 0 {
		return nil, ErrInvalidFile
	}

	return &Source{dec: dec}, nil
}

func sniff(r io.ReadSeeker) (string, error) {
	head := make([]byte, 4)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	head = head[:n]

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	switch {
	case bytes.HasPrefix(head, []byte("RIFF")):
		return ".wav", nil
	case bytes.HasPrefix(head, []byte("ID3")):
		return ".mp3", nil
	case len(head) >= 2 && head[0] == 0xff && head[1]&0xe0 == 0xe0:
		return ".mp3", nil
	}

	return "", ErrInvalidFile
}

// Format returns the format the file is best played at. Samples wider than 16 bits play as S32LE.
func (s *Source) Format() alsad.Format {
	sample := alsad.FormatS16LE
	if s.dec.BitDepth() > 16 {
		sample = alsad.FormatS32LE
	}

	return alsad.Format{
		Sample:   sample,
		Rate:     s.dec.SampleRate(),
		Channels: uint32(s.dec.NumChans()),
	}
}

// Duration returns the play time of the file.
func (s *Source) Duration() (time.Duration, error) {
	return s.dec.Duration()
}

// ReadFrames fills dst with whole frames in format f and returns the number of frames written.
// It returns io.EOF once the file is exhausted.
func (s *Source) ReadFrames(dst []byte, f alsad.Format) (int, error) {
	if f.Channels != uint32(s.dec.NumChans()) {
		return 0, fmt.Errorf("device has %d channels, file has %d", f.Channels, s.dec.NumChans())
	}

	sampleBytes := int(f.Sample.Bytes())
	if sampleBytes == 0 {
		return 0, fmt.Errorf("sample format %d: %w", f.Sample, ErrUnsupported)
	}

	if s.eof {
		return 0, io.EOF
	}

	frames := len(dst) / int(f.FrameBytes())
	samples := frames * int(f.Channels)
	if samples == 0 {
		return 0, nil
	}

	if s.buf == nil || len(s.buf.Data) < samples {
		s.buf = &audio.IntBuffer{
			Format: &audio.Format{NumChannels: int(f.Channels), SampleRate: int(s.dec.SampleRate())},
			Data:   make([]int, samples),
		}
	}
	buf := &audio.IntBuffer{Format: s.buf.Format, Data: s.buf.Data[:samples]}

	n, err := s.dec.PCMBuffer(buf)
	if errors.Is(err, io.EOF) || (err == nil && n == 0) {
		s.eof = true
		err = nil
	}
	if err != nil {
		return 0, err
	}

	// A trailing partial frame is dropped.
	n -= n % int(f.Channels)
	depth := int(s.dec.BitDepth())

	for i, v := range buf.Data[:n] {
		putSample(dst[i*sampleBytes:], f.Sample, v, depth)
	}

	if n == 0 && s.eof {
		return 0, io.EOF
	}

	return n / int(f.Channels), nil
}

// putSample stores an integer sample of the given bit depth in format sf.
func putSample(b []byte, sf alsad.SampleFormat, v, depth int) {
	switch sf {
	case alsad.FormatS16LE:
		binary.LittleEndian.PutUint16(b, uint16(int16(scale(v, depth, 16))))
	case alsad.FormatS24_3LE:
		x := uint32(int32(scale(v, depth, 24)))
		b[0], b[1], b[2] = byte(x), byte(x>>8), byte(x>>16)
	case alsad.FormatS24LE:
		binary.LittleEndian.PutUint32(b, uint32(int32(scale(v, depth, 24))))
	case alsad.FormatS32LE:
		binary.LittleEndian.PutUint32(b, uint32(int32(scale(v, depth, 32))))
	case alsad.FormatFloatLE:
		f := float32(v) / float32(int64(1)<<(depth-1))
		binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	}
}

// scale moves a sample between bit depths, clamping to the target range.
func scale(v, from, to int) int64 {
	x := int64(v)
	if to > from {
		x <<= to - from
	} else {
		x >>= from - to
	}

	hi := int64(1)<<(to-1) - 1
	lo := -hi - 1

	return max(lo, min(hi, x))
}

// Close closes the underlying file.
func (s *Source) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}

	return s.closer.Close()
}
