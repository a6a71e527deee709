// Package system holds the process-wide volume, mute and capture gain every device follows.
package system

import (
	"sync"

	"github.com/gen2brain/alsad/volume"
)

// State is safe for concurrent use. Devices read it on the main loop; the
// command line and metrics may read it from elsewhere.
type State struct {
	mu sync.RWMutex

	volume      int64
	mute        bool
	captureGain int64
	captureMute bool

	minDB, maxDB     int64
	minGain, maxGain int64
}

// New returns a state at full volume, unmuted, with 0 dB capture gain.
func New() *State {
	return &State{volume: volume.MaxIndex}
}

// Volume returns the system volume index, 0 to 100.
func (s *State) Volume() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.volume
}

// SetVolume sets the system volume index, clamped to 0..100.
func (s *State) SetVolume(v int64) {
	s.mu.Lock()
	s.volume = volume.Clamp(v)
	s.mu.Unlock()
}

// Mute reports whether output is muted.
func (s *State) Mute() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.mute
}

// SetMute mutes or unmutes output.
func (s *State) SetMute(muted bool) {
	s.mu.Lock()
	s.mute = muted
	s.mu.Unlock()
}

// CaptureGain returns the system capture gain in 1/100 dB.
func (s *State) CaptureGain() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.captureGain
}

// SetCaptureGain sets the capture gain, clamped to the limits of the active input once known.
func (s *State) SetCaptureGain(gain int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.minGain < s.maxGain {
		gain = min(max(gain, s.minGain), s.maxGain)
	}
	s.captureGain = gain
}

// CaptureMute reports whether capture is muted.
func (s *State) CaptureMute() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.captureMute
}

// SetCaptureMute mutes or unmutes capture.
func (s *State) SetCaptureMute(muted bool) {
	s.mu.Lock()
	s.captureMute = muted
	s.mu.Unlock()
}

// SetVolumeLimits records the dB range of the active output.
func (s *State) SetVolumeLimits(minDB, maxDB int64) {
	s.mu.Lock()
	s.minDB, s.maxDB = minDB, maxDB
	s.mu.Unlock()
}

// VolumeLimits returns the dB range of the active output.
func (s *State) VolumeLimits() (int64, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.minDB, s.maxDB
}

// SetCaptureGainLimits records the gain range of the active input.
func (s *State) SetCaptureGainLimits(minGain, maxGain int64) {
	s.mu.Lock()
	s.minGain, s.maxGain = minGain, maxGain
	s.mu.Unlock()
}

// CaptureGainLimits returns the gain range of the active input.
func (s *State) CaptureGainLimits() (int64, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.minGain, s.maxGain
}
