// Package volume maps volume and gain indices (0-100) to attenuation in 1/100 dB.
package volume

import (
	"fmt"
	"math"
)

// MaxIndex is the highest volume index.
const MaxIndex = 100

// Curve converts a volume index to dB, in 1/100 dB units.
type Curve interface {
	DB(index int64) int64
}

// SimpleStep attenuates by Step for every index below MaxIndex.
type SimpleStep struct {
	MaxVolume int64
	Step      int64
}

// DB returns MaxVolume - (100 - index) * Step.
func (s SimpleStep) DB(index int64) int64 {
	return s.MaxVolume - (MaxIndex-Clamp(index))*s.Step
}

// Explicit holds one dB value for each index.
type Explicit struct {
	DBAt [MaxIndex + 1]int64
}

// NewExplicit builds an Explicit curve from exactly 101 values.
func NewExplicit(values []int64) (*Explicit, error) {
	if len(values) != MaxIndex+1 {
		return nil, fmt.Errorf("explicit curve needs %d values, got %d", MaxIndex+1, len(values))
	}

	e := &Explicit{}
	copy(e.DBAt[:], values)

	return e, nil
}

// DB returns the stored value for index.
func (e *Explicit) DB(index int64) int64 {
	return e.DBAt[Clamp(index)]
}

// Default is used by nodes and devices without a configured curve.
var Default Curve = SimpleStep{MaxVolume: 0, Step: 50}

// Clamp limits index to [0, MaxIndex].
func Clamp(index int64) int64 {
	return min(max(index, 0), MaxIndex)
}

// Scalers returns the linear software gain for every index of curve.
func Scalers(curve Curve) []float32 {
	if curve == nil {
		curve = Default
	}

	out := make([]float32, MaxIndex+1)
	for i := range out {
		out[i] = float32(math.Pow(10, float64(curve.DB(int64(i)))/2000))
	}

	return out
}
