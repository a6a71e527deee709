// Package cardconfig loads per-card volume curves.
package cardconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/gen2brain/alsad/volume"
)

// CurveSpec is one curve as written in the file.
type CurveSpec struct {
	Type       string  `toml:"type"`
	MaxVolume  int64   `toml:"max_volume"`
	VolumeStep int64   `toml:"volume_step"`
	DBAt       []int64 `toml:"db_at"`
}

// Config holds the curves of one card, keyed by control or jack name.
type Config struct {
	curves map[string]volume.Curve
}

// Load reads <dir>/<cardName>.toml. A missing file returns (nil, nil).
func Load(dir, cardName string) (*Config, error) {
	if dir == "" {
		return nil, nil
	}

	path := filepath.Join(dir, cardName+".toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read card config %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse card config %s: %w", path, err)
	}

	return c, nil
}

// Parse decodes a TOML document with one [curves.<name>] table per curve.
func Parse(data []byte) (*Config, error) {
	var doc struct {
		Curves map[string]CurveSpec `toml:"curves"`
	}

	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	c := &Config{curves: make(map[string]volume.Curve, len(doc.Curves))}

	for name, def := range doc.Curves {
		curve, err := def.build()
		if err != nil {
			return nil, fmt.Errorf("curve %q: %w", name, err)
		}
		c.curves[name] = curve
	}

	return c, nil
}

func (s CurveSpec) build() (volume.Curve, error) {
	switch s.Type {
	case "simple_step":
		if s.VolumeStep <= 0 {
			return nil, fmt.Errorf("volume_step must be positive")
		}

		return volume.SimpleStep{MaxVolume: s.MaxVolume, Step: s.VolumeStep}, nil
	case "explicit":
		return volume.NewExplicit(s.DBAt)
	default:
		return nil, fmt.Errorf("unknown curve type %q", s.Type)
	}
}

// CurveForControl returns the curve configured for name, or nil.
func (c *Config) CurveForControl(name string) volume.Curve {
	if c == nil || name == "" {
		return nil
	}

	return c.curves[name]
}
