// Package ucm loads per-card use-case configuration: declared device
// sections, per-device hints and the control sequences that enable them.
package ucm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/gen2brain/alsad"
	"github.com/gen2brain/alsad/internal/logging"
)

var logger = logging.GetLogger("ucm")

// ErrNoHotwordModel is returned when the requested hotword model is not configured.
var ErrNoHotwordModel = errors.New("hotword model not configured")

// Step writes one value to every channel of a named control element.
type Step struct {
	Control string `toml:"control"`
	Value   int64  `toml:"value"`
}

// Section declares one device of the card.
type Section struct {
	Name              string          `toml:"name"`
	Direction         alsad.Direction `toml:"direction"`
	Device            uint32          `toml:"device"`
	Jack              string          `toml:"jack"`
	JackType          string          `toml:"jack_type"`
	Mixer             string          `toml:"mixer"`
	Coupled           []string        `toml:"coupled"`
	DSP               string          `toml:"dsp"`
	DMAPeriodUs       uint32          `toml:"dma_period_us"`
	SampleRate        uint32          `toml:"sample_rate"`
	CaptureChannelMap []int8          `toml:"capture_channel_map"`
	MaxSoftwareGain   *int64          `toml:"max_software_gain"`
	DefaultNodeGain   *int64          `toml:"default_node_gain"`
	Enable            []Step          `toml:"enable"`
	Disable           []Step          `toml:"disable"`
	SwapEnable        []Step          `toml:"swap_enable"`
	SwapDisable       []Step          `toml:"swap_disable"`
}

// HotwordModel is a hotword language model the card's detector can load.
type HotwordModel struct {
	Name    string `toml:"name"`
	Enable  []Step `toml:"enable"`
	Disable []Step `toml:"disable"`
}

// Flags are the card-wide switches.
type Flags struct {
	AutoUnplugInputNode       bool `toml:"auto_unplug_input_node"`
	AutoUnplugOutputNode      bool `toml:"auto_unplug_output_node"`
	NoCreateDefaultInputNode  bool `toml:"no_create_default_input_node"`
	NoCreateDefaultOutputNode bool `toml:"no_create_default_output_node"`
	DisableSoftwareVolume     bool `toml:"disable_software_volume"`
	EnableHardwareTimestamp   bool `toml:"enable_hardware_timestamp"`
}

// Config is the use-case configuration of one card.
type Config struct {
	Flags           Flags               `toml:"flags"`
	PlaybackDSP     string              `toml:"playback_dsp"`
	CaptureDSP      string              `toml:"capture_dsp"`
	MinBufferFrames uint32              `toml:"min_buffer_level"`
	MainVolumeNames []string            `toml:"main_volume_names"`
	CoupledMixers   map[string][]string `toml:"coupled_mixers"`
	Sections        []Section           `toml:"section"`
	Models          []HotwordModel      `toml:"hotword_model"`

	name    string
	writer  ControlWriter
	enabled map[string]bool
	model   string
}

// ControlWriter sets control elements by name.
type ControlWriter interface {
	SetByName(name string, value int64) error
}

// Load reads <dir>/<cardName><suffix>.toml. A missing file returns (nil, nil).
func Load(dir, cardName, suffix string) (*Config, error) {
	name := cardName + suffix
	path := filepath.Join(dir, name+".toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read use-case config %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse use-case config %s: %w", path, err)
	}
	c.name = name

	logger.Info("Loaded use-case config", "card", cardName, "path", path, "sections", len(c.Sections))

	return c, nil
}

// Parse decodes a TOML document.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, err
	}

	for i, s := range c.Sections {
		if s.Name == "" {
			return nil, fmt.Errorf("section %d has no name", i)
		}
	}

	for i, m := range c.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("hotword model %d has no name", i)
		}
	}

	c.enabled = make(map[string]bool)

	return c, nil
}

// Name returns the configuration name, the card name plus any suffix.
func (c *Config) Name() string {
	if c == nil {
		return ""
	}

	return c.name
}

// SetWriter attaches the control writer used by enable sequences.
func (c *Config) SetWriter(w ControlWriter) {
	if c != nil {
		c.writer = w
	}
}

// FullySpecified reports whether the card declares its devices explicitly.
func (c *Config) FullySpecified() bool {
	return c != nil && len(c.Sections) > 0
}

func (c *Config) section(name string) *Section {
	if c == nil {
		return nil
	}

	for i := range c.Sections {
		if c.Sections[i].Name == name {
			return &c.Sections[i]
		}
	}

	return nil
}

// SetEnabled runs the enable or disable sequence of a section.
func (c *Config) SetEnabled(device string, enabled bool) error {
	s := c.section(device)
	if s == nil {
		return nil
	}

	if c.enabled == nil {
		c.enabled = make(map[string]bool)
	}

	if prev, ok := c.enabled[device]; ok && prev == enabled {
		return nil
	}

	steps := s.Disable
	if enabled {
		steps = s.Enable
	}

	if err := c.run(steps); err != nil {
		return fmt.Errorf("failed to set %s enabled=%t: %w", device, enabled, err)
	}
	c.enabled[device] = enabled

	return nil
}

// Enabled reports the last applied state of a section.
func (c *Config) Enabled(device string) bool {
	return c != nil && c.enabled[device]
}

// SwapModeExists reports whether any section declares a channel swap sequence.
func (c *Config) SwapModeExists() bool {
	if c == nil {
		return false
	}

	for _, s := range c.Sections {
		if len(s.SwapEnable) > 0 {
			return true
		}
	}

	return false
}

// SetSwapMode runs the swap sequence of a section.
func (c *Config) SetSwapMode(device string, on bool) error {
	s := c.section(device)
	if s == nil || len(s.SwapEnable) == 0 {
		return fmt.Errorf("no swap mode for %q", device)
	}

	steps := s.SwapDisable
	if on {
		steps = s.SwapEnable
	}

	return c.run(steps)
}

func (c *Config) run(steps []Step) error {
	if len(steps) == 0 {
		return nil
	}

	if c.writer == nil {
		return fmt.Errorf("no control writer attached")
	}

	for _, st := range steps {
		if err := c.writer.SetByName(st.Control, st.Value); err != nil {
			return err
		}
	}

	return nil
}

// DefaultDSPName returns the card-wide DSP name of a direction.
func (c *Config) DefaultDSPName(dir alsad.Direction) string {
	if c == nil {
		return ""
	}

	if dir == alsad.Input {
		return c.CaptureDSP
	}

	return c.PlaybackDSP
}

// DSPName returns the DSP name declared by a section.
func (c *Config) DSPName(device string) string {
	if s := c.section(device); s != nil {
		return s.DSP
	}

	return ""
}

// DMAPeriod returns the DMA period hint of a section in microseconds.
func (c *Config) DMAPeriod(device string) uint32 {
	if s := c.section(device); s != nil {
		return s.DMAPeriodUs
	}

	return 0
}

// MinBufferLevel returns the declared output minimum buffer level.
func (c *Config) MinBufferLevel() uint32 {
	if c == nil {
		return 0
	}

	return c.MinBufferFrames
}

// HardwareTimestamp reports whether hardware timestamps should be used.
func (c *Config) HardwareTimestamp() bool {
	return c != nil && c.Flags.EnableHardwareTimestamp
}

// SampleRate returns the rate a section is fixed to, or 0.
func (c *Config) SampleRate(device string) uint32 {
	if s := c.section(device); s != nil {
		return s.SampleRate
	}

	return 0
}

// CaptureChannelMap returns the capture channel layout declared by a section.
func (c *Config) CaptureChannelMap(device string) []int8 {
	if s := c.section(device); s != nil {
		return s.CaptureChannelMap
	}

	return nil
}

// HotwordModels returns the names of the configured hotword models.
func (c *Config) HotwordModels() []string {
	if c == nil {
		return nil
	}

	names := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		names = append(names, m.Name)
	}

	return names
}

// SetHotwordModel unloads the current hotword model and loads the named one.
func (c *Config) SetHotwordModel(name string) error {
	if c == nil {
		return ErrNoHotwordModel
	}

	idx := slices.IndexFunc(c.Models, func(m HotwordModel) bool { return m.Name == name })
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNoHotwordModel, name)
	}

	if c.model == name {
		return nil
	}

	if cur := slices.IndexFunc(c.Models, func(m HotwordModel) bool { return m.Name == c.model }); cur >= 0 {
		if err := c.run(c.Models[cur].Disable); err != nil {
			return fmt.Errorf("failed to unload hotword model %s: %w", c.model, err)
		}
	}
	c.model = ""

	if err := c.run(c.Models[idx].Enable); err != nil {
		return fmt.Errorf("failed to load hotword model %s: %w", name, err)
	}
	c.model = name

	return nil
}

// HotwordModel returns the loaded hotword model, or "".
func (c *Config) HotwordModel() string {
	if c == nil {
		return ""
	}

	return c.model
}

// MaxSoftwareGain returns the declared software gain ceiling of a section.
func (c *Config) MaxSoftwareGain(device string) (int64, bool) {
	if s := c.section(device); s != nil && s.MaxSoftwareGain != nil {
		return *s.MaxSoftwareGain, true
	}

	return 0, false
}

// DefaultNodeGain returns the declared initial capture gain of a section.
func (c *Config) DefaultNodeGain(device string) (int64, bool) {
	if s := c.section(device); s != nil && s.DefaultNodeGain != nil {
		return *s.DefaultNodeGain, true
	}

	return 0, false
}

// AutoUnplug reports whether auto-unplug is enabled for a direction.
func (c *Config) AutoUnplug(dir alsad.Direction) bool {
	if c == nil {
		return false
	}

	if dir == alsad.Input {
		return c.Flags.AutoUnplugInputNode
	}

	return c.Flags.AutoUnplugOutputNode
}

// NoDefaultNode reports whether default node synthesis is suppressed for a direction.
func (c *Config) NoDefaultNode(dir alsad.Direction) bool {
	if c == nil {
		return false
	}

	if dir == alsad.Input {
		return c.Flags.NoCreateDefaultInputNode
	}

	return c.Flags.NoCreateDefaultOutputNode
}

// DisableSoftwareVolume reports whether software volume is forbidden on this card.
func (c *Config) DisableSoftwareVolume() bool {
	return c != nil && c.Flags.DisableSoftwareVolume
}
