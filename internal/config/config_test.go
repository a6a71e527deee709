package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "alsad.toml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	return path
}

const sample = `
[cards]
config_dir = "/opt/cards"
ucm_dir = "/opt/ucm"
ucm_suffix = ".board"
hotplug = false

[audio]
period_frames = 256

[metrics]
addr = "127.0.0.1:9000"

[logging]
level = "debug"
reload_debounce = "200ms"
iodev = "warn"
`

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Config":         "config",
		"LoggingLevel":   "logging-level",
		"UcmDir":         "ucm-dir",
		"CardConfigDir":  "card-config-dir",
		"ReloadDebounce": "reload-debounce",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, fieldNameToFlag(in))
		})
	}
}

func TestLoadConfigFromTOML(t *testing.T) {
	opts := Defaults()
	opts.Config = writeConfig(t, sample)

	require.NoError(t, LoadConfig(&opts, nil))

	assert.Equal(t, "/opt/cards", opts.CardConfigDir)
	assert.Equal(t, "/opt/ucm", opts.UcmDir)
	assert.Equal(t, ".board", opts.UcmSuffix)
	assert.False(t, opts.Hotplug)
	assert.Equal(t, 256, opts.PeriodFrames)
	assert.Equal(t, 4, opts.PeriodCount, "unset keys keep their defaults")
	assert.Equal(t, "127.0.0.1:9000", opts.MetricsAddr)
	assert.Equal(t, "debug", opts.LoggingLevel)
	assert.Equal(t, 200*time.Millisecond, opts.ReloadDebounce)
	assert.Equal(t, "/dev/snd", opts.DevDir)
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := Defaults()
	opts.Config = filepath.Join(t.TempDir(), "absent.toml")

	require.NoError(t, LoadConfig(&opts, nil))
	assert.Equal(t, Defaults().UcmDir, opts.UcmDir)
}

func TestLoadConfigErrors(t *testing.T) {
	opts := Defaults()
	opts.Config = writeConfig(t, "[cards\n")
	assert.Error(t, LoadConfig(&opts, nil))

	opts = Defaults()
	opts.Config = writeConfig(t, "[audio]\nperiod_frames = \"many\"\n")
	assert.Error(t, LoadConfig(&opts, nil))

	opts = Defaults()
	opts.Config = ""
	t.Setenv("ALSAD_PERIOD_FRAMES", "lots")
	assert.Error(t, LoadConfig(&opts, nil))
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ALSAD_UCM_DIR", "/env/ucm")
	t.Setenv("ALSAD_HOTPLUG", "true")
	t.Setenv("ALSAD_RELOAD_DEBOUNCE", "3s")

	opts := Defaults()
	opts.Config = writeConfig(t, sample)
	require.NoError(t, LoadConfig(&opts, nil))

	assert.Equal(t, "/env/ucm", opts.UcmDir)
	assert.True(t, opts.Hotplug)
	assert.Equal(t, 3*time.Second, opts.ReloadDebounce)
	assert.Equal(t, "/opt/cards", opts.CardConfigDir)
}

func TestFlagsOverrideEverything(t *testing.T) {
	t.Setenv("ALSAD_UCM_DIR", "/env/ucm")

	opts := Defaults()
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd.Flags(), &opts)

	path := writeConfig(t, sample)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "--ucm-dir", "/flag/ucm", "--period-frames", "512"}))
	require.NoError(t, LoadConfig(&opts, cmd))

	assert.Equal(t, path, opts.Config)
	assert.Equal(t, "/flag/ucm", opts.UcmDir)
	assert.Equal(t, 512, opts.PeriodFrames)
	assert.Equal(t, "/opt/cards", opts.CardConfigDir)
}

func TestRegisterFlagsDefaults(t *testing.T) {
	opts := Defaults()
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd.Flags(), &opts)

	for _, name := range []string{"config", "card-config-dir", "ucm-dir", "ucm-suffix", "blacklist", "dev-dir", "hotplug", "period-frames", "period-count", "metrics-addr", "logging-level", "logging-format", "reload-debounce"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	assert.Equal(t, "/dev/snd", cmd.Flags().Lookup("dev-dir").DefValue)
}

func TestLoadLoggingConfig(t *testing.T) {
	cfg, err := LoadLoggingConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, map[string]string{"iodev": "warn"}, cfg.Modules)

	cfg, err = LoadLoggingConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Level)

	_, err = LoadLoggingConfig(writeConfig(t, "[logging\n"))
	assert.Error(t, err)
}
