// Package config loads daemon options from a TOML file, ALSAD_ environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gen2brain/alsad/internal/logging"
)

// EnvPrefix prefixes every environment variable named by an env tag.
const EnvPrefix = "ALSAD_"

// Options are the daemon settings.
type Options struct {
	Config string `help:"Config file path"`

	CardConfigDir string `toml:"cards.config_dir" env:"CARD_CONFIG_DIR" help:"Directory of per-card volume curves"`
	UcmDir        string `toml:"cards.ucm_dir" env:"UCM_DIR" help:"Directory of use-case configurations"`
	UcmSuffix     string `toml:"cards.ucm_suffix" env:"UCM_SUFFIX" help:"Suffix appended to card names when loading use-case configurations"`
	Blacklist     string `toml:"cards.blacklist" env:"BLACKLIST" help:"USB device blacklist file"`
	DevDir        string `toml:"cards.dev_dir" env:"DEV_DIR" help:"Directory of sound device nodes"`
	Hotplug       bool   `toml:"cards.hotplug" env:"HOTPLUG" help:"Watch for cards being added and removed"`

	PeriodFrames int `toml:"audio.period_frames" env:"PERIOD_FRAMES" help:"PCM period size in frames, 0 lets the device choose"`
	PeriodCount  int `toml:"audio.period_count" env:"PERIOD_COUNT" help:"PCM periods per buffer"`

	MetricsAddr string `toml:"metrics.addr" env:"METRICS_ADDR" help:"Prometheus listen address, empty disables"`

	LoggingLevel  string `toml:"logging.level" env:"LOGGING_LEVEL" help:"Log level (debug, info, warn, error)"`
	LoggingFormat string `toml:"logging.format" env:"LOGGING_FORMAT" help:"Log format (text, json)"`

	ReloadDebounce time.Duration `toml:"logging.reload_debounce" env:"RELOAD_DEBOUNCE" help:"Delay before a changed config file is reloaded"`
}

// Defaults returns the built-in options.
func Defaults() Options {
	return Options{
		Config:         "/etc/alsad/alsad.toml",
		CardConfigDir:  "/etc/alsad/cards",
		UcmDir:         "/etc/alsad/ucm",
		DevDir:         "/dev/snd",
		Hotplug:        true,
		PeriodCount:    4,
		MetricsAddr:    ":9469",
		LoggingLevel:   "info",
		LoggingFormat:  "text",
		ReloadDebounce: 1500 * time.Millisecond,
	}
}

// RegisterFlags adds one flag per field of opts, named after the field, with the current values as defaults.
func RegisterFlags(fs *pflag.FlagSet, opts *Options) {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	for i := range v.NumField() {
		f := t.Field(i)
		name := fieldNameToFlag(f.Name)
		help := f.Tag.Get("help")
		ptr := v.Field(i).Addr().Interface()

		switch p := ptr.(type) {
		case *string:
			fs.StringVar(p, name, *p, help)
		case *bool:
			fs.BoolVar(p, name, *p, help)
		case *int:
			fs.IntVar(p, name, *p, help)
		case *time.Duration:
			fs.DurationVar(p, name, *p, help)
		}
	}
}

// LoadConfig loads configuration with proper precedence: CLI args > env vars > config file.
// If cmd is provided, flags explicitly set via CLI will not be overwritten.
// A missing config file is not an error.
func LoadConfig(opts *Options, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				changed[f.Name] = true
			}
		})
	}

	if opts.Config != "" {
		data, err := os.ReadFile(opts.Config)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("failed to read config %s: %w", opts.Config, err)
		default:
			var doc map[string]any
			if err := toml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("failed to parse TOML config: %w", err)
			}

			for i := range v.NumField() {
				f := t.Field(i)
				if changed[fieldNameToFlag(f.Name)] {
					continue
				}

				if path := f.Tag.Get("toml"); path != "" {
					if value := getNestedValue(doc, path); value != nil {
						if err := setFieldValue(v.Field(i), value); err != nil {
							return fmt.Errorf("config key %s: %w", path, err)
						}
					}
				}
			}
		}
	}

	for i := range v.NumField() {
		f := t.Field(i)
		if changed[fieldNameToFlag(f.Name)] {
			continue
		}

		if key := f.Tag.Get("env"); key != "" {
			if value := os.Getenv(EnvPrefix + key); value != "" {
				if err := setFieldValueFromString(v.Field(i), value); err != nil {
					return fmt.Errorf("environment %s%s: %w", EnvPrefix, key, err)
				}
			}
		}
	}

	return nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Config" -> "config".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}

	return string(result)
}

// getNestedValue retrieves a value from a nested map using dot notation.
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data

	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}

		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}

	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setFieldValue sets a field from a decoded TOML value.
func setFieldValue(field reflect.Value, value any) error {
	if field.Type() == durationType {
		switch x := value.(type) {
		case string:
			return setFieldValueFromString(field, x)
		case int64:
			field.SetInt(x * int64(time.Millisecond))

			return nil
		}

		return fmt.Errorf("expected duration, got %T", value)
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)

			return nil
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)

			return nil
		}
	case reflect.Int:
		if i, ok := value.(int64); ok {
			field.SetInt(i)

			return nil
		}
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}

	return fmt.Errorf("expected %s, got %T", field.Kind(), value)
}

// setFieldValueFromString sets a field from an environment variable.
func setFieldValueFromString(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))

		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}

	return nil
}

// LoadLoggingConfig reads the [logging] table of a config file. Keys other
// than level, format and reload_debounce are per-module levels.
func LoadLoggingConfig(path string) (logging.Config, error) {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}

		return cfg, err
	}

	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg, err
	}

	for key, value := range raw.Logging {
		s, ok := value.(string)
		if !ok {
			continue
		}

		switch key {
		case "level":
			cfg.Level = s
		case "format":
			cfg.Format = s
		case "reload_debounce":
		default:
			cfg.Modules[key] = s
		}
	}

	return cfg, nil
}
