package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/rmfctl/internal/chunks"
	"github.com/danmuck/rmfctl/internal/rmf"
)

type TraceMode string

const (
	TraceConsole TraceMode = "console"
	TraceLog     TraceMode = "log"
	TraceOff     TraceMode = "off"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Config is the resolved rmfctl configuration.
type Config struct {
	MinVersion    float32
	MaxVersion    float32
	Magic         string
	HeaderPolicy  rmf.HeaderPolicy
	Decoder       string
	Trace         TraceMode
	TraceRecord   string
	Color         ColorMode
	SummaryFormat string
	LogLevel      string
}

type fileConfig struct {
	MinVersion    float64 `toml:"min_version"`
	MaxVersion    float64 `toml:"max_version"`
	Magic         string  `toml:"magic"`
	HeaderPolicy  string  `toml:"header_policy"`
	Decoder       string  `toml:"decoder"`
	Trace         string  `toml:"trace"`
	TraceRecord   string  `toml:"trace_record"`
	Color         string  `toml:"color"`
	SummaryFormat string  `toml:"summary_format"`
	LogLevel      string  `toml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		MinVersion:    rmf.MinSupportedVersion,
		MaxVersion:    rmf.MaxSupportedVersion,
		Magic:         rmf.Magic,
		HeaderPolicy:  rmf.PolicyStrict,
		Decoder:       chunks.NameChunks,
		Trace:         TraceConsole,
		Color:         ColorAuto,
		SummaryFormat: FormatYAML,
	}
}

// LoadConfig overlays the keys present in the TOML file at path onto
// DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config parse failed (%s): unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("min_version") {
		cfg.MinVersion = float32(raw.MinVersion)
	}
	if meta.IsDefined("max_version") {
		cfg.MaxVersion = float32(raw.MaxVersion)
	}
	if meta.IsDefined("magic") {
		cfg.Magic = raw.Magic
	}
	if meta.IsDefined("header_policy") {
		p, err := rmf.ParseHeaderPolicy(raw.HeaderPolicy)
		if err != nil {
			return Config{}, fmt.Errorf("parse header_policy: %w", err)
		}
		cfg.HeaderPolicy = p
	}
	if meta.IsDefined("decoder") {
		cfg.Decoder = strings.TrimSpace(raw.Decoder)
	}
	if meta.IsDefined("trace") {
		cfg.Trace = TraceMode(strings.ToLower(strings.TrimSpace(raw.Trace)))
	}
	if meta.IsDefined("trace_record") {
		cfg.TraceRecord = strings.TrimSpace(raw.TraceRecord)
	}
	if meta.IsDefined("color") {
		cfg.Color = ColorMode(strings.ToLower(strings.TrimSpace(raw.Color)))
	}
	if meta.IsDefined("summary_format") {
		cfg.SummaryFormat = strings.ToLower(strings.TrimSpace(raw.SummaryFormat))
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.MinVersion > cfg.MaxVersion {
		return fmt.Errorf("config min_version %g exceeds max_version %g", cfg.MinVersion, cfg.MaxVersion)
	}
	if cfg.Magic == "" {
		return fmt.Errorf("config missing magic")
	}
	if strings.TrimSpace(cfg.Decoder) == "" {
		return fmt.Errorf("config missing decoder")
	}
	switch cfg.Trace {
	case TraceConsole, TraceLog, TraceOff:
	default:
		return fmt.Errorf("config trace must be console, log or off: %q", cfg.Trace)
	}
	switch cfg.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("config color must be auto, always or never: %q", cfg.Color)
	}
	switch cfg.SummaryFormat {
	case FormatYAML, FormatJSON:
	default:
		return fmt.Errorf("config summary_format must be yaml or json: %q", cfg.SummaryFormat)
	}
	return nil
}

// LoaderOptions converts the header settings to rmf.Options. Sink and logger
// are left for the caller.
func (c Config) LoaderOptions() rmf.Options {
	opts := rmf.DefaultOptions()
	opts.MinVersion = c.MinVersion
	opts.MaxVersion = c.MaxVersion
	opts.Magic = c.Magic
	opts.Policy = c.HeaderPolicy
	return opts
}
