// Package config loads the engine configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/cbegin/metrosynth-go/internal/audio"
	"github.com/cbegin/metrosynth-go/internal/effects"
	"github.com/cbegin/metrosynth-go/internal/notation"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

var ErrInvalidConfig = errors.New("invalid config")

// Intervals are the metronome periods in seconds.
type Intervals struct {
	Snare float64 `yaml:"snare"`
	Kick  float64 `yaml:"kick"`
}

// Voices overrides the instrument configs. Sections left out of the file
// keep their defaults; a section that is present must be complete.
type Voices struct {
	Kick  voice.KickConfig  `yaml:"kick"`
	Snare voice.SnareConfig `yaml:"snare"`
	Pad   voice.PadConfig   `yaml:"pad"`
	Pulse voice.PulseConfig `yaml:"pulse"`
	Note  voice.NoteConfig  `yaml:"note"`
}

type Config struct {
	SampleRate   int            `yaml:"sample_rate"`
	Backend      string         `yaml:"backend"`
	MasterGain   float64        `yaml:"master_gain"`
	MaxNodes     int            `yaml:"max_nodes"`
	AnalyserSize int            `yaml:"analyser_size"`
	FrameRate    float64        `yaml:"frame_rate"`
	LogLevel     string         `yaml:"log_level"`
	Intervals    Intervals      `yaml:"intervals"`
	Melody       string         `yaml:"melody"` // notation looped by the scene; empty for none
	Effects      []effects.Spec `yaml:"effects"`
	Voices       Voices         `yaml:"voices"`
}

func Default() Config {
	return Config{
		SampleRate:   48000,
		Backend:      string(audio.BackendEbiten),
		MasterGain:   0.8,
		MaxNodes:     4096,
		AnalyserSize: 256,
		FrameRate:    60,
		LogLevel:     "info",
		Intervals:    Intervals{Snare: 1, Kick: 0.5},
		Voices: Voices{
			Kick:  voice.DefaultKickConfig(),
			Snare: voice.DefaultSnareConfig(),
			Pad:   voice.DefaultPadConfig(),
			Pulse: voice.DefaultPulseConfig(),
			Note:  voice.DefaultNoteConfig(notation.Note{}),
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be positive", ErrInvalidConfig)
	case c.MasterGain < 0:
		return fmt.Errorf("%w: master_gain must not be negative", ErrInvalidConfig)
	case c.MaxNodes < 0:
		return fmt.Errorf("%w: max_nodes must not be negative", ErrInvalidConfig)
	case c.AnalyserSize < 32 || c.AnalyserSize > 32768 || c.AnalyserSize&(c.AnalyserSize-1) != 0:
		return fmt.Errorf("%w: analyser_size must be a power of two in [32, 32768]", ErrInvalidConfig)
	case c.FrameRate <= 0:
		return fmt.Errorf("%w: frame_rate must be positive", ErrInvalidConfig)
	case c.Intervals.Snare <= 0 || c.Intervals.Kick <= 0:
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	}
	if _, err := audio.ParseBackend(c.Backend); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Melody != "" {
		if _, err := notation.Compile(c.Melody); err != nil {
			return fmt.Errorf("%w: melody: %w", ErrInvalidConfig, err)
		}
	}
	if _, err := effects.Build(c.Effects, c.SampleRate); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	// the note template only gains pitch and length at compile time
	note := c.Voices.Note
	note.Note = notation.Note{Frequency: 440, Duration: 1}
	for name, v := range map[string]interface{ Validate() error }{
		"note":  note,
		"kick":  c.Voices.Kick,
		"snare": c.Voices.Snare,
		"pad":   c.Voices.Pad,
		"pulse": c.Voices.Pulse,
	} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: voices.%s: %w", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, s)
	}
}
