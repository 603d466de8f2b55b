package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/metrosynth-go/internal/config"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

var (
	// Global flags
	configPath string
	backend    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "metrosynth",
	Short: "Procedural synth and metronome",
	Long: `metrosynth - procedural percussion and melodic voices.

Voices: kick, snare, pad, pulse. Melodies use the note notation
"<tempo> <note><octave><length> ...", for example "180 C31 E3h G31".
Length codes: 2, 1, h, q, e, x (two beats down to a sixteenth of one).

Examples:
  metrosynth compile "120 A4q C5q E5h"
  metrosynth render --voice kick --out kick.wav
  metrosynth render --notation "120 A4q C5q E5h" --out melody.wav
  metrosynth play --voice pulse
  metrosynth metro --seconds 8 --backend oto`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "audio backend: ebiten|oto|none (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(metroCmd)
}

// loadConfig reads --config, or the defaults when it is not set.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return config.Config{}, err
		}
	}
	if backend != "" {
		cfg.Backend = backend
	}
	return cfg, nil
}

// newLogger writes text logs to stderr at the configured level, or debug
// with --verbose.
func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// triggerKind parses --voice. Note voices only come from --notation.
func triggerKind(name string) (voice.Kind, error) {
	kind, err := voice.ParseKind(name)
	if err != nil {
		return 0, err
	}
	if kind == voice.KindNote {
		return 0, errors.New("--voice note needs a pitch and length, use --notation instead")
	}
	return kind, nil
}
