package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbegin/metrosynth-go"
	"github.com/cbegin/metrosynth-go/internal/metronome"
)

var (
	metroSeconds float64
	metroMelody  string
)

var metroCmd = &cobra.Command{
	Use:   "metro",
	Short: "Run the metronome scene headless",
	Long: `Run the metronome scene through the audio backend: a snare every
intervals.snare seconds and a kick every intervals.kick seconds, plus the
configured melody looped underneath. Frames are driven at frame_rate.`,
	RunE: runMetro,
}

func init() {
	metroCmd.Flags().Float64Var(&metroSeconds, "seconds", 0, "stop after N seconds (0 = until interrupted)")
	metroCmd.Flags().StringVar(&metroMelody, "melody", "", "notation looped under the metronome (overrides config)")
}

func runMetro(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if metroMelody != "" {
		cfg.Melody = metroMelody
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	eng, err := metrosynth.NewEngine(metrosynth.WithConfig(cfg), metrosynth.WithLogger(logger))
	if err != nil {
		return err
	}
	defer eng.Stop()

	sc, err := eng.Scene()
	if err != nil {
		return err
	}
	if err := eng.Start(); err != nil {
		return err
	}
	d := metronome.NewDriver(sc, cfg.FrameRate)
	if err := sc.Err(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if metroSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(metroSeconds*float64(time.Second)))
		defer cancel()
	}
	logger.Info("metronome running", "snare_every", cfg.Intervals.Snare, "kick_every", cfg.Intervals.Kick)
	err = d.Run(ctx, time.Duration(d.Ideal()*float64(time.Second)))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
