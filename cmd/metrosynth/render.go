package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/metrosynth-go"
)

var (
	renderVoice    string
	renderNotation string
	renderOut      string
	renderSeconds  float64
	renderRate     int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a voice, a melody or the metronome to a WAV file",
	Long: `Render offline to a 32-bit float stereo WAV file.

--voice renders one trigger of kick, snare, pad or pulse; "metro" renders
the metronome scene. --notation renders a melody with the note voice.
Without --seconds a voice or melody renders until it ends.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderVoice, "voice", "kick", "kick|snare|pad|pulse|metro")
	renderCmd.Flags().StringVarP(&renderNotation, "notation", "n", "", "notation to render instead of a voice")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "out.wav", "output WAV path")
	renderCmd.Flags().Float64Var(&renderSeconds, "seconds", 0, "length in seconds (0 = until the sound ends)")
	renderCmd.Flags().IntVar(&renderRate, "out-rate", 0, "resample the file to this rate (0 = the render rate)")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	opt := metrosynth.WithLogger(logger)

	var samples []float32
	switch {
	case renderNotation != "":
		samples, err = metrosynth.RenderNotation(cfg, renderNotation, renderSeconds, opt)
	case renderVoice == "metro":
		seconds := renderSeconds
		if seconds <= 0 {
			seconds = 4
		}
		samples, err = metrosynth.RenderScene(cfg, seconds, opt)
	default:
		kind, perr := triggerKind(renderVoice)
		if perr != nil {
			return perr
		}
		samples, err = metrosynth.RenderVoice(cfg, kind, renderSeconds, opt)
	}
	if err != nil {
		return err
	}

	rate := cfg.SampleRate
	if renderRate > 0 && renderRate != rate {
		if samples, err = metrosynth.Resample(samples, rate, renderRate, 2); err != nil {
			return err
		}
		rate = renderRate
	}
	wav := metrosynth.EncodeWAVFloat32LE(samples, rate, 2)
	if err := os.WriteFile(renderOut, wav, 0644); err != nil {
		return fmt.Errorf("write %s: %w", renderOut, err)
	}
	logger.Info("rendered", "out", renderOut, "rate", rate, "seconds", float64(len(samples)/2)/float64(rate))
	return nil
}
