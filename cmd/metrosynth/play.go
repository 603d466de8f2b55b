package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbegin/metrosynth-go"
)

var (
	playVoice    string
	playNotation string
	playLoops    int
	playVolume   float64
)

const drainTime = 0.2

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a voice or a melody",
	Long: `Play one trigger of a voice, or a melody with the note voice.

With --loops > 1 the melody loops and stops after that many passes;
--loops 0 loops until interrupted.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playVoice, "voice", "kick", "kick|snare|pad|pulse")
	playCmd.Flags().StringVarP(&playNotation, "notation", "n", "", "notation to play instead of a voice")
	playCmd.Flags().IntVar(&playLoops, "loops", 1, "melody passes (0 = forever)")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1, "master volume scalar")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
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
	eng.SetMasterVolume(playVolume)

	if playNotation == "" {
		kind, err := triggerKind(playVoice)
		if err != nil {
			return err
		}
		v, err := eng.PlayVoice(kind)
		if err != nil {
			return err
		}
		sleepUntil(eng, v.End)
		return nil
	}

	loop := playLoops != 1
	ch := eng.Watch()
	if err := eng.PlayNotation(playNotation, loop); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for event := range ch {
		switch event.Kind {
		case metrosynth.EventPlaybackEnded:
			fmt.Fprintln(out, "playback completed")
			return nil
		case metrosynth.EventLoopCompleted:
			fmt.Fprintf(out, "pass %d scheduled\n", event.Passes)
			if playLoops > 0 && event.Passes >= playLoops {
				if seq := eng.Sequence(); seq != nil {
					seq.Stop()
					sleepUntil(eng, seq.End())
				}
				return nil
			}
		}
	}
	return nil
}

// sleepUntil blocks until the render clock passes at, plus room for the
// output buffer to drain.
func sleepUntil(eng *metrosynth.Engine, at float64) {
	wait := at - eng.Context().CurrentTime() + drainTime
	if wait > 0 {
		time.Sleep(time.Duration(wait * float64(time.Second)))
	}
}
