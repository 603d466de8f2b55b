// Package scene is the metronome demo: a snare on every beat, a kick on
// every half beat, an optional looping melody, and one waveform bar per
// instrument.
package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cbegin/metrosynth-go/internal/analysis"
	"github.com/cbegin/metrosynth-go/internal/graph"
	"github.com/cbegin/metrosynth-go/internal/metronome"
	"github.com/cbegin/metrosynth-go/internal/notation"
	"github.com/cbegin/metrosynth-go/internal/sequencer"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

// Palette indices used by Bars.
const (
	ColorBackground = 1
	ColorMelody     = 2
	ColorSnare      = 3
	ColorKick       = 6
)

var ErrInvalidConfig = errors.New("invalid scene config")

type Config struct {
	Context *graph.Context

	SnareEvery float64 // seconds
	KickEvery  float64 // seconds

	Kick  voice.KickConfig
	Snare voice.SnareConfig

	// Melody is looped for as long as the scene runs. Nil disables it.
	Melody []notation.Note
	Note   voice.NoteConfig

	AnalyserSize int
	Logger       *slog.Logger
}

func DefaultConfig(ctx *graph.Context) Config {
	return Config{
		Context:      ctx,
		SnareEvery:   1,
		KickEvery:    0.5,
		Kick:         voice.DefaultKickConfig(),
		Snare:        voice.DefaultSnareConfig(),
		Note:         voice.DefaultNoteConfig(notation.Note{}),
		AnalyserSize: 256,
	}
}

// Bar is one waveform to draw.
type Bar struct {
	Label  string
	Color  int
	Buffer analysis.Buffer
}

type track struct {
	label string
	color int
	tap   *analysis.Tap
}

// Scene implements metronome.Actor.
type Scene struct {
	cfg Config
	log *slog.Logger

	state  metronome.State
	kick   *voice.Kick
	snare  *voice.Snare
	melody *sequencer.Sequencer
	tracks []track
	err    error
}

var _ metronome.Actor = (*Scene)(nil)

func New(cfg Config) (*Scene, error) {
	if cfg.Context == nil {
		return nil, fmt.Errorf("%w: nil context", ErrInvalidConfig)
	}
	if cfg.SnareEvery <= 0 || cfg.KickEvery <= 0 {
		return nil, fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	}
	if err := cfg.Kick.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Snare.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scene{cfg: cfg, log: logger.With("component", "scene")}, nil
}

// Init (re)builds the instruments and restarts the clock. Voices already
// scheduled keep playing until they end.
func (s *Scene) Init() {
	s.state.Reset()
	s.err = nil
	if s.melody != nil {
		s.melody.Stop()
		s.melody = nil
	}

	opts := []voice.Option{voice.WithAnalyserSize(s.cfg.AnalyserSize)}
	kick, err := voice.NewKick(s.cfg.Context, s.cfg.Kick, opts...)
	if err != nil {
		s.fail(err)
		return
	}
	snare, err := voice.NewSnare(s.cfg.Context, s.cfg.Snare, opts...)
	if err != nil {
		s.fail(err)
		return
	}
	s.kick, s.snare = kick, snare
	s.tracks = []track{
		{label: "kick", color: ColorKick, tap: analysis.New(kick, analysis.ModeByte)},
		{label: "snare", color: ColorSnare, tap: analysis.New(snare, analysis.ModeByte)},
	}

	if len(s.cfg.Melody) == 0 {
		return
	}
	seq, err := sequencer.NewWithOptions(s.cfg.Context,
		sequencer.NoteVoices(s.cfg.Context, s.cfg.Note, opts...),
		s.cfg.Melody, sequencer.Options{Loop: true})
	if err != nil {
		s.fail(err)
		return
	}
	if err := seq.Start(s.cfg.Context.CurrentTime()); err != nil {
		s.log.Warn("melody dropped", "err", err)
		return
	}
	s.melody = seq
	s.tracks = append(s.tracks, track{label: "melody", color: ColorMelody, tap: analysis.New(seq, analysis.ModeByte)})
}

func (s *Scene) fail(err error) {
	s.err = err
	s.kick, s.snare = nil, nil
	s.tracks = nil
	s.log.Error("scene init failed", "err", err)
}

// Err reports why the last Init failed.
func (s *Scene) Err() error { return s.err }

// Update advances the metronome by dt seconds, triggers the instruments
// whose interval was crossed and refreshes the waveforms.
func (s *Scene) Update(dt, dt0 float64) {
	if s.kick == nil {
		return
	}
	s.state.Update(dt)
	now := s.cfg.Context.CurrentTime()

	if s.state.OnInterval(s.cfg.SnareEvery) {
		s.trigger(s.snare, now)
	}
	if s.state.OnInterval(s.cfg.KickEvery) {
		s.trigger(s.kick, now)
	}
	if s.melody != nil {
		if err := s.melody.Update(); err != nil {
			s.log.Warn("melody pass failed", "err", err)
		}
	}
	for _, t := range s.tracks {
		t.tap.Sample()
	}
}

func (s *Scene) trigger(src voice.SignalSource, at float64) {
	if _, err := src.Trigger(at); err != nil {
		s.log.Warn("voice dropped", "kind", src.Kind(), "err", err)
	}
}

// Elapsed returns the metronome time in seconds.
func (s *Scene) Elapsed() float64 { return s.state.Elapsed }

// Bars returns the current waveform of every instrument, kick first.
func (s *Scene) Bars() []Bar {
	bars := make([]Bar, len(s.tracks))
	for i, t := range s.tracks {
		bars[i] = Bar{Label: t.label, Color: t.color, Buffer: t.tap.Buffer()}
	}
	return bars
}
