package voice

import (
	"fmt"

	"github.com/cbegin/metrosynth-go/internal/envelope"
	"github.com/cbegin/metrosynth-go/internal/graph"
	"github.com/cbegin/metrosynth-go/internal/notation"
)

// NoteConfig plays one compiled note. Shape fractions scale with the note
// duration; the decay settles on Sustain and holds there until release.
type NoteConfig struct {
	Note       notation.Note  `yaml:"-"`
	Volume     float64        `yaml:"volume"`
	Sustain    float64        `yaml:"sustain"`
	Shape      envelope.Shape `yaml:"shape"`
	FilterBase float64        `yaml:"filter_base"` // low-pass cutoff at the note edges
	FilterPeak float64        `yaml:"filter_peak"` // cutoff at the middle of the note
}

func DefaultNoteShape() envelope.Shape {
	return envelope.Shape{Attack: 0.02, Decay: 0.3, Sustain: 0.48, Release: 0.2}
}

func DefaultNoteConfig(n notation.Note) NoteConfig {
	return NoteConfig{
		Note:       n,
		Volume:     0.3,
		Sustain:    0.15,
		Shape:      DefaultNoteShape(),
		FilterBase: 12000,
		FilterPeak: 18000,
	}
}

func (c NoteConfig) Validate() error {
	sh := c.Shape
	switch {
	case c.Note.Frequency <= 0:
		return fmt.Errorf("%w: note frequency must be positive", ErrInvalidConfig)
	case c.Note.Duration <= 0:
		return fmt.Errorf("%w: note duration must be positive", ErrInvalidConfig)
	case c.Volume < 0 || c.Sustain < 0:
		return fmt.Errorf("%w: note levels must not be negative", ErrInvalidConfig)
	case sh.Attack < 0 || sh.Decay < 0 || sh.Sustain < 0 || sh.Release < 0:
		return fmt.Errorf("%w: note shape fractions must not be negative", ErrInvalidConfig)
	case c.FilterBase <= 0 || c.FilterPeak <= 0:
		return fmt.Errorf("%w: note filter frequencies must be positive", ErrInvalidConfig)
	}
	return nil
}

// Note is a single sawtooth note with a filter swell. Create one per note
// of a sequence.
type Note struct {
	base
	cfg NoteConfig
}

func NewNote(ctx *graph.Context, cfg NoteConfig, opts ...Option) (*Note, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Note{cfg: cfg}
	if err := n.init(ctx, KindNote, opts); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Note) Config() NoteConfig { return n.cfg }

func (n *Note) Trigger(at float64) (*Voice, error) {
	cfg := n.cfg
	dur := cfg.Note.Duration
	b := newBuilder(n.ctx)
	osc := b.oscillator(graph.Sawtooth, cfg.Note.Frequency)
	lp := b.filter(graph.Lowpass, cfg.FilterBase)
	env := b.gain(0)
	out := b.analyser(n.opts.analyserSize)
	if b.err != nil {
		return b.fail(n.kind, at)
	}
	b.connect(osc, lp)
	b.connect(lp, env)
	b.connect(env, out)

	sweep, err := envelope.Segments(at, cfg.FilterBase, envelope.Linear, []envelope.Segment{
		{Duration: dur / 2, Target: cfg.FilterPeak},
		{Duration: dur / 2, Target: cfg.FilterBase},
	})
	b.automate(lp.Frequency, sweep, err)
	adsr, err := envelope.Schedule(envelope.Request{
		At:       at,
		Duration: dur,
		Shape:    cfg.Shape,
		Mode:     envelope.SustainHold,
		Curve:    envelope.Linear,
		Peak:     cfg.Volume,
		Floor:    cfg.Sustain,
	})
	b.automate(env.Gain, adsr, err)

	stop := at + dur
	v, err := b.finish(n.kind, env, out, at, stop, stop)
	if err != nil {
		return nil, err
	}
	n.record(v)
	return v, nil
}
