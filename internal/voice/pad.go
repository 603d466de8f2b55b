package voice

import (
	"fmt"

	"github.com/cbegin/metrosynth-go/internal/envelope"
	"github.com/cbegin/metrosynth-go/internal/graph"
)

type PadConfig struct {
	BaseFrequency float64            `yaml:"base_frequency"` // partial k sounds at k*BaseFrequency
	Partials      int                `yaml:"partials"`
	Level         float64            `yaml:"level"` // scales every stage target
	Stages        []envelope.Segment `yaml:"stages"`
}

// DefaultPadConfig is a twelve-partial stack on 440 Hz swelling to full
// level in 0.5 s and dying away over the next 2.5 s. Level keeps the summed
// partials inside full scale.
func DefaultPadConfig() PadConfig {
	return PadConfig{
		BaseFrequency: 440,
		Partials:      12,
		Level:         1.0 / 12,
		Stages: []envelope.Segment{
			{Duration: 0.5, Target: 1},
			{Duration: 1, Target: 0.5},
			{Duration: 0.5, Target: 0.2},
			{Duration: 1, Target: 0.01},
		},
	}
}

func (c PadConfig) Validate() error {
	switch {
	case c.BaseFrequency <= 0:
		return fmt.Errorf("%w: pad base frequency must be positive", ErrInvalidConfig)
	case c.Partials < 1 || c.Partials > 64:
		return fmt.Errorf("%w: pad partials must be in [1, 64], got %d", ErrInvalidConfig, c.Partials)
	case c.Level <= 0:
		return fmt.Errorf("%w: pad level must be positive", ErrInvalidConfig)
	case len(c.Stages) == 0:
		return fmt.Errorf("%w: pad needs at least one envelope stage", ErrInvalidConfig)
	}
	var total float64
	for i, st := range c.Stages {
		if st.Duration < 0 {
			return fmt.Errorf("%w: pad stage %d has negative duration", ErrInvalidConfig, i)
		}
		total += st.Duration
	}
	if total <= 0 {
		return fmt.Errorf("%w: pad envelope has zero length", ErrInvalidConfig)
	}
	return nil
}

// Length is the sum of the stage durations.
func (c PadConfig) Length() float64 {
	var total float64
	for _, st := range c.Stages {
		total += st.Duration
	}
	return total
}

// Pad is a harmonic stack of sawtooth oscillators under one linear
// multi-stage envelope.
type Pad struct {
	base
	cfg PadConfig
}

func NewPad(ctx *graph.Context, cfg PadConfig, opts ...Option) (*Pad, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Stages = append([]envelope.Segment(nil), cfg.Stages...)
	p := &Pad{cfg: cfg}
	if err := p.init(ctx, KindPad, opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pad) Config() PadConfig { return p.cfg }

func (p *Pad) Trigger(at float64) (*Voice, error) {
	cfg := p.cfg
	b := newBuilder(p.ctx)
	oscs := make([]*graph.OscillatorNode, cfg.Partials)
	for k := range oscs {
		oscs[k] = b.oscillator(graph.Sawtooth, float64(k+1)*cfg.BaseFrequency)
	}
	env := b.gain(0)
	out := b.analyser(p.opts.analyserSize)
	if b.err != nil {
		return b.fail(p.kind, at)
	}
	for _, o := range oscs {
		b.connect(o, env)
	}
	b.connect(env, out)

	stages := make([]envelope.Segment, len(cfg.Stages))
	for i, st := range cfg.Stages {
		stages[i] = envelope.Segment{Duration: st.Duration, Target: st.Target * cfg.Level}
	}
	pts, err := envelope.Segments(at, 0, envelope.Linear, stages)
	b.automate(env.Gain, pts, err)

	stop := at + cfg.Length()
	v, err := b.finish(p.kind, env, out, at, stop, stop)
	if err != nil {
		return nil, err
	}
	p.record(v)
	return v, nil
}
