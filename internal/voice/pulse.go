package voice

import (
	"fmt"
	"math"

	"github.com/cbegin/metrosynth-go/internal/envelope"
	"github.com/cbegin/metrosynth-go/internal/graph"
)

// PulseConfig drives the pulse-width voice. Attack, Decay and Release are
// seconds; Sustain is a fraction of Volume.
type PulseConfig struct {
	Cutoff                float64 `yaml:"cutoff"`
	Volume                float64 `yaml:"volume"`
	PulseWidth            float64 `yaml:"pulse_width"` // bias added before the step shaper, -1..1
	Attack                float64 `yaml:"attack"`
	Decay                 float64 `yaml:"decay"`
	Sustain               float64 `yaml:"sustain"`
	Release               float64 `yaml:"release"`
	Note                  float64 `yaml:"note"`                   // Hz
	SemitoneOffset        float64 `yaml:"semitone_offset"`        // second oscillator, relative to Note
	FilterEnvelopeAmount  float64 `yaml:"filter_envelope_amount"` // Hz added to Cutoff at the envelope peak
	FilterEnvelopeAttack  float64 `yaml:"filter_envelope_attack"`
	FilterEnvelopeRelease float64 `yaml:"filter_envelope_release"`
	EchoMix               float64 `yaml:"echo_mix"` // 0 bypasses the echo
	FeedbackGain          float64 `yaml:"feedback_gain"`
	DelayTime             float64 `yaml:"delay_time"`
}

func DefaultPulseConfig() PulseConfig {
	return PulseConfig{
		Cutoff:                800,
		Volume:                0.5,
		PulseWidth:            0.3,
		Attack:                0.01,
		Decay:                 0.2,
		Sustain:               0.6,
		Release:               0.5,
		Note:                  220,
		SemitoneOffset:        7,
		FilterEnvelopeAmount:  2400,
		FilterEnvelopeAttack:  0.05,
		FilterEnvelopeRelease: 0.4,
		EchoMix:               0.3,
		FeedbackGain:          0.4,
		DelayTime:             0.25,
	}
}

func (c PulseConfig) Validate() error {
	switch {
	case c.Cutoff <= 0 || c.Cutoff+c.FilterEnvelopeAmount <= 0:
		return fmt.Errorf("%w: pulse cutoff must stay positive", ErrInvalidConfig)
	case c.Volume < 0:
		return fmt.Errorf("%w: pulse volume must not be negative", ErrInvalidConfig)
	case c.PulseWidth < -1 || c.PulseWidth > 1:
		return fmt.Errorf("%w: pulse width must be in [-1, 1]", ErrInvalidConfig)
	case c.Attack < 0 || c.Decay < 0 || c.Release < 0:
		return fmt.Errorf("%w: pulse envelope times must not be negative", ErrInvalidConfig)
	case c.Attack+c.Decay+c.Release <= 0:
		return fmt.Errorf("%w: pulse envelope has zero length", ErrInvalidConfig)
	case c.Sustain < 0 || c.Sustain > 1:
		return fmt.Errorf("%w: pulse sustain must be in [0, 1]", ErrInvalidConfig)
	case c.Note <= 0:
		return fmt.Errorf("%w: pulse note must be positive", ErrInvalidConfig)
	case c.FilterEnvelopeAttack < 0 || c.FilterEnvelopeRelease < 0:
		return fmt.Errorf("%w: pulse filter envelope times must not be negative", ErrInvalidConfig)
	case c.EchoMix < 0 || c.EchoMix > 1:
		return fmt.Errorf("%w: pulse echo mix must be in [0, 1]", ErrInvalidConfig)
	case c.FeedbackGain < 0 || c.FeedbackGain >= 1:
		return fmt.Errorf("%w: pulse feedback gain must be in [0, 1)", ErrInvalidConfig)
	case c.EchoMix > 0 && (c.DelayTime <= 0 || c.DelayTime > graph.MaxDelayTime):
		return fmt.Errorf("%w: pulse delay time must be in (0, %g]", ErrInvalidConfig, graph.MaxDelayTime)
	}
	return nil
}

// Length is attack + decay + release.
func (c PulseConfig) Length() float64 { return c.Attack + c.Decay + c.Release }

// stepCurve is a two-level shaper: negative inputs map to -1, the rest to 1.
var stepCurve = func() []float64 {
	c := make([]float64, 256)
	for i := range c {
		c[i] = -1
		if i >= len(c)/2 {
			c[i] = 1
		}
	}
	return c
}()

// Pulse is two detuned variable-width pulse waves through an optional echo,
// a swept low-pass and an ADSR.
type Pulse struct {
	base
	cfg PulseConfig
}

func NewPulse(ctx *graph.Context, cfg PulseConfig, opts ...Option) (*Pulse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pulse{cfg: cfg}
	if err := p.init(ctx, KindPulse, opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pulse) Config() PulseConfig { return p.cfg }

func (p *Pulse) Trigger(at float64) (*Voice, error) {
	cfg := p.cfg
	b := newBuilder(p.ctx)

	var shapers [2]*graph.WaveShaperNode
	freqs := [2]float64{cfg.Note, cfg.Note * math.Pow(2, cfg.SemitoneOffset/12)}
	mix := b.gain(0.5)
	for i, f := range freqs {
		osc := b.oscillator(graph.Sawtooth, f)
		bias := b.constant(cfg.PulseWidth)
		shapers[i] = b.shaper(stepCurve)
		if b.err != nil {
			return b.fail(p.kind, at)
		}
		b.connect(osc, shapers[i])
		b.connect(bias, shapers[i])
		b.connect(shapers[i], mix)
	}

	lp := b.filter(graph.Lowpass, cfg.Cutoff)
	env := b.gain(0)
	out := b.analyser(p.opts.analyserSize)
	if b.err != nil {
		return b.fail(p.kind, at)
	}
	if cfg.EchoMix > 0 {
		dry := b.gain(1 - cfg.EchoMix)
		line := b.delay(cfg.DelayTime, math.Max(1, cfg.DelayTime))
		wet := b.gain(cfg.EchoMix)
		feedback := b.gain(cfg.FeedbackGain)
		if b.err != nil {
			return b.fail(p.kind, at)
		}
		b.connect(mix, dry)
		b.connect(dry, lp)
		b.connect(mix, line)
		b.connect(line, wet)
		b.connect(wet, lp)
		b.connect(line, feedback)
		b.connect(feedback, line)
	} else {
		b.connect(mix, lp)
	}
	b.connect(lp, env)
	b.connect(env, out)

	sweep, err := envelope.Segments(at, cfg.Cutoff, envelope.Linear, []envelope.Segment{
		{Duration: cfg.FilterEnvelopeAttack, Target: cfg.Cutoff + cfg.FilterEnvelopeAmount},
		{Duration: cfg.FilterEnvelopeRelease, Target: cfg.Cutoff},
	})
	b.automate(lp.Frequency, sweep, err)
	adsr, err := envelope.Schedule(envelope.Request{
		At:       at,
		Duration: 1,
		Shape:    envelope.Shape{Attack: cfg.Attack, Decay: cfg.Decay, Sustain: cfg.Sustain, Release: cfg.Release},
		Mode:     envelope.SustainLevel,
		Curve:    envelope.Linear,
		Peak:     cfg.Volume,
	})
	b.automate(env.Gain, adsr, err)

	// The envelope closes at stop, so whatever the echo still holds is
	// silent and the graph can go with the sources.
	stop := at + cfg.Length()
	v, err := b.finish(p.kind, env, out, at, stop, stop)
	if err != nil {
		return nil, err
	}
	p.record(v)
	return v, nil
}
