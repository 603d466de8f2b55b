package voice

import (
	"fmt"

	"github.com/cbegin/metrosynth-go/internal/envelope"
	"github.com/cbegin/metrosynth-go/internal/graph"
)

type KickConfig struct {
	StartFrequency float64 `yaml:"start_frequency"` // Hz
	EndFrequency   float64 `yaml:"end_frequency"`   // Hz; 0 keeps the pitch fixed
	Length         float64 `yaml:"length"`          // seconds until the gain reaches EndGain
	EndGain        float64 `yaml:"end_gain"`
}

func DefaultKickConfig() KickConfig {
	return KickConfig{StartFrequency: 150, Length: 0.5, EndGain: 0.001}
}

func (c KickConfig) Validate() error {
	switch {
	case c.StartFrequency <= 0:
		return fmt.Errorf("%w: kick start frequency must be positive", ErrInvalidConfig)
	case c.EndFrequency < 0:
		return fmt.Errorf("%w: kick end frequency must not be negative", ErrInvalidConfig)
	case c.Length <= 0:
		return fmt.Errorf("%w: kick length must be positive", ErrInvalidConfig)
	case c.EndGain <= 0 || c.EndGain >= 1:
		return fmt.Errorf("%w: kick end gain must be in (0, 1)", ErrInvalidConfig)
	}
	return nil
}

// Kick is a sine thump whose gain decays exponentially.
type Kick struct {
	base
	cfg KickConfig
}

func NewKick(ctx *graph.Context, cfg KickConfig, opts ...Option) (*Kick, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k := &Kick{cfg: cfg}
	if err := k.init(ctx, KindKick, opts); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Kick) Config() KickConfig { return k.cfg }

func (k *Kick) Trigger(at float64) (*Voice, error) {
	cfg := k.cfg
	b := newBuilder(k.ctx)
	osc := b.oscillator(graph.Sine, cfg.StartFrequency)
	env := b.gain(0)
	out := b.analyser(k.opts.analyserSize)
	if b.err != nil {
		return b.fail(k.kind, at)
	}
	b.connect(osc, env)
	b.connect(env, out)

	if cfg.EndFrequency > 0 {
		pitch, err := envelope.Segments(at, cfg.StartFrequency, envelope.Exponential,
			[]envelope.Segment{{Duration: cfg.Length, Target: cfg.EndFrequency}})
		b.automate(osc.Frequency, pitch, err)
	}
	decay, err := envelope.Segments(at, 1, envelope.Exponential,
		[]envelope.Segment{{Duration: cfg.Length, Target: cfg.EndGain}})
	b.automate(env.Gain, decay, err)

	stop := at + cfg.Length
	v, err := b.finish(k.kind, env, out, at, stop, stop)
	if err != nil {
		return nil, err
	}
	k.record(v)
	return v, nil
}
