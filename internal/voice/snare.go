package voice

import (
	"fmt"
	"math/rand/v2"

	"github.com/cbegin/metrosynth-go/internal/envelope"
	"github.com/cbegin/metrosynth-go/internal/graph"
)

// NewNoise returns one second of uniform noise in [-1, 1) at sampleRate.
// The buffer is immutable and may be shared by every snare of a context.
func NewNoise(sampleRate int, seed uint64) *graph.Buffer {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]float32, sampleRate)
	for i := range data {
		data[i] = float32(rng.Float64()*2 - 1)
	}
	return graph.NewBuffer(data, sampleRate)
}

type SnareConfig struct {
	Cutoff  float64 `yaml:"cutoff"` // high-pass frequency in Hz
	Length  float64 `yaml:"length"` // seconds until the gain reaches EndGain
	EndGain float64 `yaml:"end_gain"`
}

func DefaultSnareConfig() SnareConfig {
	return SnareConfig{Cutoff: 1000, Length: 0.2, EndGain: 0.01}
}

func (c SnareConfig) Validate() error {
	switch {
	case c.Cutoff <= 0:
		return fmt.Errorf("%w: snare cutoff must be positive", ErrInvalidConfig)
	case c.Length <= 0:
		return fmt.Errorf("%w: snare length must be positive", ErrInvalidConfig)
	case c.EndGain <= 0 || c.EndGain >= 1:
		return fmt.Errorf("%w: snare end gain must be in (0, 1)", ErrInvalidConfig)
	}
	return nil
}

// Snare is high-passed noise with an exponential gain decay.
type Snare struct {
	base
	cfg   SnareConfig
	noise *graph.Buffer
}

// NewSnare builds a snare over the noise table passed with WithNoise, or
// over its own table when none is given.
func NewSnare(ctx *graph.Context, cfg SnareConfig, opts ...Option) (*Snare, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Snare{cfg: cfg}
	if err := s.init(ctx, KindSnare, opts); err != nil {
		return nil, err
	}
	s.noise = s.opts.noise
	if s.noise == nil {
		s.noise = NewNoise(ctx.SampleRate(), rand.Uint64())
	}
	if s.noise.Len() == 0 {
		return nil, fmt.Errorf("%w: empty noise table", ErrInvalidConfig)
	}
	return s, nil
}

func (s *Snare) Config() SnareConfig { return s.cfg }

func (s *Snare) Noise() *graph.Buffer { return s.noise }

func (s *Snare) Trigger(at float64) (*Voice, error) {
	cfg := s.cfg
	b := newBuilder(s.ctx)
	noise := b.bufferSource(s.noise)
	hp := b.filter(graph.Highpass, cfg.Cutoff)
	env := b.gain(0)
	out := b.analyser(s.opts.analyserSize)
	if b.err != nil {
		return b.fail(s.kind, at)
	}
	noise.Loop = s.noise.Duration() < cfg.Length
	b.connect(noise, hp)
	b.connect(hp, env)
	b.connect(env, out)

	b.automate(hp.Frequency, []envelope.Point{{Time: at, Value: cfg.Cutoff, Curve: envelope.Set}}, nil)
	decay, err := envelope.Segments(at, 1, envelope.Exponential,
		[]envelope.Segment{{Duration: cfg.Length, Target: cfg.EndGain}})
	b.automate(env.Gain, decay, err)

	stop := at + cfg.Length
	v, err := b.finish(s.kind, env, out, at, stop, stop)
	if err != nil {
		return nil, err
	}
	s.record(v)
	return v, nil
}
