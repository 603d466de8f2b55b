// Package effects holds the master-bus processors applied to the mono mix
// after every voice has been summed.
package effects

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cbegin/metrosynth-go/internal/lfo"
)

// Effector processes one mono sample at a time.
type Effector interface {
	Process(x float64) float64
	Reset()
}

// Chain applies a sequence of effects in order. Add may be called while
// the chain is processing.
type Chain struct {
	mu      sync.Mutex
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(x float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.effects {
		x = e.Process(x)
	}
	return x
}

func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.effects)
}

var ErrUnknownEffect = errors.New("unknown effect")

// Spec names one effect and its positional parameters, as written in the
// config file.
type Spec struct {
	Type   string    `yaml:"type"`
	Params []float64 `yaml:"params"`
}

// arity lists the parameter count of every effect type, in constructor
// order.
var arity = map[string]int{
	"delay":      3, // ms, feedback, wet
	"reverb":     3, // room size, feedback, wet
	"chorus":     5, // ms, feedback, depth ms, rate Hz, wet
	"distortion": 3, // pre gain, post gain, low-pass Hz
	"eq3":        5, // low, mid, high gain, low Hz, high Hz
	"eq5":        5, // band gains
	"compressor": 5, // threshold dB, ratio, attack ms, release ms, makeup dB
	"tremolo":    3, // rate Hz, depth, lfo waveform index
}

// Build creates one effect per spec.
func Build(specs []Spec, sampleRate int) ([]Effector, error) {
	out := make([]Effector, 0, len(specs))
	for i, s := range specs {
		e, err := build(s, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func build(s Spec, sampleRate int) (Effector, error) {
	typ := strings.ToLower(s.Type)
	n, ok := arity[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, s.Type)
	}
	if len(s.Params) != n {
		return nil, fmt.Errorf("%s takes %d params, got %d", typ, n, len(s.Params))
	}
	p := s.Params
	switch typ {
	case "delay":
		return NewDelay(sampleRate, p[0], p[1], p[2]), nil
	case "reverb":
		return NewReverb(sampleRate, p[0], p[1], p[2]), nil
	case "chorus":
		return NewChorus(sampleRate, p[0], p[1], p[2], p[3], p[4]), nil
	case "distortion":
		return NewDistortion(sampleRate, p[0], p[1], p[2]), nil
	case "eq3":
		return NewEQ3Band(sampleRate, p[0], p[1], p[2], p[3], p[4]), nil
	case "eq5":
		eq := NewEQ5Band(sampleRate)
		for band, g := range p {
			eq.SetGain(band, g)
		}
		return eq, nil
	case "tremolo":
		return NewTremolo(sampleRate, p[0], p[1], lfo.Waveform(p[2])), nil
	default:
		return NewCompressor(sampleRate, p[0], p[1], p[2], p[3], p[4]), nil
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
