// Package lfo provides the low-frequency oscillators that modulate master
// effects.
package lfo

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Square
	Saw
	// Random holds a new value for each cycle (sample and hold).
	Random
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Square:
		return "square"
	case Saw:
		return "saw"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("waveform(%d)", int(w))
	}
}

func ParseWaveform(name string) (Waveform, error) {
	for w := Sine; w <= Random; w++ {
		if strings.EqualFold(name, w.String()) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("unknown lfo waveform %q", name)
}

// LFO produces one value in [-1, 1] per sample.
type LFO struct {
	wave  Waveform
	step  float64 // cycles per sample
	phase float64 // [0, 1)
	held  float64
	rng   *rand.Rand
	seed  uint64
}

// New returns an LFO at rateHz. Waveforms out of range fall back to Sine.
// Random is seeded with seed so renders repeat.
func New(sampleRate int, rateHz float64, wave Waveform, seed uint64) *LFO {
	if wave < Sine || wave > Random {
		wave = Sine
	}
	l := &LFO{wave: wave, step: rateHz / float64(sampleRate), seed: seed}
	l.Reset()
	return l
}

func (l *LFO) Waveform() Waveform { return l.wave }

// Next returns the value at the current phase and advances one sample.
func (l *LFO) Next() float64 {
	p := l.phase
	var v float64
	switch l.wave {
	case Triangle:
		if p < 0.5 {
			v = 4*p - 1
		} else {
			v = 3 - 4*p
		}
	case Square:
		if p < 0.5 {
			v = 1
		} else {
			v = -1
		}
	case Saw:
		v = 1 - 2*p
	case Random:
		v = l.held
	default:
		v = math.Sin(2 * math.Pi * p)
	}

	l.phase += l.step
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
		if l.wave == Random {
			l.held = l.rng.Float64()*2 - 1
		}
	}
	return v
}

func (l *LFO) Reset() {
	l.phase = 0
	l.rng = rand.New(rand.NewPCG(l.seed, l.seed^0x9e3779b97f4a7c15))
	l.held = l.rng.Float64()*2 - 1
}
