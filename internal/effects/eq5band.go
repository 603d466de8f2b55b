package effects

import (
	"math"
	"sync/atomic"
)

// Bands is the number of EQ5Band bands.
const Bands = 5

// EQ5Band is the runtime-adjustable master EQ. Bands are split at 200Hz,
// 800Hz, 2.5kHz and 8kHz. Gains are bit-cast into atomics so the render
// thread reads them without locking.
type EQ5Band struct {
	gains  [Bands]atomic.Uint64
	alphas [Bands - 1]float64
	lp     [Bands - 1]float64
}

var defaultCrossovers = [Bands - 1]float64{200, 800, 2500, 8000}

// NewEQ5Band creates a 5-band EQ with all gains at unity.
func NewEQ5Band(sampleRate int) *EQ5Band {
	eq := &EQ5Band{}
	for i, freq := range defaultCrossovers {
		eq.alphas[i] = onePole(sampleRate, freq)
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float64bits(1.0))
	}
	return eq
}

// SetGain sets the gain for band (0-4). 1.0 = unity, 0.0 = silence, 2.0 = +6dB.
// Out of range bands are ignored.
func (eq *EQ5Band) SetGain(band int, gain float64) {
	if band >= 0 && band < Bands {
		eq.gains[band].Store(math.Float64bits(math.Max(gain, 0)))
	}
}

// Gain returns the current gain for band (0-4).
func (eq *EQ5Band) Gain(band int) float64 {
	if band >= 0 && band < Bands {
		return math.Float64frombits(eq.gains[band].Load())
	}
	return 1.0
}

func (eq *EQ5Band) Process(x float64) float64 {
	// Each crossover peels its low band off the remainder; what is left
	// above the last crossover is the top band.
	var out float64
	rem := x
	for i := range eq.lp {
		eq.lp[i] += eq.alphas[i] * (rem - eq.lp[i])
		out += eq.lp[i] * eq.Gain(i)
		rem -= eq.lp[i]
	}
	return out + rem*eq.Gain(Bands-1)
}

func (eq *EQ5Band) Reset() {
	clear(eq.lp[:])
}
