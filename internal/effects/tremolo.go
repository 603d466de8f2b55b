package effects

import "github.com/cbegin/metrosynth-go/internal/lfo"

// Tremolo modulates amplitude between 1-depth and 1.
type Tremolo struct {
	mod   *lfo.LFO
	depth float64
}

func NewTremolo(sampleRate int, rateHz, depth float64, wave lfo.Waveform) *Tremolo {
	return &Tremolo{
		mod:   lfo.New(sampleRate, rateHz, wave, 1),
		depth: clamp(depth, 0, 1),
	}
}

func (t *Tremolo) Process(x float64) float64 {
	return x * (1 - t.depth*(1-t.mod.Next())/2)
}

func (t *Tremolo) Reset() { t.mod.Reset() }
