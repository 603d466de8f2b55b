package effects

import "github.com/cbegin/metrosynth-go/internal/lfo"

// Chorus is a sine-modulated delay; short delays with feedback give a
// flanger.
type Chorus struct {
	buf      []float64
	pos      int
	depth    float64 // samples
	mod      *lfo.LFO
	feedback float64
	wet      float64
}

// NewChorus creates a chorus/flanger effect.
// delayMs: base delay time in ms (typically 5-30ms)
// feedback: feedback amount 0..1
// depthMs: modulation depth in ms
// rateHz: modulation rate in Hz (typically 0.1-5Hz)
// wet: wet/dry mix 0..1
func NewChorus(sampleRate int, delayMs, feedback, depthMs, rateHz, wet float64) *Chorus {
	sr := float64(sampleRate)
	depth := depthMs * sr / 1000.0
	size := int(delayMs*sr/1000.0) + int(depth) + 2
	if size < 4 {
		size = 4
	}
	return &Chorus{
		buf:      make([]float64, size),
		depth:    depth,
		mod:      lfo.New(sampleRate, rateHz, lfo.Sine, 0),
		feedback: clamp(feedback, 0, 0.9),
		wet:      clamp(wet, 0, 1),
	}
}

func (c *Chorus) Process(x float64) float64 {
	size := len(c.buf)
	mod := c.mod.Next() * c.depth
	c.buf[c.pos] = x

	read := float64(c.pos) - (float64(size/2) + mod)
	for read < 0 {
		read += float64(size)
	}
	i := int(read)
	frac := read - float64(i)
	j := i + 1
	if j >= size {
		j = 0
	}
	del := c.buf[i]*(1-frac) + c.buf[j]*frac

	c.buf[c.pos] += del * c.feedback
	c.pos++
	if c.pos >= size {
		c.pos = 0
	}
	return x*(1-c.wet) + del*c.wet
}

func (c *Chorus) Reset() {
	clear(c.buf)
	c.pos = 0
	c.mod.Reset()
}
