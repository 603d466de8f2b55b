package effects

import "math"

// Compressor is a peak-following downward compressor.
type Compressor struct {
	threshold float64
	ratio     float64
	attack    float64 // coefficient
	release   float64 // coefficient
	makeup    float64
	env       float64
}

// NewCompressor creates a compressor effect.
// thresholdDB: threshold in dB (e.g., -20)
// ratio: compression ratio (e.g., 4 for 4:1)
// attackMs: attack time in ms
// releaseMs: release time in ms
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	sr := float64(sampleRate)
	return &Compressor{
		threshold: dbToGain(thresholdDB),
		ratio:     math.Max(ratio, 1),
		attack:    1.0 - math.Exp(-1.0/(attackMs*sr/1000.0)),
		release:   1.0 - math.Exp(-1.0/(releaseMs*sr/1000.0)),
		makeup:    dbToGain(makeupDB),
	}
}

func (c *Compressor) Process(x float64) float64 {
	level := math.Abs(x)
	if level > c.env {
		c.env += c.attack * (level - c.env)
	} else {
		c.env += c.release * (level - c.env)
	}
	return x * c.gain() * c.makeup
}

// gain is the reduction for the current envelope: the excess over the
// threshold is scaled down by ratio.
func (c *Compressor) gain() float64 {
	if c.env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	return math.Pow(c.env/c.threshold, 1.0/c.ratio-1)
}

func (c *Compressor) Reset() {
	c.env = 0
}

func dbToGain(db float64) float64 { return math.Pow(10, db/20) }
