package effects

import "math"

// Distortion is tanh soft clipping with an optional one-pole low-pass.
type Distortion struct {
	preGain  float64
	postGain float64
	lpfAlpha float64
	lpf      float64
}

// NewDistortion creates a distortion effect.
// preGain: input gain (higher = more distortion)
// postGain: output gain
// lpfCutoff: lowpass filter cutoff in Hz (0 = no filter)
func NewDistortion(sampleRate int, preGain, postGain, lpfCutoff float64) *Distortion {
	d := &Distortion{preGain: preGain, postGain: postGain}
	if lpfCutoff > 0 && lpfCutoff < float64(sampleRate)/2 {
		d.lpfAlpha = onePole(sampleRate, lpfCutoff)
	}
	return d
}

func (d *Distortion) Process(x float64) float64 {
	y := math.Tanh(x*d.preGain) * d.postGain
	if d.lpfAlpha > 0 {
		d.lpf += d.lpfAlpha * (y - d.lpf)
		y = d.lpf
	}
	return y
}

func (d *Distortion) Reset() {
	d.lpf = 0
}

// onePole returns the smoothing coefficient of an RC low-pass at cutoff.
func onePole(sampleRate int, cutoff float64) float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	dt := 1.0 / float64(sampleRate)
	return dt / (rc + dt)
}
