package graph

import "math"

type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
)

// BiquadFilterNode is a second-order filter (RBJ cookbook coefficients).
// Coefficients are recomputed only when Frequency or Q change.
type BiquadFilterNode struct {
	node
	Type      FilterType
	Frequency *Param
	Q         *Param

	lastF, lastQ   float64
	b0, b1, b2     float64
	a1, a2         float64
	x1, x2, y1, y2 float64
}

func (c *Context) NewBiquadFilter(typ FilterType, freq float64) (*BiquadFilterNode, error) {
	if err := c.alloc(); err != nil {
		return nil, err
	}
	f := &BiquadFilterNode{
		Type:      typ,
		Frequency: newParam(c, "frequency", freq),
		Q:         newParam(c, "Q", math.Sqrt2/2),
		lastF:     -1,
	}
	f.init(c, f)
	return f, nil
}

func (f *BiquadFilterNode) render(frame int64, t float64) float64 {
	x := f.input(frame, t)
	freq := f.Frequency.valueAt(t)
	q := f.Q.valueAt(t)
	if freq != f.lastF || q != f.lastQ {
		f.coefficients(freq, q)
	}
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

func (f *BiquadFilterNode) coefficients(freq, q float64) {
	f.lastF, f.lastQ = freq, q
	nyquist := f.ctx.sampleRate / 2
	if freq < 10 {
		freq = 10
	}
	if freq > nyquist*0.999 {
		freq = nyquist * 0.999
	}
	if q < 1e-4 {
		q = 1e-4
	}
	w0 := twoPi * freq / f.ctx.sampleRate
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)
	var b0, b1, b2 float64
	switch f.Type {
	case Highpass:
		b0 = (1 + cosW) / 2
		b1 = -(1 + cosW)
		b2 = (1 + cosW) / 2
	case Bandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default:
		b0 = (1 - cosW) / 2
		b1 = 1 - cosW
		b2 = (1 - cosW) / 2
	}
	a0 := 1 + alpha
	f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
	f.a1 = -2 * cosW / a0
	f.a2 = (1 - alpha) / a0
}
