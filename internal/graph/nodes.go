package graph

import (
	"fmt"
	"math"
)

type GainNode struct {
	node
	Gain *Param
}

func (c *Context) NewGain(gain float64) (*GainNode, error) {
	if err := c.alloc(); err != nil {
		return nil, err
	}
	g := &GainNode{Gain: newParam(c, "gain", gain)}
	g.init(c, g)
	return g, nil
}

func (g *GainNode) render(f int64, t float64) float64 {
	return g.input(f, t) * g.Gain.valueAt(t)
}

// MaxDelayTime bounds DelayNode buffers.
const MaxDelayTime = 180.0

// DelayNode delays its input by DelayTime seconds (at least one frame). It is
// the only node that may close a feedback loop: its output never pulls its
// input within the same frame.
type DelayNode struct {
	node
	DelayTime *Param
	buf       []float64
	w         int
	pending   float64
}

func (c *Context) NewDelay(delayTime, maxDelay float64) (*DelayNode, error) {
	if maxDelay <= 0 || maxDelay > MaxDelayTime {
		return nil, fmt.Errorf("%w: max delay %f out of range", ErrGraphConstruction, maxDelay)
	}
	if err := c.alloc(); err != nil {
		return nil, err
	}
	d := &DelayNode{
		DelayTime: newParam(c, "delayTime", delayTime),
		buf:       make([]float64, int(math.Ceil(maxDelay*c.sampleRate))+2),
	}
	d.init(c, d)
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	return d, nil
}

func (d *DelayNode) render(_ int64, t float64) float64 {
	size := len(d.buf)
	delay := d.DelayTime.valueAt(t) * d.ctx.sampleRate
	if delay < 1 {
		delay = 1
	}
	if delay > float64(size-1) {
		delay = float64(size - 1)
	}
	pos := float64(d.w) - delay
	for pos < 0 {
		pos += float64(size)
	}
	i := int(pos)
	frac := pos - float64(i)
	j := i + 1
	if j >= size {
		j = 0
	}
	return d.buf[i]*(1-frac) + d.buf[j]*frac
}

func (d *DelayNode) write(x float64) {
	d.buf[d.w] = x
	d.w++
	if d.w >= len(d.buf) {
		d.w = 0
	}
}

// WaveShaperNode maps its input through Curve, with -1..1 spread across the
// curve and linear interpolation between entries.
type WaveShaperNode struct {
	node
	curve []float64
}

func (c *Context) NewWaveShaper(curve []float64) (*WaveShaperNode, error) {
	if len(curve) == 1 {
		return nil, fmt.Errorf("%w: wave shaper curve needs at least 2 points", ErrGraphConstruction)
	}
	if err := c.alloc(); err != nil {
		return nil, err
	}
	w := &WaveShaperNode{curve: append([]float64(nil), curve...)}
	w.init(c, w)
	return w, nil
}

func (w *WaveShaperNode) render(f int64, t float64) float64 {
	x := w.input(f, t)
	n := len(w.curve)
	if n == 0 {
		return x
	}
	v := float64(n-1) * (x + 1) / 2
	if v <= 0 {
		return w.curve[0]
	}
	if v >= float64(n-1) {
		return w.curve[n-1]
	}
	i := int(v)
	frac := v - float64(i)
	return w.curve[i]*(1-frac) + w.curve[i+1]*frac
}
