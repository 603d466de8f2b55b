package graph

import (
	"fmt"
	"math"
)

const twoPi = math.Pi * 2

// scheduled tracks the start/stop window shared by every source node.
type scheduled struct {
	started bool
	startAt float64
	stopAt  float64
	stopped bool
}

func (s *scheduled) start(ctx *Context, at float64) error {
	if math.IsNaN(at) || at < 0 {
		return fmt.Errorf("%w: invalid start time %f", ErrInvalidValue, at)
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if s.started {
		return fmt.Errorf("%w: source already started", ErrInvalidState)
	}
	s.started = true
	s.startAt = at
	return nil
}

func (s *scheduled) stop(ctx *Context, at float64) error {
	if math.IsNaN(at) || at < 0 {
		return fmt.Errorf("%w: invalid stop time %f", ErrInvalidValue, at)
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if !s.started {
		return fmt.Errorf("%w: stop before start", ErrInvalidState)
	}
	s.stopped = true
	s.stopAt = at
	return nil
}

func (s *scheduled) active(t float64) bool {
	return s.started && t >= s.startAt && (!s.stopped || t < s.stopAt)
}

// StopTime returns the scheduled stop, or -1 when none is set.
func (s *scheduled) StopTime() float64 {
	if !s.stopped {
		return -1
	}
	return s.stopAt
}

type OscillatorType int

const (
	Sine OscillatorType = iota
	Square
	Sawtooth
	Triangle
)

type OscillatorNode struct {
	node
	scheduled
	Type      OscillatorType
	Frequency *Param
	Detune    *Param // cents
	phase     float64
}

func (c *Context) NewOscillator(typ OscillatorType, freq float64) (*OscillatorNode, error) {
	if err := c.alloc(); err != nil {
		return nil, err
	}
	o := &OscillatorNode{
		Type:      typ,
		Frequency: newParam(c, "frequency", freq),
		Detune:    newParam(c, "detune", 0),
	}
	o.init(c, o)
	return o, nil
}

func (o *OscillatorNode) Start(at float64) error { return o.scheduled.start(o.ctx, at) }
func (o *OscillatorNode) Stop(at float64) error  { return o.scheduled.stop(o.ctx, at) }

func (o *OscillatorNode) render(_ int64, t float64) float64 {
	if !o.active(t) {
		return 0
	}
	freq := o.Frequency.valueAt(t)
	if cents := o.Detune.valueAt(t); cents != 0 {
		freq *= math.Pow(2, cents/1200)
	}
	dt := math.Abs(freq) / o.ctx.sampleRate
	p := o.phase
	var out float64
	switch o.Type {
	case Square:
		out = -1
		if p < 0.5 {
			out = 1
		}
		out += polyBLEP(p, dt)
		out -= polyBLEP(math.Mod(p+0.5, 1), dt)
	case Sawtooth:
		// offset half a cycle so the wave starts at zero, rising
		q := math.Mod(p+0.5, 1)
		out = 2*q - 1 - polyBLEP(q, dt)
	case Triangle:
		out = 1 - 4*math.Abs(math.Mod(p+0.25, 1)-0.5)
	default:
		out = math.Sin(twoPi * p)
	}
	o.phase += dt
	for o.phase >= 1 {
		o.phase--
	}
	return out
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// Buffer is immutable sample data shared by any number of buffer sources.
type Buffer struct {
	sampleRate int
	data       []float32
}

func NewBuffer(data []float32, sampleRate int) *Buffer {
	cp := make([]float32, len(data))
	copy(cp, data)
	return &Buffer{sampleRate: sampleRate, data: cp}
}

func (b *Buffer) Len() int          { return len(b.data) }
func (b *Buffer) At(i int) float32  { return b.data[i] }
func (b *Buffer) SampleRate() int   { return b.sampleRate }
func (b *Buffer) Duration() float64 { return float64(len(b.data)) / float64(b.sampleRate) }

type BufferSourceNode struct {
	node
	scheduled
	Loop   bool
	buffer *Buffer
	pos    int
}

func (c *Context) NewBufferSource(buf *Buffer) (*BufferSourceNode, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrGraphConstruction)
	}
	if buf.sampleRate != int(c.sampleRate) {
		return nil, fmt.Errorf("%w: buffer rate %d does not match context rate %d", ErrGraphConstruction, buf.sampleRate, int(c.sampleRate))
	}
	if err := c.alloc(); err != nil {
		return nil, err
	}
	b := &BufferSourceNode{buffer: buf}
	b.init(c, b)
	return b, nil
}

func (b *BufferSourceNode) Start(at float64) error { return b.scheduled.start(b.ctx, at) }
func (b *BufferSourceNode) Stop(at float64) error  { return b.scheduled.stop(b.ctx, at) }

func (b *BufferSourceNode) render(_ int64, t float64) float64 {
	if !b.active(t) || b.buffer.Len() == 0 {
		return 0
	}
	if b.pos >= b.buffer.Len() {
		if !b.Loop {
			return 0
		}
		b.pos = 0
	}
	v := b.buffer.data[b.pos]
	b.pos++
	return float64(v)
}

// ConstantSourceNode outputs its Offset param while active.
type ConstantSourceNode struct {
	node
	scheduled
	Offset *Param
}

func (c *Context) NewConstantSource(offset float64) (*ConstantSourceNode, error) {
	if err := c.alloc(); err != nil {
		return nil, err
	}
	s := &ConstantSourceNode{Offset: newParam(c, "offset", offset)}
	s.init(c, s)
	return s, nil
}

func (s *ConstantSourceNode) Start(at float64) error { return s.scheduled.start(s.ctx, at) }
func (s *ConstantSourceNode) Stop(at float64) error  { return s.scheduled.stop(s.ctx, at) }

func (s *ConstantSourceNode) render(_ int64, t float64) float64 {
	if !s.active(t) {
		return 0
	}
	return s.Offset.valueAt(t)
}
