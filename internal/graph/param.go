package graph

import (
	"fmt"
	"math"
	"sort"
)

type EventKind int

const (
	SetValue EventKind = iota
	LinearRamp
	ExponentialRamp
)

// Event is one scheduled change of a Param.
type Event struct {
	Kind  EventKind
	Time  float64
	Value float64

	scheduledAt float64
}

// Param is an automatable node parameter. Its value at time t is derived
// from the event list; ramps start at the previous event.
type Param struct {
	ctx    *Context
	name   string
	value  float64
	events []Event

	pos   int
	prevT float64
	prevV float64
}

func newParam(ctx *Context, name string, value float64) *Param {
	return &Param{ctx: ctx, name: name, value: value, prevV: value}
}

func (p *Param) Name() string { return p.name }

// SetValue sets the value used before the first event.
func (p *Param) SetValue(v float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.value = v
	p.rewind()
}

func (p *Param) Value() float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.value
}

func (p *Param) SetValueAtTime(v, at float64) error {
	return p.insert(Event{Kind: SetValue, Time: at, Value: v})
}

func (p *Param) LinearRampToValueAtTime(v, at float64) error {
	return p.insert(Event{Kind: LinearRamp, Time: at, Value: v})
}

func (p *Param) ExponentialRampToValueAtTime(v, at float64) error {
	if v == 0 {
		return fmt.Errorf("%w: %s: exponential ramp target must be non-zero", ErrInvalidValue, p.name)
	}
	return p.insert(Event{Kind: ExponentialRamp, Time: at, Value: v})
}

// CancelScheduledValues drops every event at or after at.
func (p *Param) CancelScheduledValues(at float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].Time >= at })
	p.events = p.events[:i]
	p.rewind()
}

// Events returns a copy of the scheduled events in time order.
func (p *Param) Events() []Event {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ValueAt evaluates the automation at t without advancing render state.
func (p *Param) ValueAt(t float64) float64 {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	probe := Param{value: p.value, events: p.events, prevV: p.value}
	return probe.valueAt(t)
}

func (p *Param) insert(e Event) error {
	if math.IsNaN(e.Time) || e.Time < 0 {
		return fmt.Errorf("%w: %s: invalid time %f", ErrInvalidValue, p.name, e.Time)
	}
	if math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
		return fmt.Errorf("%w: %s: invalid value %f", ErrInvalidValue, p.name, e.Value)
	}
	e.scheduledAt = p.ctx.CurrentTime()
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].Time > e.Time })
	p.events = append(p.events, Event{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = e
	p.rewind()
	return nil
}

func (p *Param) rewind() {
	p.pos = 0
	p.prevT = 0
	p.prevV = p.value
}

// valueAt assumes t does not decrease between calls unless rewind ran.
func (p *Param) valueAt(t float64) float64 {
	for p.pos < len(p.events) && p.events[p.pos].Time <= t {
		e := p.events[p.pos]
		p.prevT, p.prevV = e.Time, e.Value
		p.pos++
	}
	if p.pos == len(p.events) {
		return p.prevV
	}
	next := p.events[p.pos]
	t0, v0 := p.prevT, p.prevV
	if p.pos == 0 {
		t0 = next.scheduledAt
	}
	if next.Time <= t0 || t < t0 {
		return v0
	}
	frac := (t - t0) / (next.Time - t0)
	switch next.Kind {
	case LinearRamp:
		return v0 + (next.Value-v0)*frac
	case ExponentialRamp:
		if v0 == 0 || (v0 < 0) != (next.Value < 0) {
			return v0
		}
		return v0 * math.Pow(next.Value/v0, frac)
	default:
		return v0
	}
}
