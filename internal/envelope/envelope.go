// Package envelope turns envelope shapes into ordered automation points for
// a single parameter. It does not render anything; points are handed to a
// Param, which is expected to honor their timestamps.
package envelope

import (
	"errors"
	"fmt"
)

// ExpFloor replaces a zero target on exponential curves, which cannot reach 0.
const ExpFloor = 1e-4

var ErrInvalidShape = errors.New("invalid envelope")

type Curve int

const (
	Set Curve = iota
	Linear
	Exponential
)

func (c Curve) String() string {
	switch c {
	case Set:
		return "set"
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// SustainMode selects how Shape.Sustain is read. Callers choose; the two
// readings are not interchangeable.
type SustainMode int

const (
	// SustainHold treats Sustain as time spent before the floor is reached:
	// the decay to Floor ends at a+d+s.
	SustainHold SustainMode = iota
	// SustainLevel treats Sustain as a fraction of Peak reached at a+d.
	SustainLevel
)

// Shape holds the four segments as fractions of the request duration. Open
// drops the release segment and leaves the parameter at its floor.
type Shape struct {
	Attack  float64 `yaml:"attack"`
	Decay   float64 `yaml:"decay"`
	Sustain float64 `yaml:"sustain"`
	Release float64 `yaml:"release"`
	Open    bool    `yaml:"open"`
}

// Point is one automation instruction: reach Value at Time via Curve.
type Point struct {
	Time  float64
	Value float64
	Curve Curve
}

type Request struct {
	At       float64 // reference time in seconds
	Duration float64 // scale applied to every Shape fraction
	Shape    Shape
	Mode     SustainMode
	Curve    Curve // Linear or Exponential, used for every ramp
	From     float64
	Peak     float64
	Floor    float64 // used by SustainHold only
}

// Param is the automation surface Apply writes to.
type Param interface {
	SetValueAtTime(value, at float64) error
	LinearRampToValueAtTime(value, at float64) error
	ExponentialRampToValueAtTime(value, at float64) error
}

// Schedule returns the ramp points for req in time order.
func Schedule(req Request) ([]Point, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	sh := req.Shape
	a := sh.Attack * req.Duration
	d := sh.Decay * req.Duration
	s := sh.Sustain * req.Duration
	r := sh.Release * req.Duration

	floor, floorAt := req.Floor, req.At+a+d+s
	if req.Mode == SustainLevel {
		floor, floorAt = sh.Sustain*req.Peak, req.At+a+d
	}

	pts := make([]Point, 0, 5)
	pts = append(pts, Point{Time: req.At, Value: req.From, Curve: Set})
	pts = appendRamp(pts, req.Curve, req.Peak, req.At+a)
	pts = appendRamp(pts, req.Curve, floor, floorAt)
	if !sh.Open {
		pts = appendRamp(pts, req.Curve, 0, floorAt+r)
	}
	return pts, nil
}

// Segment is one leg of a multi-segment ramp.
type Segment struct {
	Duration float64 `yaml:"duration"`
	Target   float64 `yaml:"target"`
}

// Segments chains ramps back to back starting from value from at time at.
func Segments(at, from float64, curve Curve, segs []Segment) ([]Point, error) {
	if at < 0 {
		return nil, fmt.Errorf("%w: negative reference time %f", ErrInvalidShape, at)
	}
	pts := make([]Point, 0, len(segs)+1)
	pts = append(pts, Point{Time: at, Value: from, Curve: Set})
	t := at
	for i, seg := range segs {
		if seg.Duration < 0 {
			return nil, fmt.Errorf("%w: segment %d has negative duration", ErrInvalidShape, i)
		}
		t += seg.Duration
		pts = appendRamp(pts, curve, seg.Target, t)
	}
	return pts, nil
}

// End returns the time of the last point, or 0 for an empty schedule.
func End(pts []Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	return pts[len(pts)-1].Time
}

// Apply writes pts to p in order.
func Apply(p Param, pts []Point) error {
	for _, pt := range pts {
		var err error
		switch pt.Curve {
		case Set:
			err = p.SetValueAtTime(pt.Value, pt.Time)
		case Linear:
			err = p.LinearRampToValueAtTime(pt.Value, pt.Time)
		case Exponential:
			err = p.ExponentialRampToValueAtTime(pt.Value, pt.Time)
		default:
			err = fmt.Errorf("%w: unknown curve %d", ErrInvalidShape, pt.Curve)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func appendRamp(pts []Point, curve Curve, value, at float64) []Point {
	if curve != Exponential {
		return append(pts, Point{Time: at, Value: value, Curve: Linear})
	}
	if value == 0 {
		pts = append(pts, Point{Time: at, Value: ExpFloor, Curve: Exponential})
		return append(pts, Point{Time: at, Value: 0, Curve: Set})
	}
	return append(pts, Point{Time: at, Value: value, Curve: Exponential})
}

func validate(req Request) error {
	sh := req.Shape
	switch {
	case req.At < 0:
		return fmt.Errorf("%w: negative reference time %f", ErrInvalidShape, req.At)
	case req.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidShape, req.Duration)
	case sh.Attack < 0 || sh.Decay < 0 || sh.Sustain < 0 || sh.Release < 0:
		return fmt.Errorf("%w: negative segment in %+v", ErrInvalidShape, sh)
	case req.Curve != Linear && req.Curve != Exponential:
		return fmt.Errorf("%w: ramp curve must be linear or exponential", ErrInvalidShape)
	}
	return nil
}
