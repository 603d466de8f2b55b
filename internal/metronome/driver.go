package metronome

import (
	"context"
	"time"
)

// Actor is anything the driver advances once per frame. Init restarts its
// lifetime.
type Actor interface {
	Init()
	Update(dt, dt0 float64)
}

// DefaultSlowMotionEvery is how many frames pass per update in slow motion.
const DefaultSlowMotionEvery = 24

// Driver feeds an Actor clamped frame deltas.
type Driver struct {
	actor Actor
	ideal float64

	last    float64
	started bool
	dt0     float64

	slow      bool
	slowEvery int
	frames    int
}

// NewDriver drives actor at frameRate frames per second and calls Init.
func NewDriver(actor Actor, frameRate float64) *Driver {
	ideal := 1 / frameRate
	d := &Driver{actor: actor, ideal: ideal, dt0: ideal, slowEvery: DefaultSlowMotionEvery}
	actor.Init()
	return d
}

// Ideal returns the length of one frame in seconds.
func (d *Driver) Ideal() float64 { return d.ideal }

// Frame advances the actor for a frame presented at timestamp (seconds).
// The first frame uses the ideal delta. It returns the clamped delta.
func (d *Driver) Frame(timestamp float64) float64 {
	dt := d.ideal
	if d.started {
		dt = timestamp - d.last
	}
	d.last = timestamp
	d.started = true
	dt = Clamp(dt, d.ideal)

	if !d.slow || d.frames%d.slowEvery == 0 {
		d.actor.Update(dt, d.dt0)
	}
	if d.slow {
		d.frames++
	}
	d.dt0 = dt
	return dt
}

// Reset re-initializes the actor.
func (d *Driver) Reset() {
	d.actor.Init()
}

// SetSlowMotion updates the actor only every DefaultSlowMotionEvery frames
// while on.
func (d *Driver) SetSlowMotion(on bool) {
	if on && !d.slow {
		d.frames = 0
	}
	d.slow = on
}

func (d *Driver) SlowMotion() bool { return d.slow }

// Run calls Frame on every tick until ctx is done, with timestamps taken
// from the monotonic clock.
func (d *Driver) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	start := time.Now()
	d.Frame(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			d.Frame(now.Sub(start).Seconds())
		}
	}
}
