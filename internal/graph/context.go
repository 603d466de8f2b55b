// Package graph is a small sample-accurate audio node graph. Nodes are wired
// at trigger time, parameter automation is expressed as future timestamps,
// and Context.Process renders the destination mix one frame at a time.
package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrGraphConstruction is returned when a node cannot be created.
	ErrGraphConstruction = errors.New("graph construction failed")
	ErrInvalidState      = errors.New("invalid node state")
	ErrInvalidValue      = errors.New("invalid automation value")
)

// Processor is applied to the mono mix before master gain.
type Processor interface {
	Process(x float64) float64
}

type Config struct {
	SampleRate int
	MaxNodes   int // 0 = unlimited
	MasterGain float64
	Logger     *slog.Logger
}

type retirement struct {
	at    float64
	nodes []Node
}

type Context struct {
	mu         sync.Mutex
	sampleRate float64
	frame      atomic.Int64
	maxNodes   int
	live       int
	dest       *Destination
	delays     []*DelayNode
	retire     []retirement
	master     Processor
	masterGain atomic.Uint64
	log        *slog.Logger
}

func NewContext(cfg Config) (*Context, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if cfg.MaxNodes < 0 {
		return nil, errors.New("maxNodes must not be negative")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{
		sampleRate: float64(cfg.SampleRate),
		maxNodes:   cfg.MaxNodes,
		log:        logger,
	}
	c.dest = &Destination{}
	c.dest.init(c, c.dest)
	c.SetMasterGain(cfg.MasterGain)
	return c, nil
}

func (c *Context) SampleRate() int { return int(c.sampleRate) }

// CurrentTime is the time of the next frame Process will render.
func (c *Context) CurrentTime() float64 {
	return float64(c.frame.Load()) / c.sampleRate
}

func (c *Context) Destination() *Destination { return c.dest }

func (c *Context) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	c.masterGain.Store(math.Float64bits(gain))
}

func (c *Context) MasterGain() float64 {
	return math.Float64frombits(c.masterGain.Load())
}

// SetMaster installs p on the master bus; nil removes it.
func (c *Context) SetMaster(p Processor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.master = p
}

// LiveNodes returns the number of allocated nodes not yet torn down.
func (c *Context) LiveNodes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// PendingRetirements returns the number of scheduled teardowns.
func (c *Context) PendingRetirements() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.retire)
}

// Retire schedules nodes to be disconnected and released once the render
// clock reaches at.
func (c *Context) Retire(at float64, nodes ...Node) {
	if len(nodes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := sort.Search(len(c.retire), func(i int) bool { return c.retire[i].at > at })
	c.retire = append(c.retire, retirement{})
	copy(c.retire[i+1:], c.retire[i:])
	c.retire[i] = retirement{at: at, nodes: nodes}
}

// Release tears nodes down immediately.
func (c *Context) Release(nodes ...Node) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown(nodes)
}

// Process renders len(dst)/2 stereo frames (interleaved float32). The mix is
// mono; both channels carry the same sample.
func (c *Context) Process(dst []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gain := c.MasterGain()
	for i := 0; i+1 < len(dst); i += 2 {
		f := c.frame.Load()
		t := float64(f) / c.sampleRate
		c.retireDue(t)
		v := c.dest.pull(f, t)
		c.captureDelays(f, t)
		if c.master != nil {
			v = c.master.Process(v)
		}
		v *= gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[i] = float32(v)
		dst[i+1] = float32(v)
		c.frame.Add(1)
	}
}

// Render returns seconds of stereo output rendered offline.
func (c *Context) Render(seconds float64) []float32 {
	frames := int(c.sampleRate * seconds)
	out := make([]float32, frames*2)
	c.Process(out)
	return out
}

func (c *Context) alloc() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxNodes > 0 && c.live >= c.maxNodes {
		c.log.Warn("node budget exhausted", "max_nodes", c.maxNodes)
		return fmt.Errorf("%w: node budget of %d exhausted", ErrGraphConstruction, c.maxNodes)
	}
	c.live++
	return nil
}

func (c *Context) retireDue(t float64) {
	n := 0
	for n < len(c.retire) && c.retire[n].at <= t {
		c.teardown(c.retire[n].nodes)
		n++
	}
	if n > 0 {
		c.retire = c.retire[n:]
		c.log.Debug("retired voices", "count", n, "time", t, "live_nodes", c.live)
	}
}

func (c *Context) teardown(nodes []Node) {
	for _, n := range nodes {
		core := n.core()
		if core.released {
			continue
		}
		core.detach()
		core.released = true
		c.live--
		if d, ok := n.(*DelayNode); ok {
			c.removeDelay(d)
		}
	}
}

func (c *Context) removeDelay(d *DelayNode) {
	for i, x := range c.delays {
		if x == d {
			c.delays = append(c.delays[:i], c.delays[i+1:]...)
			return
		}
	}
}

// captureDelays feeds every delay line its input for frame f. Inputs are
// all read before any line is written so delay-to-delay paths stay aligned.
func (c *Context) captureDelays(f int64, t float64) {
	for _, d := range c.delays {
		d.pending = d.input(f, t)
	}
	for _, d := range c.delays {
		d.write(d.pending)
	}
}
