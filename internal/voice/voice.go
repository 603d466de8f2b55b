// Package voice builds the per-trigger signal graphs of every instrument.
// A trigger wires a fresh graph, schedules all automation relative to the
// trigger time and hands the nodes back to the context for teardown once
// the voice has finished sounding.
package voice

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cbegin/metrosynth-go/internal/envelope"
	"github.com/cbegin/metrosynth-go/internal/graph"
)

var ErrInvalidConfig = errors.New("invalid voice config")

// DefaultAnalyserSize matches the usual analyser FFT size of browser audio
// graphs.
const DefaultAnalyserSize = 2048

type Kind int

const (
	KindKick Kind = iota
	KindSnare
	KindPad
	KindPulse
	KindNote
)

func (k Kind) String() string {
	switch k {
	case KindKick:
		return "kick"
	case KindSnare:
		return "snare"
	case KindPad:
		return "pad"
	case KindPulse:
		return "pulse"
	case KindNote:
		return "note"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a name such as "kick" to its Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "kick":
		return KindKick, nil
	case "snare":
		return KindSnare, nil
	case "pad", "saw", "sawtooth":
		return KindPad, nil
	case "pulse":
		return KindPulse, nil
	case "note":
		return KindNote, nil
	default:
		return 0, fmt.Errorf("%w: unknown voice kind %q", ErrInvalidConfig, name)
	}
}

// SignalSource is an instrument that can be triggered any number of times.
// Every trigger builds a new graph.
type SignalSource interface {
	Kind() Kind
	Trigger(at float64) (*Voice, error)
	// Analyser returns the tap of the voice currently sounding, else of the
	// one that started last, or nil before the first trigger.
	Analyser() *graph.AnalyserNode
}

// Voice is one triggered instance. Stop is when its sources stop; End is
// when its nodes are torn down (after any echo tail).
type Voice struct {
	ID       uint64
	Kind     Kind
	Start    float64
	Stop     float64
	End      float64
	Analyser *graph.AnalyserNode
	Envelope *graph.Param // output gain automation
}

var nextID atomic.Uint64

type Option func(*options)

type options struct {
	analyserSize int
	noise        *graph.Buffer
}

// WithAnalyserSize sets the FFT size of each voice's analyser.
func WithAnalyserSize(n int) Option {
	return func(o *options) {
		o.analyserSize = n
	}
}

// WithNoise shares a noise table between snares.
func WithNoise(buf *graph.Buffer) Option {
	return func(o *options) {
		o.noise = buf
	}
}

func buildOptions(opts []Option) options {
	o := options{analyserSize: DefaultAnalyserSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the instrument for kind. cfg must be the config type of that
// kind.
func New(ctx *graph.Context, kind Kind, cfg any, opts ...Option) (SignalSource, error) {
	mismatch := func() error {
		return fmt.Errorf("%w: %T is not a %s config", ErrInvalidConfig, cfg, kind)
	}
	switch kind {
	case KindKick:
		c, ok := cfg.(KickConfig)
		if !ok {
			return nil, mismatch()
		}
		return NewKick(ctx, c, opts...)
	case KindSnare:
		c, ok := cfg.(SnareConfig)
		if !ok {
			return nil, mismatch()
		}
		return NewSnare(ctx, c, opts...)
	case KindPad:
		c, ok := cfg.(PadConfig)
		if !ok {
			return nil, mismatch()
		}
		return NewPad(ctx, c, opts...)
	case KindPulse:
		c, ok := cfg.(PulseConfig)
		if !ok {
			return nil, mismatch()
		}
		return NewPulse(ctx, c, opts...)
	case KindNote:
		c, ok := cfg.(NoteConfig)
		if !ok {
			return nil, mismatch()
		}
		return NewNote(ctx, c, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown kind %s", ErrInvalidConfig, kind)
	}
}

// base carries what every instrument shares: its context, options and the
// record of recent voices behind Analyser.
type base struct {
	ctx  *graph.Context
	kind Kind
	opts options

	mu     sync.Mutex
	recent []*Voice
}

func (b *base) init(ctx *graph.Context, kind Kind, opts []Option) error {
	if ctx == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidConfig)
	}
	b.ctx = ctx
	b.kind = kind
	b.opts = buildOptions(opts)
	return nil
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) Analyser() *graph.AnalyserNode {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.recent) == 0 {
		return nil
	}
	now := b.ctx.CurrentTime()
	var started *Voice
	for i := len(b.recent) - 1; i >= 0; i-- {
		v := b.recent[i]
		if now < v.Start {
			continue
		}
		if now < v.End {
			return v.Analyser
		}
		if started == nil {
			started = v
		}
	}
	if started != nil {
		return started.Analyser
	}
	return b.recent[len(b.recent)-1].Analyser
}

// record keeps v and forgets voices that have already ended, except the
// previous latest.
func (b *base) record(v *Voice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.ctx.CurrentTime()
	kept := b.recent[:0]
	for i, old := range b.recent {
		if old.End > now || i == len(b.recent)-1 {
			kept = append(kept, old)
		}
	}
	b.recent = append(kept, v)
}

type source interface {
	graph.Node
	Start(at float64) error
	Stop(at float64) error
}

// builder wires one voice. The first error sticks; later calls are no-ops
// and finish releases whatever was already allocated.
type builder struct {
	ctx   *graph.Context
	nodes []graph.Node
	srcs  []source
	err   error
}

func newBuilder(ctx *graph.Context) *builder {
	return &builder{ctx: ctx}
}

func (b *builder) track(n graph.Node, err error) bool {
	if err != nil {
		b.err = err
		return false
	}
	b.nodes = append(b.nodes, n)
	return true
}

func (b *builder) gain(v float64) *graph.GainNode {
	if b.err != nil {
		return nil
	}
	g, err := b.ctx.NewGain(v)
	if !b.track(g, err) {
		return nil
	}
	return g
}

func (b *builder) oscillator(typ graph.OscillatorType, freq float64) *graph.OscillatorNode {
	if b.err != nil {
		return nil
	}
	o, err := b.ctx.NewOscillator(typ, freq)
	if !b.track(o, err) {
		return nil
	}
	b.srcs = append(b.srcs, o)
	return o
}

func (b *builder) constant(offset float64) *graph.ConstantSourceNode {
	if b.err != nil {
		return nil
	}
	c, err := b.ctx.NewConstantSource(offset)
	if !b.track(c, err) {
		return nil
	}
	b.srcs = append(b.srcs, c)
	return c
}

func (b *builder) bufferSource(buf *graph.Buffer) *graph.BufferSourceNode {
	if b.err != nil {
		return nil
	}
	s, err := b.ctx.NewBufferSource(buf)
	if !b.track(s, err) {
		return nil
	}
	b.srcs = append(b.srcs, s)
	return s
}

func (b *builder) filter(typ graph.FilterType, freq float64) *graph.BiquadFilterNode {
	if b.err != nil {
		return nil
	}
	f, err := b.ctx.NewBiquadFilter(typ, freq)
	if !b.track(f, err) {
		return nil
	}
	return f
}

func (b *builder) shaper(curve []float64) *graph.WaveShaperNode {
	if b.err != nil {
		return nil
	}
	w, err := b.ctx.NewWaveShaper(curve)
	if !b.track(w, err) {
		return nil
	}
	return w
}

func (b *builder) delay(delayTime, maxDelay float64) *graph.DelayNode {
	if b.err != nil {
		return nil
	}
	d, err := b.ctx.NewDelay(delayTime, maxDelay)
	if !b.track(d, err) {
		return nil
	}
	return d
}

func (b *builder) analyser(size int) *graph.AnalyserNode {
	if b.err != nil {
		return nil
	}
	a, err := b.ctx.NewAnalyser(size)
	if !b.track(a, err) {
		return nil
	}
	return a
}

func (b *builder) connect(src, dst graph.Node) {
	if b.err != nil {
		return
	}
	b.err = src.Connect(dst)
}

func (b *builder) automate(p *graph.Param, pts []envelope.Point, err error) {
	if b.err != nil {
		return
	}
	if err != nil {
		b.err = err
		return
	}
	b.err = envelope.Apply(p, pts)
}

// fail releases every node built so far.
func (b *builder) fail(kind Kind, at float64) (*Voice, error) {
	b.ctx.Release(b.nodes...)
	return nil, fmt.Errorf("trigger %s at %.3f: %w", kind, at, b.err)
}

// finish starts every source at start, stops them at stop, connects out to
// the destination and schedules teardown at end. On error every node built
// so far is released.
func (b *builder) finish(kind Kind, env *graph.GainNode, out *graph.AnalyserNode, start, stop, end float64) (*Voice, error) {
	for _, s := range b.srcs {
		if b.err != nil {
			break
		}
		if b.err = s.Start(start); b.err == nil {
			b.err = s.Stop(stop)
		}
	}
	if b.err == nil {
		b.err = out.Connect(b.ctx.Destination())
	}
	if b.err != nil {
		return b.fail(kind, start)
	}
	b.ctx.Retire(end, b.nodes...)
	return &Voice{
		ID:       nextID.Add(1),
		Kind:     kind,
		Start:    start,
		Stop:     stop,
		End:      end,
		Analyser: out,
		Envelope: env.Gain,
	}, nil
}
