// Package metrosynth is a procedural synthesizer: percussion and melodic
// voices assembled as audio graphs at trigger time, a note notation
// compiler, a frame-driven metronome and waveform taps for drawing.
package metrosynth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cbegin/metrosynth-go/internal/audio"
	"github.com/cbegin/metrosynth-go/internal/config"
	"github.com/cbegin/metrosynth-go/internal/effects"
	"github.com/cbegin/metrosynth-go/internal/graph"
	"github.com/cbegin/metrosynth-go/internal/notation"
	"github.com/cbegin/metrosynth-go/internal/scene"
	"github.com/cbegin/metrosynth-go/internal/sequencer"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

// PlaybackEvent carries sequence events from Watch().
type PlaybackEvent struct {
	Kind   int // EventLoopCompleted or EventPlaybackEnded
	Passes int
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
)

// leadTime is how far ahead of the render clock a sequence starts, so the
// first note is not clipped by the output buffer.
const leadTime = 0.05

const followInterval = 10 * time.Millisecond

type Option func(*engineConfig)

type engineConfig struct {
	cfg       config.Config
	logger    *slog.Logger
	backend   string
	maxNodes  int
	sampleTap func([]float32)
}

func WithConfig(cfg config.Config) Option {
	return func(c *engineConfig) {
		c.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithBackend overrides the configured audio backend (ebiten, oto or none).
func WithBackend(name string) Option {
	return func(c *engineConfig) {
		c.backend = name
	}
}

// WithMaxNodes overrides the configured node budget. 0 is unlimited.
func WithMaxNodes(n int) Option {
	return func(c *engineConfig) {
		c.maxNodes = n
	}
}

// WithSampleTap installs a callback invoked with each rendered stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(c *engineConfig) {
		c.sampleTap = tap
	}
}

// Engine owns one render context, its master bus and the audio output.
type Engine struct {
	mu       sync.Mutex
	cfg      config.Config
	log      *slog.Logger
	backend  audio.Backend
	ctx      *graph.Context
	chain    *effects.Chain
	masterEQ *effects.EQ5Band
	source   *tappedSource
	out      audio.Output
	volume   float64

	seq       *sequencer.Sequencer
	stopSeq   chan struct{}
	done      chan struct{}
	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

// tappedSource renders the context and hands each buffer to the tap.
type tappedSource struct {
	ctx *graph.Context
	tap func([]float32)
}

func (s *tappedSource) Process(dst []float32) {
	s.ctx.Process(dst)
	if s.tap != nil {
		s.tap(dst)
	}
}

func NewEngine(opts ...Option) (*Engine, error) {
	ec := engineConfig{cfg: config.Default(), maxNodes: -1}
	for _, opt := range opts {
		opt(&ec)
	}
	cfg := ec.cfg
	if ec.backend != "" {
		cfg.Backend = ec.backend
	}
	if ec.maxNodes >= 0 {
		cfg.MaxNodes = ec.maxNodes
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := audio.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	logger := ec.logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, err := graph.NewContext(graph.Config{
		SampleRate: cfg.SampleRate,
		MaxNodes:   cfg.MaxNodes,
		MasterGain: cfg.MasterGain,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	fx, err := effects.Build(cfg.Effects, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	eq := effects.NewEQ5Band(cfg.SampleRate)
	chain := effects.NewChain(fx...)
	chain.Add(eq)
	ctx.SetMaster(chain)

	logger.Debug("engine ready", "sample_rate", cfg.SampleRate, "backend", backend,
		"max_nodes", cfg.MaxNodes, "effects", len(fx))
	return &Engine{
		cfg:      cfg,
		log:      logger,
		backend:  backend,
		ctx:      ctx,
		chain:    chain,
		masterEQ: eq,
		source:   &tappedSource{ctx: ctx, tap: ec.sampleTap},
		volume:   1,
	}, nil
}

// Compile parses note notation into a playable sequence.
func Compile(src string) ([]notation.Note, error) {
	return notation.Compile(src)
}

func (e *Engine) Config() config.Config { return e.cfg }

// Context returns the render context voices are built on.
func (e *Engine) Context() *graph.Context { return e.ctx }

// NewVoice builds an instrument of kind from the configured voice settings.
func (e *Engine) NewVoice(kind voice.Kind) (voice.SignalSource, error) {
	var cfg any
	switch kind {
	case voice.KindKick:
		cfg = e.cfg.Voices.Kick
	case voice.KindSnare:
		cfg = e.cfg.Voices.Snare
	case voice.KindPad:
		cfg = e.cfg.Voices.Pad
	case voice.KindPulse:
		cfg = e.cfg.Voices.Pulse
	case voice.KindNote:
		return nil, fmt.Errorf("%w: note voices are built from notation, use PlayNotation", voice.ErrInvalidConfig)
	}
	return voice.New(e.ctx, kind, cfg, voice.WithAnalyserSize(e.cfg.AnalyserSize))
}

// Scene builds the metronome scene on this engine's context.
func (e *Engine) Scene() (*scene.Scene, error) {
	sc := scene.DefaultConfig(e.ctx)
	sc.SnareEvery = e.cfg.Intervals.Snare
	sc.KickEvery = e.cfg.Intervals.Kick
	sc.Kick = e.cfg.Voices.Kick
	sc.Snare = e.cfg.Voices.Snare
	sc.Note = e.cfg.Voices.Note
	sc.AnalyserSize = e.cfg.AnalyserSize
	sc.Logger = e.log
	if e.cfg.Melody != "" {
		notes, err := notation.Compile(e.cfg.Melody)
		if err != nil {
			return nil, err
		}
		sc.Melody = notes
	}
	return scene.New(sc)
}

// Start opens the audio output if needed and resumes rendering.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() error {
	if e.out == nil {
		out, err := audio.Open(e.backend, e.cfg.SampleRate, e.source)
		if err != nil {
			return fmt.Errorf("open %s output: %w", e.backend, err)
		}
		e.out = out
		e.log.Info("audio output opened", "backend", e.backend)
	}
	e.out.Play()
	return nil
}

// PlayVoice triggers one voice of kind now, starting the output if needed.
func (e *Engine) PlayVoice(kind voice.Kind) (*voice.Voice, error) {
	src, err := e.NewVoice(kind)
	if err != nil {
		return nil, err
	}
	if err := e.Start(); err != nil {
		return nil, err
	}
	return src.Trigger(e.ctx.CurrentTime() + leadTime)
}

// PlayNotation compiles src and plays it with the configured note voice,
// replacing any sequence already playing. Use Wait or Watch to follow it.
func (e *Engine) PlayNotation(src string, loop bool) error {
	notes, err := notation.Compile(src)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	e.stopSequenceLocked()
	done := make(chan struct{})
	stop := make(chan struct{})

	var seq *sequencer.Sequencer
	factory := sequencer.NoteVoices(e.ctx, e.cfg.Voices.Note, voice.WithAnalyserSize(e.cfg.AnalyserSize))
	seq, err = sequencer.NewWithOptions(e.ctx, factory, notes, sequencer.Options{
		Loop: loop,
		OnEvent: func(kind sequencer.EventKind) {
			switch kind {
			case sequencer.EventLoopCompleted:
				e.sendEvent(PlaybackEvent{Kind: EventLoopCompleted, Passes: seq.Passes()})
			case sequencer.EventPlaybackEnded:
				e.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded, Passes: seq.Passes()})
			}
		},
	})
	if err != nil {
		return err
	}
	if err := e.startLocked(); err != nil {
		return err
	}
	if err := seq.Start(e.ctx.CurrentTime() + leadTime); err != nil {
		return err
	}
	e.seq, e.stopSeq, e.done = seq, stop, done
	go e.follow(seq, stop, done)
	return nil
}

// follow keeps the sequencer scheduled until it ends or is replaced.
func (e *Engine) follow(seq *sequencer.Sequencer, stop <-chan struct{}, done chan struct{}) {
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := seq.Update(); err != nil {
				e.log.Warn("sequence pass failed", "err", err)
			}
			if !seq.Playing() {
				e.mu.Lock()
				if e.done == done {
					e.seq, e.stopSeq, e.done = nil, nil, nil
					close(done)
				}
				e.mu.Unlock()
				return
			}
		}
	}
}

func (e *Engine) stopSequenceLocked() {
	if e.seq == nil {
		return
	}
	e.seq.Stop()
	close(e.stopSeq)
	close(e.done)
	e.seq, e.stopSeq, e.done = nil, nil, nil
}

// Sequence returns the sequence playing now, or nil.
func (e *Engine) Sequence() *sequencer.Sequencer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

func (e *Engine) sendEvent(ev PlaybackEvent) {
	e.eventChMu.Lock()
	ch := e.eventCh
	e.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.out != nil {
		e.out.Pause()
	}
}

func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.out != nil {
		e.out.Play()
	}
}

// Stop ends any sequence and closes the output. Voices already scheduled
// are torn down as the context renders past them.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopSequenceLocked()
	if e.out == nil {
		return nil
	}
	err := e.out.Stop()
	e.out = nil
	return err
}

// Playing reports whether the output is open and playing.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.out != nil && e.out.IsPlaying()
}

// Wait blocks until the current sequence ends. When it loops, Wait blocks
// until Stop or another PlayNotation replaces it. Wait returns immediately
// if no sequence is active.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives sequence events. The channel is
// buffered (cap 8). Only the most recent Watch() channel receives events;
// call Watch before PlayNotation.
func (e *Engine) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	e.eventChMu.Lock()
	e.eventCh = ch
	e.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets runtime volume scalar. 1.0 is the configured gain.
func (e *Engine) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = volume
	e.ctx.SetMasterGain(e.cfg.MasterGain * volume)
}

func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

var ErrInvalidBand = errors.New("eq band out of range")

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band frequencies: 0=<200Hz, 1=200-800Hz, 2=800-2.5kHz, 3=2.5-8kHz, 4=>8kHz.
// This takes effect immediately on the audio thread.
func (e *Engine) SetEQBand(band int, gain float64) error {
	if band < 0 || band >= effects.Bands {
		return fmt.Errorf("%w: %d", ErrInvalidBand, band)
	}
	e.masterEQ.SetGain(band, gain)
	return nil
}

// EQBand returns the current gain for a master EQ band (0-4).
func (e *Engine) EQBand(band int) float64 {
	return e.masterEQ.Gain(band)
}

// Effects returns the number of effects on the master bus, the EQ included.
func (e *Engine) Effects() int { return e.chain.Len() }
