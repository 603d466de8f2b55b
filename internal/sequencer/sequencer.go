package sequencer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cbegin/metrosynth-go/internal/graph"
	"github.com/cbegin/metrosynth-go/internal/notation"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

// VoiceFactory builds the instrument that plays one note.
type VoiceFactory func(n notation.Note) (voice.SignalSource, error)

// NoteVoices returns a factory of notation voices sharing tmpl. tmpl.Note is
// replaced by each note.
func NoteVoices(ctx *graph.Context, tmpl voice.NoteConfig, opts ...voice.Option) VoiceFactory {
	return func(n notation.Note) (voice.SignalSource, error) {
		cfg := tmpl
		cfg.Note = n
		return voice.NewNote(ctx, cfg, opts...)
	}
}

// Schedule triggers one voice per note, each starting when the previous
// note's duration has elapsed after at. It returns the end of the last
// note. On error the voices already triggered keep playing and are
// returned with it.
func Schedule(factory VoiceFactory, notes []notation.Note, at float64) (float64, []*voice.Voice, error) {
	voices := make([]*voice.Voice, 0, len(notes))
	t := at
	for i, n := range notes {
		src, err := factory(n)
		if err == nil {
			var v *voice.Voice
			if v, err = src.Trigger(t); err == nil {
				voices = append(voices, v)
			}
		}
		if err != nil {
			return t, voices, fmt.Errorf("note %d: %w", i, err)
		}
		t += n.Duration
	}
	return t, voices, nil
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

// DefaultLookahead is how far before the end of a pass the next one is
// scheduled when looping.
const DefaultLookahead = 0.1

type Options struct {
	Loop      bool
	OnEvent   func(EventKind)
	Lookahead float64 // seconds; 0 uses DefaultLookahead
}

// Clock reports the render time voices are scheduled against.
type Clock interface {
	CurrentTime() float64
}

// Sequencer plays a compiled note sequence, optionally looping it. Update
// must be called regularly (once per frame) to re-schedule passes and fire
// events.
type Sequencer struct {
	mu        sync.Mutex
	clock     Clock
	factory   VoiceFactory
	notes     []notation.Note
	loop      bool
	onEvent   func(EventKind)
	lookahead float64

	playing bool
	passEnd float64
	passes  int
	voices  []*voice.Voice
}

var ErrEmptySequence = errors.New("sequence has no notes")

func New(clock Clock, factory VoiceFactory, notes []notation.Note) (*Sequencer, error) {
	return NewWithOptions(clock, factory, notes, Options{})
}

func NewWithOptions(clock Clock, factory VoiceFactory, notes []notation.Note, opts Options) (*Sequencer, error) {
	if len(notes) == 0 {
		return nil, ErrEmptySequence
	}
	lookahead := opts.Lookahead
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Sequencer{
		clock:     clock,
		factory:   factory,
		notes:     append([]notation.Note(nil), notes...),
		loop:      opts.Loop,
		onEvent:   opts.OnEvent,
		lookahead: lookahead,
	}, nil
}

// Start schedules the first pass at at.
func (s *Sequencer) Start(at float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.passes = 0
	return s.schedulePass(at)
}

// Stop prevents further passes. Notes already scheduled still play.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *Sequencer) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Passes returns how many passes have been scheduled since Start.
func (s *Sequencer) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}

// End returns when the last scheduled pass finishes.
func (s *Sequencer) End() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passEnd
}

// Update schedules every pass whose predecessor is about to end when
// looping, firing one event per pass, or reports the end of playback once.
func (s *Sequencer) Update() error {
	now := s.clock.CurrentTime()
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return nil
	}
	var events []EventKind
	var err error
	switch {
	case s.loop:
		for s.playing && now >= s.passEnd-s.lookahead {
			prev := s.passEnd
			events = append(events, EventLoopCompleted)
			if err = s.schedulePass(s.passEnd); err != nil || s.passEnd <= prev {
				break
			}
		}
	case now >= s.passEnd:
		events = append(events, EventPlaybackEnded)
		s.playing = false
	}
	cb := s.onEvent
	s.mu.Unlock()
	if cb != nil {
		for _, e := range events {
			cb(e)
		}
	}
	return err
}

// Analyser returns the analyser of the note sounding now, else of the note
// that started last.
func (s *Sequencer) Analyser() *graph.AnalyserNode {
	now := s.clock.CurrentTime()
	s.mu.Lock()
	defer s.mu.Unlock()
	var started *voice.Voice
	for i := len(s.voices) - 1; i >= 0; i-- {
		v := s.voices[i]
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
	if started == nil {
		return nil
	}
	return started.Analyser
}

func (s *Sequencer) schedulePass(at float64) error {
	end, voices, err := Schedule(s.factory, s.notes, at)
	now := s.clock.CurrentTime()
	kept := s.voices[:0]
	for _, v := range s.voices {
		if v.End > now {
			kept = append(kept, v)
		}
	}
	s.voices = append(kept, voices...)
	s.passEnd = end
	s.passes++
	if err != nil {
		s.playing = false
	}
	return err
}
