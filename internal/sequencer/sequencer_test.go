package sequencer

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/metrosynth-go/internal/graph"
	"github.com/cbegin/metrosynth-go/internal/notation"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

func newContext(t *testing.T, maxNodes int) *graph.Context {
	t.Helper()
	ctx, err := graph.NewContext(graph.Config{SampleRate: 8000, MaxNodes: maxNodes, MasterGain: 1})
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return ctx
}

func compile(t *testing.T, src string) []notation.Note {
	t.Helper()
	notes, err := notation.Compile(src)
	if err != nil {
		t.Fatalf("compile %q: %v", src, err)
	}
	return notes
}

func TestScheduleUsesCumulativeOffsets(t *testing.T) {
	ctx := newContext(t, 0)
	notes := compile(t, "180 C31 E3h G31")
	factory := NoteVoices(ctx, voice.DefaultNoteConfig(notation.Note{}), voice.WithAnalyserSize(64))
	end, voices, err := Schedule(factory, notes, 1)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	starts := []float64{1, 1 + 1.0/3, 1 + 1.0/3 + 1.0/6}
	if len(voices) != len(starts) {
		t.Fatalf("expected %d voices, got %d", len(starts), len(voices))
	}
	for i, want := range starts {
		if math.Abs(voices[i].Start-want) > 1e-9 {
			t.Fatalf("voice %d starts at %f, want %f", i, voices[i].Start, want)
		}
		if math.Abs(voices[i].Stop-(want+notes[i].Duration)) > 1e-9 {
			t.Fatalf("voice %d stops at %f", i, voices[i].Stop)
		}
	}
	if math.Abs(end-(1+5.0/6)) > 1e-9 {
		t.Fatalf("end = %f, want %f", end, 1+5.0/6)
	}
	ctx.Render(end + 0.01)
	if ctx.LiveNodes() != 0 {
		t.Fatalf("live nodes = %d after the sequence, want 0", ctx.LiveNodes())
	}
}

func TestScheduleStopsAtFirstFailure(t *testing.T) {
	// each note voice needs 4 nodes
	ctx := newContext(t, 6)
	notes := compile(t, "120 C4q D4q")
	factory := NoteVoices(ctx, voice.DefaultNoteConfig(notation.Note{}), voice.WithAnalyserSize(64))
	_, voices, err := Schedule(factory, notes, 0)
	if !errors.Is(err, graph.ErrGraphConstruction) {
		t.Fatalf("expected ErrGraphConstruction, got %v", err)
	}
	if len(voices) != 1 {
		t.Fatalf("expected the first voice to survive, got %d", len(voices))
	}
}

func TestSequencerLoopsWhenEnabled(t *testing.T) {
	ctx := newContext(t, 0)
	notes := compile(t, "120 A4q")
	var events []EventKind
	seq, err := NewWithOptions(ctx, NoteVoices(ctx, voice.DefaultNoteConfig(notation.Note{}), voice.WithAnalyserSize(64)), notes,
		Options{Loop: true, OnEvent: func(e EventKind) { events = append(events, e) }})
	if err != nil {
		t.Fatal(err)
	}
	if err := seq.Start(0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 60; i++ {
		ctx.Render(1.0 / 60)
		if err := seq.Update(); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if seq.Passes() < 4 {
		t.Fatalf("expected looping passes, got %d", seq.Passes())
	}
	if len(events) != seq.Passes()-1 || events[0] != EventLoopCompleted {
		t.Fatalf("unexpected events %v for %d passes", events, seq.Passes())
	}
	if seq.Analyser() == nil {
		t.Fatalf("expected an analyser while looping")
	}
	seq.Stop()
	if seq.Playing() {
		t.Fatalf("expected sequencer to stop")
	}
}

func TestSequencerCatchesUpShortPasses(t *testing.T) {
	ctx := newContext(t, 0)
	notes := compile(t, "999 C4x")
	completed := 0
	seq, err := NewWithOptions(ctx, NoteVoices(ctx, voice.DefaultNoteConfig(notation.Note{}), voice.WithAnalyserSize(64)), notes,
		Options{Loop: true, OnEvent: func(e EventKind) {
			if e == EventLoopCompleted {
				completed++
			}
		}})
	if err != nil {
		t.Fatal(err)
	}
	if err := seq.Start(0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		ctx.Render(1.0 / 60)
		before := seq.Passes()
		if err := seq.Update(); err != nil {
			t.Fatalf("update: %v", err)
		}
		if now := ctx.CurrentTime(); seq.End() <= now {
			t.Fatalf("frame %d: pass ends at %f, behind the clock at %f", i, seq.End(), now)
		}
		if seq.Passes()-before < 2 {
			t.Fatalf("frame %d: scheduled %d passes, want several per frame", i, seq.Passes()-before)
		}
	}
	if completed != seq.Passes()-1 {
		t.Fatalf("%d loop events for %d passes", completed, seq.Passes())
	}
}

func TestSequencerEndsOnce(t *testing.T) {
	ctx := newContext(t, 0)
	notes := compile(t, "240 C4q E4q")
	ended := 0
	seq, _ := NewWithOptions(ctx, NoteVoices(ctx, voice.DefaultNoteConfig(notation.Note{}), voice.WithAnalyserSize(64)), notes,
		Options{OnEvent: func(e EventKind) {
			if e == EventPlaybackEnded {
				ended++
			}
		}})
	if err := seq.Start(0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		ctx.Render(1.0 / 60)
		_ = seq.Update()
	}
	if ended != 1 || seq.Playing() || seq.Passes() != 1 {
		t.Fatalf("ended=%d playing=%v passes=%d", ended, seq.Playing(), seq.Passes())
	}
}

func TestNewRejectsEmptySequence(t *testing.T) {
	ctx := newContext(t, 0)
	notes := compile(t, "120")
	if _, err := New(ctx, NoteVoices(ctx, voice.DefaultNoteConfig(notation.Note{})), notes); !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}
}
