package metrosynth

import (
	"errors"
	"testing"
	"time"

	"github.com/cbegin/metrosynth-go/internal/config"
	"github.com/cbegin/metrosynth-go/internal/effects"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.SampleRate = 8000
	cfg.Backend = "none"
	return cfg
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(append([]Option{WithConfig(testConfig())}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestEngineMasterVolumeRuntimeAPI(t *testing.T) {
	e := newTestEngine(t)
	if got := e.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	e.SetMasterVolume(0.5)
	if got := e.MasterVolume(); got != 0.5 {
		t.Fatalf("master volume = %v, want 0.5", got)
	}
	if got := e.Context().MasterGain(); got != 0.4 {
		t.Fatalf("context gain = %v, want 0.4", got)
	}
	e.SetMasterVolume(-2)
	if got := e.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestEngineEQBand(t *testing.T) {
	e := newTestEngine(t)
	if err := e.SetEQBand(2, 0.5); err != nil {
		t.Fatalf("set band: %v", err)
	}
	if got := e.EQBand(2); got != 0.5 {
		t.Fatalf("band 2 gain = %v, want 0.5", got)
	}
	if err := e.SetEQBand(effects.Bands, 1); !errors.Is(err, ErrInvalidBand) {
		t.Fatalf("expected ErrInvalidBand, got %v", err)
	}
}

func TestEngineBuildsMasterChain(t *testing.T) {
	cfg := testConfig()
	cfg.Effects = []effects.Spec{{Type: "compressor", Params: []float64{-12, 4, 5, 100, 0}}}
	e, err := NewEngine(WithConfig(cfg))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if e.Effects() != 2 {
		t.Fatalf("master effects = %d, want compressor and eq", e.Effects())
	}
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	if _, err := NewEngine(WithConfig(testConfig()), WithBackend("alsa")); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unknown backend, got %v", err)
	}
	cfg := testConfig()
	cfg.SampleRate = 0
	if _, err := NewEngine(WithConfig(cfg)); !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero sample rate, got %v", err)
	}
}

func TestEngineNewVoice(t *testing.T) {
	e := newTestEngine(t)
	for _, kind := range []voice.Kind{voice.KindKick, voice.KindSnare, voice.KindPad, voice.KindPulse} {
		src, err := e.NewVoice(kind)
		if err != nil {
			t.Fatalf("new %s: %v", kind, err)
		}
		if src.Kind() != kind {
			t.Fatalf("kind = %s, want %s", src.Kind(), kind)
		}
	}
	// a note voice needs a note to play
	if _, err := e.NewVoice(voice.KindNote); !errors.Is(err, voice.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for note without pitch, got %v", err)
	}
}

func TestEnginePlayNotationEnds(t *testing.T) {
	e := newTestEngine(t)
	events := e.Watch()
	if err := e.PlayNotation("240 C4x D4x", false); err != nil {
		t.Fatalf("play: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Kind != EventPlaybackEnded {
			t.Fatalf("event = %d, want EventPlaybackEnded", ev.Kind)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("playback did not end")
	}
	e.Wait()
	if e.Sequence() != nil {
		t.Fatal("sequence still set after it ended")
	}
}

func TestEngineStopReleasesWait(t *testing.T) {
	e := newTestEngine(t)
	if err := e.PlayNotation("120 C4q E4q", true); err != nil {
		t.Fatalf("play: %v", err)
	}
	if !e.Playing() {
		t.Fatal("output not playing")
	}
	waited := make(chan struct{})
	go func() {
		e.Wait()
		close(waited)
	}()
	if err := e.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	select {
	case <-waited:
	case <-time.After(3 * time.Second):
		t.Fatal("Wait did not return after Stop")
	}
	if e.Playing() {
		t.Fatal("output still playing after Stop")
	}
}

func TestEnginePlayNotationRejectsBadNotation(t *testing.T) {
	e := newTestEngine(t)
	if err := e.PlayNotation("120 H4q", false); err == nil {
		t.Fatal("expected error for unknown pitch")
	}
	if e.Playing() {
		t.Fatal("output opened for invalid notation")
	}
}
