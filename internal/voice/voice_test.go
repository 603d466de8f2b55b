package voice

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/metrosynth-go/internal/graph"
	"github.com/cbegin/metrosynth-go/internal/notation"
)

const testRate = 8000

func newContext(t *testing.T, maxNodes int) *graph.Context {
	t.Helper()
	ctx, err := graph.NewContext(graph.Config{SampleRate: testRate, MaxNodes: maxNodes, MasterGain: 1})
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	return ctx
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestKickSchedule(t *testing.T) {
	ctx := newContext(t, 0)
	k, err := NewKick(ctx, DefaultKickConfig(), WithAnalyserSize(256))
	if err != nil {
		t.Fatalf("new kick: %v", err)
	}
	v, err := k.Trigger(0)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if v.Kind != KindKick || v.Start != 0 || !near(v.Stop, 0.5) || v.End < v.Stop {
		t.Fatalf("unexpected voice timing %+v", v)
	}
	events := v.Envelope.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 gain events, got %d", len(events))
	}
	if events[0].Kind != graph.SetValue || events[0].Value != 1 {
		t.Fatalf("gain should start with set 1, got %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Kind != graph.ExponentialRamp || !near(last.Time, 0.5) || !near(last.Value, 0.001) {
		t.Fatalf("gain should end with exponential ramp to 0.001 at 0.5, got %+v", last)
	}
}

func TestKickPitchDrop(t *testing.T) {
	ctx := newContext(t, 0)
	cfg := DefaultKickConfig()
	cfg.StartFrequency = 160
	cfg.EndFrequency = 40
	k, err := NewKick(ctx, cfg, WithAnalyserSize(256))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.Trigger(0.1); err != nil {
		t.Fatal(err)
	}
	// 3 nodes: oscillator, gain, analyser
	if ctx.LiveNodes() != 3 {
		t.Fatalf("live nodes = %d, want 3", ctx.LiveNodes())
	}
	out := ctx.Render(0.7)
	var peak float32
	for i := int(0.1 * testRate); i < int(0.2*testRate); i++ {
		if x := out[i*2]; x > peak {
			peak = x
		}
	}
	if peak < 0.5 {
		t.Fatalf("expected audible kick after trigger, peak %f", peak)
	}
	if out[int(0.05*testRate)*2] != 0 {
		t.Fatalf("expected silence before trigger time")
	}
}

func TestVoicesTearDownAfterEnd(t *testing.T) {
	ctx := newContext(t, 0)
	noise := NewNoise(testRate, 1)
	note, _ := notation.Compile("120 A4q")
	sources := []SignalSource{}
	for _, build := range []func() (SignalSource, error){
		func() (SignalSource, error) { return NewKick(ctx, DefaultKickConfig(), WithAnalyserSize(64)) },
		func() (SignalSource, error) {
			return NewSnare(ctx, DefaultSnareConfig(), WithAnalyserSize(64), WithNoise(noise))
		},
		func() (SignalSource, error) { return NewPad(ctx, DefaultPadConfig(), WithAnalyserSize(64)) },
		func() (SignalSource, error) { return NewPulse(ctx, DefaultPulseConfig(), WithAnalyserSize(64)) },
		func() (SignalSource, error) { return NewNote(ctx, DefaultNoteConfig(note[0]), WithAnalyserSize(64)) },
	} {
		src, err := build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		sources = append(sources, src)
	}
	var latest float64
	for _, src := range sources {
		v, err := src.Trigger(0)
		if err != nil {
			t.Fatalf("trigger %s: %v", src.Kind(), err)
		}
		latest = math.Max(latest, v.End)
	}
	if ctx.LiveNodes() == 0 {
		t.Fatalf("expected live nodes after triggering")
	}
	ctx.Render(latest + 0.01)
	if ctx.LiveNodes() != 0 {
		t.Fatalf("live nodes = %d after every voice ended, want 0", ctx.LiveNodes())
	}
	if ctx.Destination().Inputs() != 0 {
		t.Fatalf("destination still has %d inputs", ctx.Destination().Inputs())
	}
}

func TestAnalyserFollowsSoundingVoice(t *testing.T) {
	ctx := newContext(t, 0)
	k, _ := NewKick(ctx, DefaultKickConfig(), WithAnalyserSize(64))
	if k.Analyser() != nil {
		t.Fatalf("expected nil analyser before the first trigger")
	}
	first, _ := k.Trigger(0)
	second, _ := k.Trigger(1)
	if k.Analyser() != first.Analyser {
		t.Fatalf("expected the first voice's analyser while it sounds")
	}
	ctx.Render(0.25)
	data := make([]byte, first.Analyser.FrequencyBinCount())
	k.Analyser().GetByteTimeDomainData(data)
	moving := false
	for _, b := range data {
		if b != 128 {
			moving = true
		}
	}
	if !moving {
		t.Fatalf("expected waveform data in the analyser")
	}
	ctx.Render(0.5)
	if k.Analyser() != first.Analyser {
		t.Fatalf("expected the latest ended voice's analyser between triggers")
	}
	ctx.Render(0.5)
	if k.Analyser() != second.Analyser {
		t.Fatalf("expected the second voice's analyser once it sounds")
	}
}

func TestSnareSharesNoise(t *testing.T) {
	ctx := newContext(t, 0)
	noise := NewNoise(testRate, 7)
	if noise.Len() != testRate {
		t.Fatalf("noise length = %d, want %d", noise.Len(), testRate)
	}
	for i := 0; i < noise.Len(); i++ {
		if x := noise.At(i); x < -1 || x >= 1 {
			t.Fatalf("noise sample %d out of range: %f", i, x)
		}
	}
	a, _ := NewSnare(ctx, DefaultSnareConfig(), WithNoise(noise))
	b, _ := NewSnare(ctx, DefaultSnareConfig(), WithNoise(noise))
	if a.Noise() != noise || b.Noise() != noise {
		t.Fatalf("expected both snares to share the noise table")
	}
	own, _ := NewSnare(ctx, DefaultSnareConfig())
	if own.Noise() == nil || own.Noise() == noise {
		t.Fatalf("expected a private noise table without WithNoise")
	}
	v, err := a.Trigger(0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !near(v.Stop, 0.7) {
		t.Fatalf("snare stop = %f, want 0.7", v.Stop)
	}
	last := v.Envelope.Events()[1]
	if !near(last.Time, 0.7) || !near(last.Value, 0.01) {
		t.Fatalf("unexpected snare decay %+v", last)
	}
}

func TestPadEnvelope(t *testing.T) {
	ctx := newContext(t, 0)
	cfg := DefaultPadConfig()
	cfg.Level = 1
	p, err := NewPad(ctx, cfg, WithAnalyserSize(64))
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Trigger(1)
	if err != nil {
		t.Fatal(err)
	}
	if !near(v.Stop, 4) {
		t.Fatalf("pad stop = %f, want 4", v.Stop)
	}
	// 12 oscillators, gain, analyser
	if ctx.LiveNodes() != 14 {
		t.Fatalf("live nodes = %d, want 14", ctx.LiveNodes())
	}
	want := []struct{ at, value float64 }{{1, 0}, {1.5, 1}, {2.5, 0.5}, {3, 0.2}, {4, 0.01}}
	got := v.Envelope.Events()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, w := range want {
		if !near(got[i].Time, w.at) || !near(got[i].Value, w.value) {
			t.Fatalf("event %d = %+v, want %v@%v", i, got[i], w.value, w.at)
		}
	}
}

func TestPulseEnvelopeAndEcho(t *testing.T) {
	ctx := newContext(t, 0)
	cfg := DefaultPulseConfig()
	p, err := NewPulse(ctx, cfg, WithAnalyserSize(64))
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Trigger(0)
	if err != nil {
		t.Fatal(err)
	}
	if !near(v.Stop, cfg.Attack+cfg.Decay+cfg.Release) {
		t.Fatalf("pulse stop = %f", v.Stop)
	}
	ev := v.Envelope.Events()
	if len(ev) != 4 {
		t.Fatalf("expected 4 adsr events, got %d", len(ev))
	}
	if !near(ev[1].Value, cfg.Volume) || !near(ev[2].Time, cfg.Attack+cfg.Decay) || !near(ev[2].Value, cfg.Sustain*cfg.Volume) {
		t.Fatalf("unexpected adsr %+v", ev)
	}
	// 2x(osc, bias, shaper), mix, lowpass, gain, analyser, dry, delay, wet, feedback
	withEcho := ctx.LiveNodes()
	if withEcho != 14 {
		t.Fatalf("live nodes with echo = %d, want 14", withEcho)
	}

	dry := newContext(t, 0)
	cfg.EchoMix = 0
	p, _ = NewPulse(dry, cfg, WithAnalyserSize(64))
	if _, err := p.Trigger(0); err != nil {
		t.Fatal(err)
	}
	if dry.LiveNodes() != 10 {
		t.Fatalf("live nodes without echo = %d, want 10", dry.LiveNodes())
	}
	out := dry.Render(0.3)
	var energy float64
	for i := 0; i < len(out); i += 2 {
		energy += math.Abs(float64(out[i]))
	}
	if energy == 0 {
		t.Fatalf("expected pulse output")
	}
}

func TestNoteVoiceFollowsDuration(t *testing.T) {
	ctx := newContext(t, 0)
	notes, err := notation.Compile("120 C4h")
	if err != nil {
		t.Fatal(err)
	}
	n, err := NewNote(ctx, DefaultNoteConfig(notes[0]), WithAnalyserSize(64))
	if err != nil {
		t.Fatal(err)
	}
	v, err := n.Trigger(2)
	if err != nil {
		t.Fatal(err)
	}
	if !near(v.Stop, 2.25) {
		t.Fatalf("note stop = %f, want 2.25", v.Stop)
	}
	ev := v.Envelope.Events()
	want := []float64{2, 2 + 0.02*0.25, 2 + 0.8*0.25, 2.25}
	if len(ev) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(ev))
	}
	for i, w := range want {
		if !near(ev[i].Time, w) {
			t.Fatalf("event %d at %f, want %f", i, ev[i].Time, w)
		}
	}
	if ev[2].Value != DefaultNoteConfig(notes[0]).Sustain {
		t.Fatalf("expected decay to settle on the sustain level, got %f", ev[2].Value)
	}
}

func TestInvalidConfigs(t *testing.T) {
	ctx := newContext(t, 0)
	tests := []struct {
		name string
		kind Kind
		cfg  any
	}{
		{"kick zero frequency", KindKick, KickConfig{Length: 0.5, EndGain: 0.001}},
		{"kick end gain 0", KindKick, KickConfig{StartFrequency: 150, Length: 0.5}},
		{"snare zero length", KindSnare, SnareConfig{Cutoff: 1000, EndGain: 0.01}},
		{"pad no stages", KindPad, PadConfig{BaseFrequency: 440, Partials: 12, Level: 1}},
		{"pad too many partials", KindPad, func() PadConfig { c := DefaultPadConfig(); c.Partials = 100; return c }()},
		{"pulse feedback 1", KindPulse, func() PulseConfig { c := DefaultPulseConfig(); c.FeedbackGain = 1; return c }()},
		{"pulse wide", KindPulse, func() PulseConfig { c := DefaultPulseConfig(); c.PulseWidth = 2; return c }()},
		{"note empty", KindNote, NoteConfig{}},
		{"wrong config type", KindKick, SnareConfig{}},
		{"unknown kind", Kind(42), KickConfig{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(ctx, tc.kind, tc.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
	if _, err := New(nil, KindKick, DefaultKickConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for nil context, got %v", err)
	}
}

func TestFactoryDispatchesOnKind(t *testing.T) {
	ctx := newContext(t, 0)
	notes, _ := notation.Compile("90 G3q")
	cases := map[Kind]any{
		KindKick:  DefaultKickConfig(),
		KindSnare: DefaultSnareConfig(),
		KindPad:   DefaultPadConfig(),
		KindPulse: DefaultPulseConfig(),
		KindNote:  DefaultNoteConfig(notes[0]),
	}
	for kind, cfg := range cases {
		src, err := New(ctx, kind, cfg)
		if err != nil {
			t.Fatalf("new %s: %v", kind, err)
		}
		if src.Kind() != kind {
			t.Fatalf("kind = %s, want %s", src.Kind(), kind)
		}
		parsed, err := ParseKind(kind.String())
		if err != nil || parsed != kind {
			t.Fatalf("parse %q = %v, %v", kind.String(), parsed, err)
		}
	}
	if _, err := ParseKind("cowbell"); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unknown name, got %v", err)
	}
}

func TestNodeBudgetDropsOnlyTheFailingVoice(t *testing.T) {
	ctx := newContext(t, 5)
	k, _ := NewKick(ctx, DefaultKickConfig(), WithAnalyserSize(64))
	if _, err := k.Trigger(0); err != nil {
		t.Fatalf("first trigger: %v", err)
	}
	if _, err := k.Trigger(0); !errors.Is(err, graph.ErrGraphConstruction) {
		t.Fatalf("expected ErrGraphConstruction, got %v", err)
	}
	if ctx.LiveNodes() != 3 {
		t.Fatalf("partially built voice leaked: live nodes = %d, want 3", ctx.LiveNodes())
	}
	out := ctx.Render(0.1)
	var peak float32
	for i := 0; i < len(out); i += 2 {
		peak = max(peak, out[i])
	}
	if peak < 0.5 {
		t.Fatalf("first voice should keep playing, peak %f", peak)
	}
}
