package metrosynth

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/cbegin/metrosynth-go/internal/graph"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

func peak(samples []float32, from, to int) float64 {
	var p float64
	for _, s := range samples[from:to] {
		p = math.Max(p, math.Abs(float64(s)))
	}
	return p
}

func TestRenderVoiceUntilEnd(t *testing.T) {
	cfg := testConfig()
	out, err := RenderVoice(cfg, voice.KindKick, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := int(float64(cfg.SampleRate)*cfg.Voices.Kick.Length) * 2
	if len(out) != want {
		t.Fatalf("samples = %d, want %d", len(out), want)
	}
	if p := peak(out, 0, len(out)); p < 0.1 {
		t.Fatalf("kick peak = %f, want audible", p)
	}
}

func TestRenderVoiceNodeBudget(t *testing.T) {
	_, err := RenderVoice(testConfig(), voice.KindSnare, 0.1, WithMaxNodes(2))
	if !errors.Is(err, graph.ErrGraphConstruction) {
		t.Fatalf("expected ErrGraphConstruction, got %v", err)
	}
}

func TestRenderNotationWholeSequence(t *testing.T) {
	cfg := testConfig()
	out, err := RenderNotation(cfg, "120 C4q E4q G4h", 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// 0.125 + 0.125 + 0.25 seconds
	want := int(float64(cfg.SampleRate)*0.5) * 2
	if len(out) != want {
		t.Fatalf("samples = %d, want %d", len(out), want)
	}
	if p := peak(out, 0, len(out)); p < 0.01 {
		t.Fatalf("melody peak = %f, want audible", p)
	}
}

func TestRenderSceneFirstKickAtHalfBeat(t *testing.T) {
	cfg := testConfig()
	out, err := RenderScene(cfg, 1)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	rate := cfg.SampleRate
	if p := peak(out, 0, int(0.45*float64(rate))*2); p != 0 {
		t.Fatalf("peak before first kick = %f, want silence", p)
	}
	if p := peak(out, int(0.5*float64(rate))*2, int(0.8*float64(rate))*2); p < 0.1 {
		t.Fatalf("peak after first kick = %f, want audible", p)
	}
	if _, err := RenderScene(cfg, 0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestEncodeWAVFloat32LE(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	wav := EncodeWAVFloat32LE(samples, 48000, 2)
	if len(wav) != 44+len(samples)*4 {
		t.Fatalf("wav size = %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Fatal("missing RIFF chunk ids")
	}
	if f := binary.LittleEndian.Uint16(wav[20:]); f != 3 {
		t.Fatalf("format = %d, want 3 (IEEE float)", f)
	}
	if r := binary.LittleEndian.Uint32(wav[24:]); r != 48000 {
		t.Fatalf("sample rate = %d", r)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(wav[48:])); v != 0.5 {
		t.Fatalf("second sample = %f, want 0.5", v)
	}
}

func TestResample(t *testing.T) {
	cfg := testConfig()
	in, err := RenderVoice(cfg, voice.KindKick, 0)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	same, err := Resample(in, cfg.SampleRate, cfg.SampleRate, 2)
	if err != nil || len(same) != len(in) {
		t.Fatalf("same-rate resample: %d samples, %v", len(same), err)
	}
	up, err := Resample(in, cfg.SampleRate, cfg.SampleRate*2, 2)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if len(up)%2 != 0 {
		t.Fatalf("resampled %d samples, want whole stereo frames", len(up))
	}
	if len(up) != len(in)*2 {
		t.Fatalf("resampled %d samples from %d, want twice as many", len(up), len(in))
	}
	if _, err := Resample(in, 0, 8000, 2); err == nil {
		t.Fatal("expected error for zero source rate")
	}
}

func TestResampleKeepsChannelsApart(t *testing.T) {
	const from, to = 48000, 24000
	in := make([]float32, from*2)
	for i := range from {
		in[i*2] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/from))
	}
	out, err := Resample(in, from, to, 2)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	if len(out) != to*2 {
		t.Fatalf("resampled %d frames, want %d", len(out)/2, to)
	}
	var left, right float64
	for i := 0; i < len(out); i += 2 {
		left = math.Max(left, math.Abs(float64(out[i])))
		right = math.Max(right, math.Abs(float64(out[i+1])))
	}
	if right > 1e-6 {
		t.Fatalf("right channel peak = %f, want silence", right)
	}
	if left < 0.25 {
		t.Fatalf("left channel peak = %f, want the tone", left)
	}
	mono, err := Resample(in[:1001], 8000, 16000, 1)
	if err != nil || len(mono) != 2002 {
		t.Fatalf("mono resample: %d samples, %v", len(mono), err)
	}
}
