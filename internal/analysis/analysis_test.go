package analysis

import (
	"math"
	"testing"

	"github.com/cbegin/metrosynth-go/internal/graph"
)

type fixedSource struct{ a *graph.AnalyserNode }

func (f *fixedSource) Analyser() *graph.AnalyserNode { return f.a }

func constantGraph(t *testing.T, level float64) (*graph.Context, *graph.AnalyserNode) {
	t.Helper()
	ctx, err := graph.NewContext(graph.Config{SampleRate: 8000, MasterGain: 1})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := ctx.NewConstantSource(level)
	a, err := ctx.NewAnalyser(64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(a); err != nil {
		t.Fatal(err)
	}
	if err := a.Connect(ctx.Destination()); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(0); err != nil {
		t.Fatal(err)
	}
	return ctx, a
}

func TestSampleBeforeAnalyserIsEmpty(t *testing.T) {
	src := &fixedSource{}
	tap := New(src, ModeByte)
	if got := tap.Sample(); got.Len() != 0 {
		t.Fatalf("expected empty buffer, got %d samples", got.Len())
	}
}

func TestByteSampleRefreshesInPlace(t *testing.T) {
	ctx, a := constantGraph(t, 0.5)
	src := &fixedSource{}
	tap := New(src, ModeByte)
	tap.Sample()
	src.a = a
	ctx.Render(0.01)
	buf := tap.Sample()
	if buf.Len() != a.FrequencyBinCount() {
		t.Fatalf("len = %d, want %d", buf.Len(), a.FrequencyBinCount())
	}
	if buf.Bytes()[0] != 192 {
		t.Fatalf("byte = %d, want 192", buf.Bytes()[0])
	}
	if math.Abs(buf.At(0)-0.5) > 1e-9 {
		t.Fatalf("normalized = %f, want 0.5", buf.At(0))
	}
	if h := buf.Height(0, 120); h != 90 {
		t.Fatalf("height = %f, want 90", h)
	}
	first := &buf.Bytes()[0]
	again := tap.Sample()
	if &again.Bytes()[0] != first {
		t.Fatalf("expected the buffer to be reused")
	}
	src.a = nil
	if kept := tap.Sample(); kept.Len() != buf.Len() {
		t.Fatalf("expected the previous buffer while the analyser is gone")
	}
}

func TestFloatSample(t *testing.T) {
	ctx, a := constantGraph(t, -0.25)
	tap := New(&fixedSource{a: a}, ModeFloat)
	ctx.Render(0.01)
	buf := tap.Sample()
	if buf.Mode() != ModeFloat || buf.Len() != 32 {
		t.Fatalf("unexpected buffer mode %s len %d", buf.Mode(), buf.Len())
	}
	if buf.Floats()[5] != -0.25 || buf.At(5) != -0.25 {
		t.Fatalf("float sample = %f, want -0.25", buf.Floats()[5])
	}
	if h := buf.Height(5, 100); math.Abs(h-37.5) > 1e-9 {
		t.Fatalf("height = %f, want 37.5", h)
	}
}
