// Package analysis samples the time-domain output of a voice for drawing.
package analysis

import (
	"fmt"

	"github.com/cbegin/metrosynth-go/internal/graph"
)

type Mode int

const (
	// ModeByte maps -1..1 to 0..255 with 128 as silence.
	ModeByte Mode = iota
	// ModeFloat keeps native -1..1 samples.
	ModeFloat
)

func (m Mode) String() string {
	switch m {
	case ModeByte:
		return "byte"
	case ModeFloat:
		return "float"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Source exposes the analyser to read from. It may return nil until the
// source has sounded.
type Source interface {
	Analyser() *graph.AnalyserNode
}

// Buffer is a waveform snapshot. It shares storage with its Tap and is
// overwritten by the next Sample.
type Buffer struct {
	mode   Mode
	bytes  []byte
	floats []float32
}

func (b Buffer) Mode() Mode { return b.mode }

func (b Buffer) Len() int {
	if b.mode == ModeFloat {
		return len(b.floats)
	}
	return len(b.bytes)
}

// At returns sample i normalized to -1..1.
func (b Buffer) At(i int) float64 {
	if b.mode == ModeFloat {
		return float64(b.floats[i])
	}
	return float64(b.bytes[i])/128 - 1
}

// Height maps sample i onto 0..scale for bar drawing.
func (b Buffer) Height(i int, scale float64) float64 {
	if b.mode == ModeFloat {
		return (float64(b.floats[i]) + 1) / 2 * scale
	}
	return float64(b.bytes[i]) / 256 * scale
}

func (b Buffer) Bytes() []byte { return b.bytes }

func (b Buffer) Floats() []float32 { return b.floats }

// Tap refreshes one Buffer from its source.
type Tap struct {
	src  Source
	mode Mode
	buf  Buffer
}

func New(src Source, mode Mode) *Tap {
	return &Tap{src: src, mode: mode, buf: Buffer{mode: mode}}
}

// Sample refreshes the buffer in place. When the source has no analyser
// yet, the previous (possibly empty) buffer is returned unchanged.
func (t *Tap) Sample() Buffer {
	a := t.src.Analyser()
	if a == nil {
		return t.buf
	}
	n := a.FrequencyBinCount()
	switch t.mode {
	case ModeFloat:
		if len(t.buf.floats) != n {
			t.buf.floats = make([]float32, n)
		}
		a.GetFloatTimeDomainData(t.buf.floats)
	default:
		if len(t.buf.bytes) != n {
			t.buf.bytes = make([]byte, n)
		}
		a.GetByteTimeDomainData(t.buf.bytes)
	}
	return t.buf
}

// Buffer returns the last sampled buffer without refreshing it.
func (t *Tap) Buffer() Buffer { return t.buf }
