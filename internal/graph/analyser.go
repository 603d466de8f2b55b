package graph

import (
	"fmt"
	"math"
)

// AnalyserNode passes its input through unchanged and keeps the most recent
// FFTSize samples for inspection.
type AnalyserNode struct {
	node
	ring []float64
	pos  int
}

func (c *Context) NewAnalyser(fftSize int) (*AnalyserNode, error) {
	if fftSize < 32 || fftSize > 32768 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("%w: fft size %d must be a power of two in [32, 32768]", ErrGraphConstruction, fftSize)
	}
	if err := c.alloc(); err != nil {
		return nil, err
	}
	a := &AnalyserNode{ring: make([]float64, fftSize)}
	a.init(c, a)
	return a, nil
}

func (a *AnalyserNode) FFTSize() int { return len(a.ring) }

func (a *AnalyserNode) FrequencyBinCount() int { return len(a.ring) / 2 }

func (a *AnalyserNode) render(f int64, t float64) float64 {
	x := a.input(f, t)
	a.ring[a.pos] = x
	a.pos++
	if a.pos >= len(a.ring) {
		a.pos = 0
	}
	return x
}

// GetFloatTimeDomainData copies the oldest len(dst) samples of the current
// window into dst.
func (a *AnalyserNode) GetFloatTimeDomainData(dst []float32) {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	n := min(len(dst), len(a.ring))
	for i := 0; i < n; i++ {
		dst[i] = float32(a.ring[(a.pos+i)%len(a.ring)])
	}
}

// GetByteTimeDomainData is GetFloatTimeDomainData mapped to 0..255, with 128
// as silence.
func (a *AnalyserNode) GetByteTimeDomainData(dst []byte) {
	a.ctx.mu.Lock()
	defer a.ctx.mu.Unlock()
	n := min(len(dst), len(a.ring))
	for i := 0; i < n; i++ {
		v := math.Floor(128 * (1 + a.ring[(a.pos+i)%len(a.ring)]))
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		dst[i] = byte(v)
	}
}
