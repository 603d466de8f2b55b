package audio

import (
	"sync"
	"time"
)

// NullPlayer consumes a SampleSource at the real-time rate and drops the
// output. It keeps the render clock moving where no device is available.
type NullPlayer struct {
	source     SampleSource
	sampleRate int
	period     time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	playing bool
}

func NewNullPlayer(sampleRate int, source SampleSource) *NullPlayer {
	return &NullPlayer{source: source, sampleRate: sampleRate, period: 10 * time.Millisecond}
}

func (p *NullPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	p.playing = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)
}

func (p *NullPlayer) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	last := time.Now()
	var owed float64
	var buf []float32
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			owed += now.Sub(last).Seconds() * float64(p.sampleRate)
			last = now
			frames := int(owed)
			if frames == 0 {
				continue
			}
			owed -= float64(frames)
			if cap(buf) < frames*2 {
				buf = make([]float32, frames*2)
			}
			p.source.Process(buf[:frames*2])
			if fs, ok := p.source.(FinishingSource); ok && fs.Finished() {
				return
			}
		}
	}
}

func (p *NullPlayer) Pause() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()
	<-done
}

func (p *NullPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *NullPlayer) Stop() error {
	p.Pause()
	return nil
}
