package metrosynth

import (
	"encoding/binary"
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/cbegin/metrosynth-go/internal/audio"
	"github.com/cbegin/metrosynth-go/internal/config"
	"github.com/cbegin/metrosynth-go/internal/metronome"
	"github.com/cbegin/metrosynth-go/internal/notation"
	"github.com/cbegin/metrosynth-go/internal/sequencer"
	"github.com/cbegin/metrosynth-go/internal/voice"
)

// offlineEngine builds an engine that is rendered by hand, never opened on
// a device.
func offlineEngine(cfg config.Config, opts []Option) (*Engine, error) {
	opts = append([]Option{WithConfig(cfg)}, opts...)
	opts = append(opts, WithBackend(string(audio.BackendNone)))
	return NewEngine(opts...)
}

// RenderVoice triggers one voice of kind at time 0 and renders seconds of
// stereo output. seconds <= 0 renders until the voice has ended.
func RenderVoice(cfg config.Config, kind voice.Kind, seconds float64, opts ...Option) ([]float32, error) {
	e, err := offlineEngine(cfg, opts)
	if err != nil {
		return nil, err
	}
	src, err := e.NewVoice(kind)
	if err != nil {
		return nil, err
	}
	v, err := src.Trigger(0)
	if err != nil {
		return nil, err
	}
	if seconds <= 0 {
		seconds = v.End
	}
	return e.ctx.Render(seconds), nil
}

// RenderNotation plays src once from time 0 with the configured note voice.
// seconds <= 0 renders the whole sequence.
func RenderNotation(cfg config.Config, src string, seconds float64, opts ...Option) ([]float32, error) {
	notes, err := notation.Compile(src)
	if err != nil {
		return nil, err
	}
	e, err := offlineEngine(cfg, opts)
	if err != nil {
		return nil, err
	}
	factory := sequencer.NoteVoices(e.ctx, cfg.Voices.Note, voice.WithAnalyserSize(cfg.AnalyserSize))
	end, _, err := sequencer.Schedule(factory, notes, 0)
	if err != nil {
		return nil, err
	}
	if seconds <= 0 {
		seconds = end
	}
	return e.ctx.Render(seconds), nil
}

// RenderScene runs the metronome scene for seconds, one frame at the
// configured frame rate at a time.
func RenderScene(cfg config.Config, seconds float64, opts ...Option) ([]float32, error) {
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: seconds must be positive", config.ErrInvalidConfig)
	}
	e, err := offlineEngine(cfg, opts)
	if err != nil {
		return nil, err
	}
	sc, err := e.Scene()
	if err != nil {
		return nil, err
	}
	d := metronome.NewDriver(sc, cfg.FrameRate)
	if err := sc.Err(); err != nil {
		return nil, err
	}

	total := int(float64(cfg.SampleRate) * seconds)
	perFrame := int(float64(cfg.SampleRate) * d.Ideal())
	if perFrame < 1 {
		perFrame = 1
	}
	out := make([]float32, total*2)
	for pos := 0; pos < total; pos += perFrame {
		d.Frame(float64(pos) / float64(cfg.SampleRate))
		n := min(perFrame, total-pos)
		e.ctx.Process(out[pos*2 : (pos+n)*2])
	}
	return out, nil
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

// Resample converts interleaved samples from one rate to another. Each
// channel runs through its own resampler and is flushed, then trimmed or
// zero padded to round(frames*to/from) frames so the channels stay aligned.
func Resample(samples []float32, from, to, channels int) ([]float32, error) {
	if from <= 0 || to <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: resample %d to %d Hz with %d channels", config.ErrInvalidConfig, from, to, channels)
	}
	if from == to {
		return samples, nil
	}
	frames := len(samples) / channels
	want := (frames*to + from/2) / from
	out := make([]float32, want*channels)
	for c := range channels {
		res, err := resampleChannel(samples, c, channels, from, to)
		if err != nil {
			return nil, err
		}
		for i := range min(want, len(res)) {
			out[i*channels+c] = float32(max(-1, min(1, res[i])))
		}
	}
	return out, nil
}

func resampleChannel(samples []float32, c, channels, from, to int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	in := make([]float64, len(samples)/channels)
	for i := range in {
		in[i] = float64(samples[i*channels+c])
	}
	res, err := rs.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resample channel %d from %d to %d Hz: %w", c, from, to, err)
	}
	tail, err := rs.Flush()
	if err != nil {
		return nil, fmt.Errorf("flush channel %d: %w", c, err)
	}
	return append(res, tail...), nil
}
