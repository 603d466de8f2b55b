package audio

import (
	"fmt"
	"strings"
)

// Backend names an output implementation.
type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
	// BackendNone pulls the source in real time and discards the samples.
	BackendNone Backend = "none"
)

func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendEbiten, BackendOto, BackendNone:
		return b, nil
	case "":
		return BackendEbiten, nil
	default:
		return "", fmt.Errorf("unknown audio backend %q", s)
	}
}

// Output is a started-or-paused stream from one SampleSource.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	Stop() error
}

// Open creates an output of the given backend. Only one device backend can
// be used per process; the ebiten one shares a single audio context.
func Open(b Backend, sampleRate int, source SampleSource) (Output, error) {
	switch b {
	case BackendEbiten:
		return NewPlayer(sampleRate, source)
	case BackendOto:
		return NewOtoPlayer(sampleRate, source)
	case BackendNone:
		return NewNullPlayer(sampleRate, source), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", b)
	}
}
