package notation

import (
	"errors"
	"fmt"
)

// ErrInvalidNotation is wrapped by every error Compile returns.
var ErrInvalidNotation = errors.New("invalid notation")

// Note is one timed event produced by the compiler. Duration is in seconds
// and always positive.
type Note struct {
	Frequency float64
	Duration  float64
}

// SyntaxError describes the first token the compiler rejected.
type SyntaxError struct {
	Index  int // whitespace-separated token index, 0 is the tempo
	Token  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid notation: token %d %q: %s", e.Index, e.Token, e.Reason)
}

func (e *SyntaxError) Unwrap() error { return ErrInvalidNotation }

type CompilerConfig struct {
	ReferencePitch float64 // Hz at ReferenceIndex
	ReferenceIndex int     // pitch index (class + octave*12) of the reference pitch
	MaxTempo       int
}

func DefaultCompilerConfig() CompilerConfig {
	return CompilerConfig{
		ReferencePitch: 440,
		ReferenceIndex: 57, // A4
		MaxTempo:       999,
	}
}

var pitchClasses = map[string]int{
	"C": 0, "C#": 1, "D": 2, "D#": 3, "E": 4, "F": 5,
	"F#": 6, "G": 7, "G#": 8, "A": 9, "A#": 10, "B": 11,
}

// lengthCodes maps a length code to its multiplier of one beat.
var lengthCodes = map[byte]float64{
	'2': 2,
	'1': 1,
	'h': 0.5,
	'q': 0.25,
	'e': 0.125,
	'x': 0.0625,
}

// TotalDuration returns the sum of note durations, i.e. the length of the
// sequence when played back to back.
func TotalDuration(notes []Note) float64 {
	var total float64
	for _, n := range notes {
		total += n.Duration
	}
	return total
}
