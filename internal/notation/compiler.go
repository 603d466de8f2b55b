package notation

import (
	"math"
	"strconv"
	"strings"
)

type Compiler struct{ cfg CompilerConfig }

func NewCompiler(cfg CompilerConfig) *Compiler { return &Compiler{cfg: cfg} }

var defaultCompiler = NewCompiler(DefaultCompilerConfig())

// Compile parses "<tempo> <note><octave><length> ..." with the default
// configuration.
func Compile(src string) ([]Note, error) {
	return defaultCompiler.Compile(src)
}

// Compile returns the notes in document order. Either every token is valid
// and all notes are returned, or an error wrapping ErrInvalidNotation is
// returned with no notes.
func (c *Compiler) Compile(src string) ([]Note, error) {
	fields := strings.Fields(src)
	if len(fields) == 0 {
		return nil, &SyntaxError{Index: 0, Reason: "missing tempo"}
	}
	tempo, err := c.parseTempo(fields[0])
	if err != nil {
		return nil, err
	}
	beat := 60 / float64(tempo)
	notes := make([]Note, 0, len(fields)-1)
	for i, tok := range fields[1:] {
		index, mult, reason := parseToken(tok)
		if reason != "" {
			return nil, &SyntaxError{Index: i + 1, Token: tok, Reason: reason}
		}
		notes = append(notes, Note{
			Frequency: c.Frequency(index),
			Duration:  mult * beat,
		})
	}
	return notes, nil
}

// Frequency returns the equal-tempered frequency of pitch index n
// (class + octave*12).
func (c *Compiler) Frequency(n int) float64 {
	return c.cfg.ReferencePitch * math.Pow(2, float64(n-c.cfg.ReferenceIndex)/12)
}

func (c *Compiler) parseTempo(tok string) (int, error) {
	tempo, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &SyntaxError{Index: 0, Token: tok, Reason: "tempo is not an integer"}
	}
	if tempo <= 0 || (c.cfg.MaxTempo > 0 && tempo > c.cfg.MaxTempo) {
		return 0, &SyntaxError{Index: 0, Token: tok, Reason: "tempo out of range"}
	}
	return tempo, nil
}

// parseToken splits <pitch><octave><length>. A non-empty reason marks the
// token invalid.
func parseToken(tok string) (index int, mult float64, reason string) {
	if len(tok) < 3 {
		return 0, 0, "token too short"
	}
	mult, ok := lengthCodes[tok[len(tok)-1]]
	if !ok {
		return 0, 0, "unknown length code"
	}
	oct := tok[len(tok)-2]
	if oct < '0' || oct > '9' {
		return 0, 0, "octave is not a digit"
	}
	class, ok := pitchClasses[strings.ToUpper(tok[:len(tok)-2])]
	if !ok {
		return 0, 0, "unknown pitch class"
	}
	return class + int(oct-'0')*12, mult, ""
}

// Frequency returns the frequency of pitch index n at A4 = 440 Hz.
func Frequency(n int) float64 {
	return defaultCompiler.Frequency(n)
}

// NoteFrequency returns the frequency of a pitch name such as "A4" or "C#3".
func NoteFrequency(name string) (float64, error) {
	if len(name) < 2 {
		return 0, &SyntaxError{Token: name, Reason: "note name too short"}
	}
	oct := name[len(name)-1]
	class, ok := pitchClasses[strings.ToUpper(name[:len(name)-1])]
	if !ok || oct < '0' || oct > '9' {
		return 0, &SyntaxError{Token: name, Reason: "unknown note name"}
	}
	return Frequency(class + int(oct-'0')*12), nil
}

// NoteDuration returns the length in seconds of code at tempo bpm.
func NoteDuration(tempo int, code byte) (float64, error) {
	mult, ok := lengthCodes[code]
	if !ok {
		return 0, &SyntaxError{Token: string(code), Reason: "unknown length code"}
	}
	if tempo <= 0 {
		return 0, &SyntaxError{Token: strconv.Itoa(tempo), Reason: "tempo out of range"}
	}
	return mult * 60 / float64(tempo), nil
}
