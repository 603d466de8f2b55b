// Package metronome turns a frame clock into interval triggers. A State
// counts the lifetime of one actor; OnInterval reports whether the last
// Update crossed a multiple of a period.
package metronome

import "math"

// State is the elapsed lifetime of one actor. Previous is Elapsed before
// the last Update.
type State struct {
	Elapsed  float64
	Previous float64
}

// Update advances the lifetime by dt seconds.
func (s *State) Update(dt float64) {
	s.Previous = s.Elapsed
	s.Elapsed += dt
}

// OnInterval reports whether the last Update crossed a multiple of period.
// It fires once per crossing no matter how many frames follow.
func (s State) OnInterval(period float64) bool {
	if period <= 0 {
		return false
	}
	return math.Floor(s.Previous/period) != math.Floor(s.Elapsed/period)
}

func (s *State) Reset() {
	s.Elapsed = 0
	s.Previous = 0
}

// Clamp bounds dt to [ideal, 2*ideal].
func Clamp(dt, ideal float64) float64 {
	return math.Min(math.Max(dt, ideal), 2*ideal)
}
