package effects

// EQ3Band splits the signal at two one-pole crossovers and weights each
// band.
type EQ3Band struct {
	lowGain  float64
	midGain  float64
	highGain float64
	lpAlpha  float64
	hpAlpha  float64
	lp, hp   float64
}

// NewEQ3Band creates a 3-band EQ.
// lowGain, midGain, highGain: gain for each band (1.0 = unity)
// lowFreq: crossover frequency between low and mid bands
// highFreq: crossover frequency between mid and high bands
func NewEQ3Band(sampleRate int, lowGain, midGain, highGain, lowFreq, highFreq float64) *EQ3Band {
	return &EQ3Band{
		lowGain:  lowGain,
		midGain:  midGain,
		highGain: highGain,
		lpAlpha:  onePole(sampleRate, lowFreq),
		hpAlpha:  onePole(sampleRate, highFreq),
	}
}

func (eq *EQ3Band) Process(x float64) float64 {
	eq.lp += eq.lpAlpha * (x - eq.lp)
	low := eq.lp
	eq.hp += eq.hpAlpha * (x - eq.hp)
	high := x - eq.hp
	mid := x - low - high
	return low*eq.lowGain + mid*eq.midGain + high*eq.highGain
}

func (eq *EQ3Band) Reset() {
	eq.lp, eq.hp = 0, 0
}
