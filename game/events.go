package game

import (
	"math/rand/v2"
)

const (
	minRatFactor    = 0
	maxRatFactor    = 7
	ratDivisor      = 100
	maxPlagueRoll   = 100
	plagueThreshold = 15
)

// EventSource supplies the four random draws of a round. PlayRound calls
// them in a fixed order: HarvestYield, RatFactor, Plague, AcrePrice.
type EventSource interface {
	AcrePrice() uint64    // [17, 26]
	HarvestYield() uint64 // [1, 6]
	RatFactor() uint64    // [0, 7], percent of stored grain
	Plague() bool         // roll in [0, 100] at most 15
}

// RandomEvents draws from a PCG generator. Its position can be saved with
// MarshalBinary and resumed with UnmarshalBinary.
type RandomEvents struct {
	pcg *rand.PCG
	rng *rand.Rand
}

func NewRandomEvents(seed uint64) *RandomEvents {
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &RandomEvents{pcg: pcg, rng: rand.New(pcg)}
}

func (e *RandomEvents) AcrePrice() uint64 {
	return uniform(e.rng, MinAcrePrice, MaxAcrePrice)
}

func (e *RandomEvents) HarvestYield() uint64 {
	return uniform(e.rng, MinGrainFromAcre, MaxGrainFromAcre)
}

func (e *RandomEvents) RatFactor() uint64 {
	return uniform(e.rng, minRatFactor, maxRatFactor)
}

func (e *RandomEvents) Plague() bool {
	return uniform(e.rng, 0, maxPlagueRoll) <= plagueThreshold
}

func (e *RandomEvents) MarshalBinary() ([]byte, error) {
	return e.pcg.MarshalBinary()
}

func (e *RandomEvents) UnmarshalBinary(data []byte) error {
	return e.pcg.UnmarshalBinary(data)
}

func uniform(r *rand.Rand, low, high uint64) uint64 {
	return low + r.Uint64N(high-low+1)
}
