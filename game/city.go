// Package game holds the Hamurabi city simulation: the validated round
// quantities, the per-round update pipeline and the end-of-term ranking.
package game

import (
	"errors"
	"fmt"
)

const (
	LastRound = 10

	initialPopulation       = 100
	initialArea             = 1000
	initialGrain            = 2800
	initialArrived          = 5
	initialGrainFromAcre    = 3
	initialGrainEatenByRats = 200

	MinAcrePrice = 17
	MaxAcrePrice = 26

	MinGrainFromAcre = 1
	MaxGrainFromAcre = 6

	// MaxQuantity bounds every restored count so round arithmetic stays
	// inside int64 for a whole term.
	MaxQuantity = 1<<32 - 1
)

var ErrInvalidState = errors.New("invalid city state")

// City is the state of one ten-year term. It is owned by a single caller and
// mutated only through PlayRound.
type City struct {
	population          uint64
	area                uint64
	grain               uint64
	acrePrice           uint64
	currentRound        uint64
	deadFromHunger      uint64
	deadFromHungerTotal uint64
	arrived             uint64
	grainFromAcre       uint64
	grainEatenByRats    uint64
	isPlague            bool
	isGameOver          bool

	events EventSource
}

// State is a plain copy of every City field, used by save collaborators.
type State struct {
	Population          uint64
	Area                uint64
	Grain               uint64
	AcrePrice           uint64
	CurrentRound        uint64
	DeadFromHunger      uint64
	DeadFromHungerTotal uint64
	Arrived             uint64
	GrainFromAcre       uint64
	GrainEatenByRats    uint64
	IsPlague            bool
	IsGameOver          bool
}

// NewCity starts the fixed opening scenario. The first acre price is drawn
// from events.
func NewCity(events EventSource) *City {
	c := &City{
		population:       initialPopulation,
		area:             initialArea,
		grain:            initialGrain,
		currentRound:     1,
		arrived:          initialArrived,
		grainFromAcre:    initialGrainFromAcre,
		grainEatenByRats: initialGrainEatenByRats,
		events:           events,
	}
	c.acrePrice = events.AcrePrice()
	return c
}

// Restore rebuilds a City from a saved State. No random value is drawn.
func Restore(s State, events EventSource) (*City, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &City{
		population:          s.Population,
		area:                s.Area,
		grain:               s.Grain,
		acrePrice:           s.AcrePrice,
		currentRound:        s.CurrentRound,
		deadFromHunger:      s.DeadFromHunger,
		deadFromHungerTotal: s.DeadFromHungerTotal,
		arrived:             s.Arrived,
		grainFromAcre:       s.GrainFromAcre,
		grainEatenByRats:    s.GrainEatenByRats,
		isPlague:            s.IsPlague,
		isGameOver:          s.IsGameOver,
		events:              events,
	}, nil
}

func (s State) validate() error {
	if s.AcrePrice < MinAcrePrice || s.AcrePrice > MaxAcrePrice {
		return fmt.Errorf("%w: acre price %d outside [%d, %d]", ErrInvalidState, s.AcrePrice, MinAcrePrice, MaxAcrePrice)
	}
	if s.GrainFromAcre < MinGrainFromAcre || s.GrainFromAcre > MaxGrainFromAcre {
		return fmt.Errorf("%w: grain from acre %d outside [%d, %d]", ErrInvalidState, s.GrainFromAcre, MinGrainFromAcre, MaxGrainFromAcre)
	}
	if s.CurrentRound < 1 || s.CurrentRound > LastRound+1 {
		return fmt.Errorf("%w: round %d outside [1, %d]", ErrInvalidState, s.CurrentRound, LastRound+1)
	}
	counts := []struct {
		name string
		v    uint64
	}{
		{"population", s.Population},
		{"area", s.Area},
		{"grain", s.Grain},
		{"dead from hunger", s.DeadFromHunger},
		{"dead from hunger in total", s.DeadFromHungerTotal},
		{"arrived", s.Arrived},
		{"grain eaten by rats", s.GrainEatenByRats},
	}
	for _, c := range counts {
		if c.v > MaxQuantity {
			return fmt.Errorf("%w: %s %d exceeds %d", ErrInvalidState, c.name, c.v, uint64(MaxQuantity))
		}
	}
	if s.DeadFromHunger > s.DeadFromHungerTotal {
		return fmt.Errorf("%w: dead this year %d exceeds total %d", ErrInvalidState, s.DeadFromHunger, s.DeadFromHungerTotal)
	}
	return nil
}

// State returns a copy of every field.
func (c *City) State() State {
	return State{
		Population:          c.population,
		Area:                c.area,
		Grain:               c.grain,
		AcrePrice:           c.acrePrice,
		CurrentRound:        c.currentRound,
		DeadFromHunger:      c.deadFromHunger,
		DeadFromHungerTotal: c.deadFromHungerTotal,
		Arrived:             c.arrived,
		GrainFromAcre:       c.grainFromAcre,
		GrainEatenByRats:    c.grainEatenByRats,
		IsPlague:            c.isPlague,
		IsGameOver:          c.isGameOver,
	}
}

func (c *City) Population() uint64          { return c.population }
func (c *City) Area() uint64                { return c.area }
func (c *City) Grain() uint64               { return c.grain }
func (c *City) AcrePrice() uint64           { return c.acrePrice }
func (c *City) CurrentRound() uint64        { return c.currentRound }
func (c *City) DeadFromHunger() uint64      { return c.deadFromHunger }
func (c *City) DeadFromHungerTotal() uint64 { return c.deadFromHungerTotal }
func (c *City) Arrived() uint64             { return c.arrived }
func (c *City) GrainFromAcre() uint64       { return c.grainFromAcre }
func (c *City) GrainEatenByRats() uint64    { return c.grainEatenByRats }
func (c *City) IsPlague() bool              { return c.isPlague }
func (c *City) IsGameOver() bool            { return c.isGameOver }

// Events returns the generator owned by the city.
func (c *City) Events() EventSource { return c.events }

// Terminated reports whether PlayRound will no longer change the city.
func (c *City) Terminated() bool {
	return c.isGameOver || c.currentRound > LastRound
}
