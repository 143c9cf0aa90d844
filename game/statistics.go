package game

import "errors"

var (
	ErrTermInProgress = errors.New("term is still in progress")
	ErrGameOver       = errors.New("ruler was impeached before the term ended")
	ErrCityDeserted   = errors.New("city has no people left")
)

type Rank string

const (
	RankD Rank = "D"
	RankC Rank = "C"
	RankB Rank = "B"
	RankA Rank = "A"
)

type Statistics struct {
	AverageDeadPercent uint64
	DeadFromHunger     uint64
	AreaByPerson       uint64
	Rank               Rank
}

// Statistics is available once the tenth round completed without a game
// over.
func (c *City) Statistics() (Statistics, error) {
	if c.isGameOver {
		return Statistics{}, ErrGameOver
	}
	if c.currentRound <= LastRound {
		return Statistics{}, ErrTermInProgress
	}
	return EvaluateTerm(c.termComplete())
}

// EvaluateTerm ranks a finished term. A city with nobody left has no land
// per person and yields ErrCityDeserted.
func EvaluateTerm(t TermComplete) (Statistics, error) {
	if t.Population == 0 {
		return Statistics{}, ErrCityDeserted
	}
	s := Statistics{
		AverageDeadPercent: t.DeadFromHungerTotal / LastRound,
		DeadFromHunger:     t.DeadFromHungerTotal,
		AreaByPerson:       t.Area / t.Population,
	}
	s.Rank = rankFor(s.AverageDeadPercent, s.AreaByPerson)
	return s, nil
}

func rankFor(averageDeadPercent, areaByPerson uint64) Rank {
	switch {
	case averageDeadPercent > 33 && areaByPerson < 7:
		return RankD
	case averageDeadPercent > 10 && areaByPerson < 9:
		return RankC
	case averageDeadPercent > 3 && areaByPerson < 10:
		return RankB
	default:
		return RankA
	}
}
