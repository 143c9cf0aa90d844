package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankCascade(t *testing.T) {
	tests := []struct {
		averageDead, areaByPerson uint64
		want                      Rank
	}{
		{34, 6, RankD},
		{34, 7, RankC},
		{34, 8, RankC},
		{34, 9, RankB},
		{34, 10, RankA},
		{33, 6, RankC},
		{11, 8, RankC},
		{11, 9, RankB},
		{10, 8, RankB},
		{4, 9, RankB},
		{3, 9, RankA},
		{4, 10, RankA},
		{0, 0, RankA},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, rankFor(tc.averageDead, tc.areaByPerson), "dead=%d area=%d", tc.averageDead, tc.areaByPerson)
	}
}

func TestEvaluateTerm(t *testing.T) {
	stats, err := EvaluateTerm(TermComplete{Population: 100, Area: 650, DeadFromHungerTotal: 345})
	require.NoError(t, err)
	assert.Equal(t, Statistics{AverageDeadPercent: 34, DeadFromHunger: 345, AreaByPerson: 6, Rank: RankD}, stats)
}

func TestEvaluateTermDesertedCity(t *testing.T) {
	_, err := EvaluateTerm(TermComplete{Population: 0, Area: 1000, DeadFromHungerTotal: 20})
	require.ErrorIs(t, err, ErrCityDeserted)
}

func TestStatisticsOnlyAfterTerm(t *testing.T) {
	_, err := restoreCity(t, nil).Statistics()
	require.ErrorIs(t, err, ErrTermInProgress)

	done := restoreCity(t, func(s *State) {
		s.CurrentRound = LastRound + 1
		s.Area = 900
		s.DeadFromHungerTotal = 40
	})
	stats, err := done.Statistics()
	require.NoError(t, err)
	assert.Equal(t, Statistics{AverageDeadPercent: 4, DeadFromHunger: 40, AreaByPerson: 9, Rank: RankB}, stats)

	deserted := restoreCity(t, func(s *State) {
		s.CurrentRound = LastRound + 1
		s.Population = 0
	})
	_, err = deserted.Statistics()
	require.ErrorIs(t, err, ErrCityDeserted)
}
