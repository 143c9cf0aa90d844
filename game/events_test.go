package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomEventsRanges(t *testing.T) {
	e := NewRandomEvents(99)
	plagues := 0
	for i := 0; i < 5000; i++ {
		price := e.AcrePrice()
		require.GreaterOrEqual(t, price, uint64(MinAcrePrice))
		require.LessOrEqual(t, price, uint64(MaxAcrePrice))

		yield := e.HarvestYield()
		require.GreaterOrEqual(t, yield, uint64(MinGrainFromAcre))
		require.LessOrEqual(t, yield, uint64(MaxGrainFromAcre))

		require.LessOrEqual(t, e.RatFactor(), uint64(maxRatFactor))

		if e.Plague() {
			plagues++
		}
	}
	// 16 of 101 rolls strike; allow a wide band.
	assert.Greater(t, plagues, 500)
	assert.Less(t, plagues, 1100)
}

func TestRandomEventsResumeFromMarshaledState(t *testing.T) {
	e := NewRandomEvents(7)
	for i := 0; i < 13; i++ {
		e.AcrePrice()
	}
	blob, err := e.MarshalBinary()
	require.NoError(t, err)

	want := make([]uint64, 8)
	for i := range want {
		want[i] = e.HarvestYield()
	}

	resumed := NewRandomEvents(12345)
	require.NoError(t, resumed.UnmarshalBinary(blob))
	for i := range want {
		assert.Equal(t, want[i], resumed.HarvestYield(), "draw %d", i)
	}
}

func TestSeededGameIsReproducible(t *testing.T) {
	play := func(seed uint64) ([]Outcome, []State) {
		c := NewCity(NewRandomEvents(seed))
		var outcomes []Outcome
		var states []State
		for !c.Terminated() {
			feed := min(c.Population()*20, c.Grain())
			plant := min(c.Area(), c.Population()*10, (c.Grain()-feed)*2)
			in, err := validate(t, c, rawRound{feed: feed, plant: plant})
			require.NoError(t, err)
			outcomes = append(outcomes, c.PlayRound(in))
			states = append(states, c.State())
		}
		return outcomes, states
	}

	for _, seed := range []uint64{1, 2, 2024} {
		o1, s1 := play(seed)
		o2, s2 := play(seed)
		assert.Equal(t, o1, o2, "seed %d", seed)
		assert.Equal(t, s1, s2, "seed %d", seed)
	}
}

func TestOpeningRoundIsReproducible(t *testing.T) {
	run := func() (Outcome, State) {
		c := NewCity(NewRandomEvents(42))
		in := mustInput(t, c, rawRound{feed: 2000, plant: 1000})
		return c.PlayRound(in), c.State()
	}
	o1, s1 := run()
	o2, s2 := run()

	assert.Equal(t, Continue{}, o1)
	assert.Equal(t, o1, o2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, uint64(2), s1.CurrentRound)
	assert.Equal(t, uint64(0), s1.DeadFromHunger)
	assert.Equal(t, uint64(1000), s1.Area)
	// 2800 in store, 500 seed and 2000 food spent, 1000 acres harvested.
	harvested := 300 + 1000*s1.GrainFromAcre
	assert.Equal(t, harvested, s1.Grain+s1.GrainEatenByRats)
	assert.LessOrEqual(t, s1.GrainEatenByRats, harvested*7/100)
}
