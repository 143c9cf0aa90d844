package game

const (
	maxDeadPercent    = 45
	maxArrived        = 50
	arrivalGrainScale = 600
	arrivalYieldPivot = 5
)

// Outcome is one of Continue, GameOver or TermComplete.
type Outcome interface {
	outcome()
}

// Continue means the round was played and the term goes on.
type Continue struct{}

// GameOver means more than 45% of the population starved in one year. The
// term ends early.
type GameOver struct {
	DeadFromHunger uint64
}

// TermComplete means the tenth round finished without a game over.
type TermComplete struct {
	Population          uint64
	Area                uint64
	DeadFromHungerTotal uint64
}

func (Continue) outcome()     {}
func (GameOver) outcome()     {}
func (TermComplete) outcome() {}

// PlayRound applies one year: trade, planting, feeding, rats, migration,
// plague and the next land price, in that order. Once the city is
// terminated it returns the terminal outcome again and changes nothing.
func (c *City) PlayRound(input RoundInput) Outcome {
	if c.Terminated() {
		return c.Outcome()
	}
	c.currentRound++

	price := c.acrePrice

	buy := input.buy.acres
	c.area += buy
	c.grain = saturatingSub(c.grain, buy*price)

	sell := input.sell.acres
	c.area = saturatingSub(c.area, sell)
	c.grain += sell * price

	plant := input.plant.acres
	c.grainFromAcre = c.events.HarvestYield()
	c.grain += plant * c.grainFromAcre
	c.grain = saturatingSub(c.grain, seedForArea(plant))

	feed := input.feed.bushels
	left, dead := feedPeople(c.population, feed)
	c.grain += left
	c.grain = saturatingSub(c.grain, feed)

	populationBefore := c.population
	c.deadFromHunger = dead
	c.population = saturatingSub(c.population, dead)
	c.deadFromHungerTotal += dead
	if starvedTooMany(dead, populationBefore) {
		c.isGameOver = true
		return GameOver{DeadFromHunger: dead}
	}

	c.grainEatenByRats = c.grain * c.events.RatFactor() / ratDivisor
	c.grain -= c.grainEatenByRats

	c.arrived = countArrived(dead, c.grainFromAcre, c.grain)
	c.population += c.arrived

	c.isPlague = c.events.Plague()
	if c.isPlague {
		c.population /= 2
	}

	c.acrePrice = c.events.AcrePrice()

	if c.currentRound > LastRound {
		return c.termComplete()
	}
	return Continue{}
}

// Outcome reports where the term stands without playing a round: the
// terminal outcome once the city is terminated, Continue before that.
func (c *City) Outcome() Outcome {
	switch {
	case c.isGameOver:
		return GameOver{DeadFromHunger: c.deadFromHunger}
	case c.currentRound > LastRound:
		return c.termComplete()
	}
	return Continue{}
}

func (c *City) termComplete() TermComplete {
	return TermComplete{
		Population:          c.population,
		Area:                c.area,
		DeadFromHungerTotal: c.deadFromHungerTotal,
	}
}

// feedPeople returns the grain refunded above what the people need and how
// many starve. Each person eats 20 bushels a year.
func feedPeople(population, feed uint64) (left, dead uint64) {
	needed := saturatingMul(population, bushelsPerPerson)
	if needed > feed {
		return 0, (needed-feed-1)/bushelsPerPerson + 1
	}
	return feed - needed, 0
}

// starvedTooMany compares deaths against the population at the start of
// feeding. An empty city cannot starve.
func starvedTooMany(dead, population uint64) bool {
	if population == 0 {
		return false
	}
	return dead*100/population > maxDeadPercent
}

func countArrived(dead, grainFromAcre, grain uint64) uint64 {
	n := signed(dead)/2 + (arrivalYieldPivot-signed(grainFromAcre))*signed(grain)/arrivalGrainScale + 1
	switch {
	case n < 0:
		return 0
	case n > maxArrived:
		return maxArrived
	}
	return uint64(n)
}
