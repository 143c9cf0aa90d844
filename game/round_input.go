package game

import "math"

// RoundInput is the four quantities of one round after a joint check: the
// validators each assume no other transaction happens, so the combination
// is re-checked before anything mutates.
type RoundInput struct {
	buy   AreaToBuy
	sell  AreaToSell
	feed  GrainToFeed
	plant AreaToPlant
}

// NewRoundInput fails with *NotEnoughAreaError when the land sold and
// planted, less the land bought, exceeds the city's area, and with
// *NotEnoughGrainError when purchases, food and seed, less sale proceeds,
// exceed the grain in store. Net values may be negative.
func NewRoundInput(buy AreaToBuy, sell AreaToSell, feed GrainToFeed, plant AreaToPlant, c *City) (RoundInput, error) {
	area := signed(c.area)
	grain := signed(c.grain)
	price := signed(c.acrePrice)

	areaNeeded := signed(sell.acres) + signed(plant.acres) - signed(buy.acres)
	if areaNeeded > area {
		return RoundInput{}, &NotEnoughAreaError{Area: c.area}
	}

	grainNeeded := signed(buy.acres)*price +
		signed(feed.bushels) +
		signed(seedForArea(plant.acres)) -
		signed(sell.acres)*price
	if grainNeeded > grain {
		return RoundInput{}, &NotEnoughGrainError{Grain: c.grain}
	}

	return RoundInput{buy: buy, sell: sell, feed: feed, plant: plant}, nil
}

func (r RoundInput) AreaToBuy() AreaToBuy     { return r.buy }
func (r RoundInput) AreaToSell() AreaToSell   { return r.sell }
func (r RoundInput) GrainToFeed() GrainToFeed { return r.feed }
func (r RoundInput) AreaToPlant() AreaToPlant { return r.plant }

func signed(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
