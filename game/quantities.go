package game

import (
	"fmt"
	"math/bits"
)

const (
	acresPerBushel   = 2
	acresPerPerson   = 10
	bushelsPerPerson = 20
)

// NotEnoughAreaError carries the acres the city owned when the check failed.
type NotEnoughAreaError struct {
	Area uint64
}

func (e *NotEnoughAreaError) Error() string {
	return fmt.Sprintf("not enough area: the city owns only %d acres", e.Area)
}

// NotEnoughGrainError carries the bushels in store when the check failed.
type NotEnoughGrainError struct {
	Grain uint64
}

func (e *NotEnoughGrainError) Error() string {
	return fmt.Sprintf("not enough grain: the city has only %d bushels", e.Grain)
}

// NotEnoughPeopleError carries the population when the check failed.
type NotEnoughPeopleError struct {
	Population uint64
}

func (e *NotEnoughPeopleError) Error() string {
	return fmt.Sprintf("not enough people: only %d people can tend the fields", e.Population)
}

// AreaToBuy, AreaToSell, GrainToFeed and AreaToPlant can only be built by
// their validators. A value proves the check passed against the city as it
// was at that moment; it reserves nothing.
type AreaToBuy struct{ acres uint64 }

type AreaToSell struct{ acres uint64 }

type GrainToFeed struct{ bushels uint64 }

type AreaToPlant struct{ acres uint64 }

func (a AreaToBuy) Acres() uint64     { return a.acres }
func (a AreaToSell) Acres() uint64    { return a.acres }
func (g GrainToFeed) Bushels() uint64 { return g.bushels }
func (a AreaToPlant) Acres() uint64   { return a.acres }

func NewAreaToBuy(acres uint64, c *City) (AreaToBuy, error) {
	if exceedsProduct(acres, c.acrePrice, c.grain) {
		return AreaToBuy{}, &NotEnoughGrainError{Grain: c.grain}
	}
	return AreaToBuy{acres: acres}, nil
}

func NewAreaToSell(acres uint64, c *City) (AreaToSell, error) {
	if acres > c.area {
		return AreaToSell{}, &NotEnoughAreaError{Area: c.area}
	}
	return AreaToSell{acres: acres}, nil
}

func NewGrainToFeed(bushels uint64, c *City) (GrainToFeed, error) {
	if bushels > c.grain {
		return GrainToFeed{}, &NotEnoughGrainError{Grain: c.grain}
	}
	return GrainToFeed{bushels: bushels}, nil
}

// NewAreaToPlant checks land first, then seed grain, then hands.
func NewAreaToPlant(acres uint64, c *City) (AreaToPlant, error) {
	if acres > c.area {
		return AreaToPlant{}, &NotEnoughAreaError{Area: c.area}
	}
	if acres > saturatingMul(c.grain, acresPerBushel) {
		return AreaToPlant{}, &NotEnoughGrainError{Grain: c.grain}
	}
	if acres > saturatingMul(c.population, acresPerPerson) {
		return AreaToPlant{}, &NotEnoughPeopleError{Population: c.population}
	}
	return AreaToPlant{acres: acres}, nil
}

func seedForArea(acres uint64) uint64 {
	return acres / acresPerBushel
}

// exceedsProduct reports whether a*b > limit without overflowing.
func exceedsProduct(a, b, limit uint64) bool {
	hi, lo := bits.Mul64(a, b)
	return hi != 0 || lo > limit
}

func saturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0)
	}
	return lo
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
