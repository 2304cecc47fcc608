// Package distribution simulates the geometric offer ladder a position will
// post: one monotonic grid of price levels, the lower half bids and the upper
// half asks, with step-size dual slots left empty. The simulation is pure and
// cheap; it runs on every debounced recalculation to obtain the true number
// of live offers per side for provision sizing.
package distribution

import (
	"fmt"
	"math/big"

	"github.com/mgvlab/kandel/internal/tickmath"
)

// Params describe one ladder. Gives amounts are uniform per live level on
// each side; a nil amount is treated as zero.
type Params struct {
	// BaseQuoteTickIndex0 is the tick of the lowest ask (the level at
	// FirstAskIndex).
	BaseQuoteTickIndex0 int64
	// TickOffset is the tick distance between adjacent levels. Zero is
	// invalid and clamped to 1.
	TickOffset int64
	// FirstAskIndex splits the grid: levels below it are bids.
	FirstAskIndex int
	// PricePoints is the total number of levels.
	PricePoints int
	// StepSize is the index distance between an offer and its dual.
	StepSize int

	BidGives *big.Int
	AskGives *big.Int
}

// Slot is one price level of the ladder. Gives of zero marks a dual slot
// that is created retracted and holds no live offer.
type Slot struct {
	Index int
	Tick  int64
	Gives *big.Int
}

// Distribution holds both sides of the ladder, each ordered by index.
type Distribution struct {
	Bids []Slot
	Asks []Slot
}

// Build derives the full ladder. The step-size hole around FirstAskIndex is
// split with the larger half on the bid side: a live ask's dual bid sits
// stepSize below it, so ceil(step/2) bid slots and floor(step/2) ask slots
// next to the boundary stay empty.
func Build(p Params) (Distribution, error) {
	if p.PricePoints < 2 {
		return Distribution{}, fmt.Errorf("distribution: need at least 2 price points, got %d", p.PricePoints)
	}
	if p.StepSize < 1 || p.StepSize >= p.PricePoints {
		return Distribution{}, fmt.Errorf("distribution: step size %d outside [1,%d)", p.StepSize, p.PricePoints)
	}
	if p.FirstAskIndex < 0 || p.FirstAskIndex > p.PricePoints {
		return Distribution{}, fmt.Errorf("distribution: first ask index %d outside grid of %d points", p.FirstAskIndex, p.PricePoints)
	}
	offset := p.TickOffset
	if offset < 1 {
		offset = 1
	}

	lowTick := p.BaseQuoteTickIndex0 - int64(p.FirstAskIndex)*offset
	highTick := lowTick + int64(p.PricePoints-1)*offset
	if !tickmath.ValidTick(lowTick) || !tickmath.ValidTick(highTick) {
		return Distribution{}, fmt.Errorf("distribution: ladder [%d,%d] outside tick bounds", lowTick, highTick)
	}

	bidHole := p.StepSize/2 + p.StepSize%2
	bidBound := p.FirstAskIndex - bidHole
	if bidBound < 0 {
		bidBound = 0
	}
	askBound := p.FirstAskIndex + p.StepSize/2
	if askBound > p.PricePoints {
		askBound = p.PricePoints
	}

	bidGives := p.BidGives
	if bidGives == nil {
		bidGives = new(big.Int)
	}
	askGives := p.AskGives
	if askGives == nil {
		askGives = new(big.Int)
	}

	d := Distribution{
		Bids: make([]Slot, 0, p.FirstAskIndex),
		Asks: make([]Slot, 0, p.PricePoints-p.FirstAskIndex),
	}
	for index := 0; index < p.PricePoints; index++ {
		tick := p.BaseQuoteTickIndex0 + int64(index-p.FirstAskIndex)*offset
		if index < p.FirstAskIndex {
			gives := new(big.Int)
			if index < bidBound {
				gives.Set(bidGives)
			}
			// Bids are quoted on the inverted offer list, so their
			// tick is the negated base-quote tick.
			d.Bids = append(d.Bids, Slot{Index: index, Tick: -tick, Gives: gives})
		} else {
			gives := new(big.Int)
			if index >= askBound {
				gives.Set(askGives)
			}
			d.Asks = append(d.Asks, Slot{Index: index, Tick: tick, Gives: gives})
		}
	}
	return d, nil
}

// LiveBids returns the number of bid slots with non-zero gives.
func (d Distribution) LiveBids() int { return countLive(d.Bids) }

// LiveAsks returns the number of ask slots with non-zero gives.
func (d Distribution) LiveAsks() int { return countLive(d.Asks) }

func countLive(slots []Slot) int {
	n := 0
	for _, s := range slots {
		if s.Gives != nil && s.Gives.Sign() > 0 {
			n++
		}
	}
	return n
}

// MinTick returns the lowest base-quote tick of the ladder.
func (p Params) MinTick() int64 {
	offset := p.TickOffset
	if offset < 1 {
		offset = 1
	}
	return p.BaseQuoteTickIndex0 - int64(p.FirstAskIndex)*offset
}

// MaxTick returns the highest base-quote tick of the ladder.
func (p Params) MaxTick() int64 {
	offset := p.TickOffset
	if offset < 1 {
		offset = 1
	}
	return p.MinTick() + int64(p.PricePoints-1)*offset
}
