// Package tickmath converts between human-readable prices and the
// protocol's log-scale integer ticks, where price = 1.0001^tick.
package tickmath

import (
	"errors"
	"math"
)

// TickBase is the price ratio between two adjacent ticks.
const TickBase = 1.0001

// MinTick and MaxTick bound the tick range accepted by the protocol.
const (
	MinTick int64 = -887272
	MaxTick int64 = 887272
)

var (
	ErrNonPositivePrice = errors.New("tickmath: price must be positive")
	ErrTickOutOfBounds  = errors.New("tickmath: tick out of bounds")
)

var logTickBase = math.Log(TickBase)

// tickTolerance absorbs float64 noise from the log/pow round trip so a
// price sitting exactly on a tick resolves to that tick from both
// directions. The noise grows roughly linearly with |tick| and stays below
// 1e-6 even at the protocol bounds; the tolerance sits above that and still
// five orders of magnitude below one tick, so it never moves a genuinely
// in-between price.
const tickTolerance = 1e-5

// snapTick pulls a fractional tick onto the nearest integer when it lies
// within tolerance, before any directional rounding.
func snapTick(t float64) float64 {
	nearest := math.Round(t)
	if math.Abs(t-nearest) <= tickTolerance {
		return nearest
	}
	return t
}

// PriceToTick returns the exact (fractional) tick for a price.
// The caller picks the rounding direction via MinPriceToTick / MaxPriceToTick.
func PriceToTick(price float64) (float64, error) {
	if !(price > 0) || math.IsInf(price, 1) {
		return 0, ErrNonPositivePrice
	}
	return math.Log(price) / logTickBase, nil
}

// MinPriceToTick converts a minimum price bound to a tick, rounding down so
// the realized range never shrinks below what was requested.
func MinPriceToTick(price float64) (int64, error) {
	t, err := PriceToTick(price)
	if err != nil {
		return 0, err
	}
	return clampTick(int64(math.Floor(snapTick(t))))
}

// MaxPriceToTick converts a maximum price bound to a tick, rounding up.
func MaxPriceToTick(price float64) (int64, error) {
	t, err := PriceToTick(price)
	if err != nil {
		return 0, err
	}
	return clampTick(int64(math.Ceil(snapTick(t))))
}

// TickToPrice returns 1.0001^tick.
func TickToPrice(tick int64) float64 {
	return math.Pow(TickBase, float64(tick))
}

// ValidTick reports whether tick lies inside the protocol bounds.
func ValidTick(tick int64) bool {
	return tick >= MinTick && tick <= MaxTick
}

func clampTick(tick int64) (int64, error) {
	if !ValidTick(tick) {
		return 0, ErrTickOutOfBounds
	}
	return tick, nil
}
