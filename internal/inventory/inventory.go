// Package inventory decides where the base and quote amounts of a submission
// come from: the user's wallet (fresh create), the wallet plus the position's
// existing reserves (top-up), or the reserves alone (reuse).
package inventory

import (
	"errors"
	"fmt"
	"math/big"
)

// Mode is the token-sourcing mode of one submission. Exactly one applies.
type Mode int

const (
	// ModeCreate funds the grid entirely from user-typed amounts.
	ModeCreate Mode = iota
	// ModeTopUp adds user-typed deltas on top of existing reserves.
	ModeTopUp
	// ModeReuse redistributes existing reserves without new deposits.
	ModeReuse
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeTopUp:
		return "top-up"
	case ModeReuse:
		return "reuse"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Snapshot is the position's current on-chain reserve balance.
type Snapshot struct {
	Base  *big.Int
	Quote *big.Int
}

// Input collects everything mode selection depends on.
type Input struct {
	Editing      bool
	AddInventory bool
	Reserves     Snapshot
	// TypedBase / TypedQuote are the user-typed wallet amounts, already in
	// smallest token units. Nil means zero.
	TypedBase     *big.Int
	TypedQuote    *big.Int
	LevelsPerSide int
}

// Plan is the resolved sourcing decision.
type Plan struct {
	Mode Mode

	// BaseTotal / QuoteTotal feed the grid builder's per-level division.
	BaseTotal  *big.Int
	QuoteTotal *big.Int

	// BaseToSend / QuoteToSend are the contract-facing deposit amounts:
	// the full amount in create mode, the delta in top-up mode, zero in
	// reuse mode.
	BaseToSend  *big.Int
	QuoteToSend *big.Int

	// AskGivesPerLevel / BidGivesPerLevel are the uniform per-level
	// amounts on each side.
	AskGivesPerLevel *big.Int
	BidGivesPerLevel *big.Int

	// AskGivesFallback / BidGivesFallback flag a side whose per-level
	// amount is the 1-unit placeholder for an empty reserve side. Such a
	// side is intentionally one-sided: it is exempt from the reserve
	// guard and from min-volume validation.
	AskGivesFallback bool
	BidGivesFallback bool

	// NeedsBaseApproval / NeedsQuoteApproval report whether a fresh token
	// allowance check is required before populating.
	NeedsBaseApproval  bool
	NeedsQuoteApproval bool
}

var ErrNoLevels = errors.New("inventory: levels per side must be positive")

// Resolve picks the sourcing mode and derives the plan.
//
// Editing a position whose reserves are both zero always forces top-up:
// reuse mode is meaningless with nothing to reuse.
func Resolve(in Input) (Plan, error) {
	if in.LevelsPerSide < 1 {
		return Plan{}, ErrNoLevels
	}
	typedBase := orZero(in.TypedBase)
	typedQuote := orZero(in.TypedQuote)
	resBase := orZero(in.Reserves.Base)
	resQuote := orZero(in.Reserves.Quote)

	forceAdd := in.Editing && resBase.Sign() == 0 && resQuote.Sign() == 0

	switch {
	case !in.Editing:
		return createPlan(typedBase, typedQuote, in.LevelsPerSide), nil
	case in.AddInventory || forceAdd:
		return topUpPlan(typedBase, typedQuote, resBase, resQuote, in.LevelsPerSide), nil
	default:
		return reusePlan(resBase, resQuote, in.LevelsPerSide)
	}
}

func createPlan(base, quote *big.Int, levels int) Plan {
	return Plan{
		Mode:               ModeCreate,
		BaseTotal:          base,
		QuoteTotal:         quote,
		BaseToSend:         base,
		QuoteToSend:        quote,
		AskGivesPerLevel:   divLevels(base, levels),
		BidGivesPerLevel:   divLevels(quote, levels),
		NeedsBaseApproval:  base.Sign() > 0,
		NeedsQuoteApproval: quote.Sign() > 0,
	}
}

func topUpPlan(deltaBase, deltaQuote, resBase, resQuote *big.Int, levels int) Plan {
	totalBase := new(big.Int).Add(resBase, deltaBase)
	totalQuote := new(big.Int).Add(resQuote, deltaQuote)
	return Plan{
		Mode:       ModeTopUp,
		BaseTotal:  totalBase,
		QuoteTotal: totalQuote,
		// The contract already holds the reserves; only the delta moves.
		BaseToSend:         deltaBase,
		QuoteToSend:        deltaQuote,
		AskGivesPerLevel:   divLevels(totalBase, levels),
		BidGivesPerLevel:   divLevels(totalQuote, levels),
		NeedsBaseApproval:  deltaBase.Sign() > 0,
		NeedsQuoteApproval: deltaQuote.Sign() > 0,
	}
}

func reusePlan(resBase, resQuote *big.Int, levels int) (Plan, error) {
	p := Plan{
		Mode:        ModeReuse,
		BaseTotal:   resBase,
		QuoteTotal:  resQuote,
		BaseToSend:  new(big.Int),
		QuoteToSend: new(big.Int),
	}
	p.AskGivesPerLevel, p.AskGivesFallback = reuseGives(resBase, levels)
	p.BidGivesPerLevel, p.BidGivesFallback = reuseGives(resQuote, levels)

	// Guard against integer-division rounding implying more than we hold.
	// A fallback side holds nothing by construction and is exempt.
	if !p.AskGivesFallback {
		if need := mulLevels(p.AskGivesPerLevel, levels); need.Cmp(resBase) > 0 {
			return Plan{}, reuseShortfallError("base", need, resBase)
		}
	}
	if !p.BidGivesFallback {
		if need := mulLevels(p.BidGivesPerLevel, levels); need.Cmp(resQuote) > 0 {
			return Plan{}, reuseShortfallError("quote", need, resQuote)
		}
	}
	return p, nil
}

// reuseGives divides a reserve side over the levels. An empty side falls
// back to the minimum token unit so the ladder shape is preserved.
func reuseGives(reserve *big.Int, levels int) (*big.Int, bool) {
	if reserve.Sign() == 0 {
		return big.NewInt(1), true
	}
	return divLevels(reserve, levels), false
}

func reuseShortfallError(side string, need, have *big.Int) error {
	return fmt.Errorf("inventory: reusing reserves needs %s %s but the position only holds %s; enable top-up to add funds", side, need, have)
}

func divLevels(total *big.Int, levels int) *big.Int {
	return new(big.Int).Quo(total, big.NewInt(int64(levels)))
}

func mulLevels(perLevel *big.Int, levels int) *big.Int {
	return new(big.Int).Mul(perLevel, big.NewInt(int64(levels)))
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
