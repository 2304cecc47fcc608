package form

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/mgvlab/kandel/internal/chain"
	"github.com/mgvlab/kandel/internal/distribution"
	"github.com/mgvlab/kandel/internal/inventory"
	"github.com/mgvlab/kandel/internal/provision"
	"github.com/mgvlab/kandel/internal/tickmath"
)

// resolveTicksLocked turns the price bounds into ladder ticks. In edit mode
// untouched bounds reuse the on-chain ticks exactly, so a no-op edit never
// moves the ladder through float rounding.
func (f *Form) resolveTicksLocked() (minTick, maxTick int64, err error) {
	if f.initial != nil && !f.minPriceTouched && !f.maxPriceTouched {
		return f.initial.MinTick(), f.initial.MaxTick(), nil
	}
	minPrice, err := parsePrice(f.fields.MinPrice)
	if err != nil {
		return 0, 0, err
	}
	maxPrice, err := parsePrice(f.fields.MaxPrice)
	if err != nil {
		return 0, 0, err
	}
	minTick, err = tickmath.MinPriceToTick(minPrice)
	if err != nil {
		return 0, 0, err
	}
	maxTick, err = tickmath.MaxPriceToTick(maxPrice)
	if err != nil {
		return 0, 0, err
	}
	if minTick >= maxTick {
		return 0, 0, errors.New("price range is too narrow for distinct levels")
	}
	return minTick, maxTick, nil
}

// gridLocked resolves the current fields into concrete ladder parameters
// and the matching inventory plan.
func (f *Form) gridLocked() (distribution.Params, inventory.Plan, error) {
	baseAmt, err := parseAmount(f.fields.BaseAmount, f.deps.BaseInfo.Decimals)
	if err != nil {
		return distribution.Params{}, inventory.Plan{}, err
	}
	quoteAmt, err := parseAmount(f.fields.QuoteAmount, f.deps.QuoteInfo.Decimals)
	if err != nil {
		return distribution.Params{}, inventory.Plan{}, err
	}
	plan, err := f.resolvePlanLocked(baseAmt, quoteAmt)
	if err != nil {
		return distribution.Params{}, inventory.Plan{}, err
	}
	minTick, maxTick, err := f.resolveTicksLocked()
	if err != nil {
		return distribution.Params{}, inventory.Plan{}, err
	}

	levels := f.fields.LevelsPerSide
	points := f.fields.PricePoints()
	offset := (maxTick - minTick) / int64(points-1)
	if offset < 1 {
		offset = 1
	}
	params := distribution.Params{
		BaseQuoteTickIndex0: minTick + int64(levels)*offset,
		TickOffset:          offset,
		FirstAskIndex:       levels,
		PricePoints:         points,
		StepSize:            f.fields.StepSize,
		BidGives:            bidGivesOf(plan),
		AskGives:            askGivesOf(plan),
	}
	return params, plan, nil
}

func askGivesOf(plan inventory.Plan) *big.Int {
	if plan.AskGivesFallback {
		return big.NewInt(1)
	}
	return plan.AskGivesPerLevel
}

func bidGivesOf(plan inventory.Plan) *big.Int {
	if plan.BidGivesFallback {
		return big.NewInt(1)
	}
	return plan.BidGivesPerLevel
}

// scheduleRecomputeLocked restarts the debounced provision estimate. Each
// call invalidates any estimate in flight: the generation counter makes a
// late result from a superseded computation drop on the floor.
func (f *Form) scheduleRecomputeLocked() {
	f.recomputeGen++
	gen := f.recomputeGen
	if f.recomputeCancel != nil {
		f.recomputeCancel()
		f.recomputeCancel = nil
	}
	if f.recomputeTimer != nil {
		f.recomputeTimer.Stop()
		f.recomputeTimer = nil
	}
	if len(f.validateLocked()) > 0 {
		f.estimate = nil
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.recomputeCancel = cancel
	f.recomputeTimer = time.AfterFunc(f.recomputeWait, func() {
		f.recompute(ctx, gen)
	})
}

// recompute fetches per-offer provision quotes and publishes a fresh
// estimate, unless a newer edit superseded this run in the meantime.
func (f *Form) recompute(ctx context.Context, gen uint64) {
	f.mu.Lock()
	if gen != f.recomputeGen {
		f.mu.Unlock()
		return
	}
	params, _, err := f.gridLocked()
	gasreq := new(big.Int).SetUint64(f.fields.GasReq)
	initial := f.initial
	f.mu.Unlock()
	if err != nil {
		f.log.WithError(err).Debug("skipping provision estimate")
		return
	}

	ladder, err := distribution.Build(params)
	if err != nil {
		f.log.WithError(err).Debug("skipping provision estimate")
		return
	}
	askCount := int64(ladder.LiveAsks())
	bidCount := int64(ladder.LiveBids())

	perAsk, err := f.deps.Reader.ProvisionQuote(ctx, chain.Asks, gasreq)
	if err != nil {
		f.log.WithError(err).Debug("provision quote unavailable")
		return
	}
	perBid, err := f.deps.Reader.ProvisionQuote(ctx, chain.Bids, gasreq)
	if err != nil {
		f.log.WithError(err).Debug("provision quote unavailable")
		return
	}

	total := new(big.Int).Add(
		provision.Total(perAsk, askCount),
		provision.Total(perBid, bidCount),
	)
	missing, err := f.missingProvision(ctx, initial, perAsk, perBid, total)
	if err != nil {
		f.log.WithError(err).Debug("free balance unavailable")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.recomputeGen {
		return
	}
	f.estimate = &Estimate{
		PerAsk:   perAsk,
		PerBid:   perBid,
		Total:    total,
		Missing:  missing,
		AskCount: int(askCount),
		BidCount: int(bidCount),
		At:       time.Now(),
	}
}

// missingProvision computes how much native currency the populate call must
// attach. A new position has nothing locked or free. An existing one reuses
// the provision already locked on its live offers plus its free balance.
func (f *Form) missingProvision(ctx context.Context, initial *InitialValues, perAsk, perBid, total *big.Int) (*big.Int, error) {
	if initial == nil {
		return provision.Missing(total, big.NewInt(0), big.NewInt(0)), nil
	}
	free, err := f.deps.Reader.FreeBalance(ctx, initial.Position)
	if err != nil {
		return nil, err
	}
	locked, err := f.lockedProvision(ctx, initial, perAsk, perBid)
	if err != nil {
		return nil, err
	}
	return provision.Missing(total, locked, free), nil
}

// lockedProvision approximates the provision held by the position's current
// ladder. A side with zero offered volume holds no live offers and
// contributes nothing.
func (f *Form) lockedProvision(ctx context.Context, initial *InitialValues, perAsk, perBid *big.Int) (*big.Int, error) {
	askVol, err := f.deps.Reader.OfferedVolume(ctx, initial.Position, chain.Asks)
	if err != nil {
		return nil, err
	}
	bidVol, err := f.deps.Reader.OfferedVolume(ctx, initial.Position, chain.Bids)
	if err != nil {
		return nil, err
	}
	step := int64(initial.StepSize)
	levels := int64(initial.LevelsPerSide)
	locked := new(big.Int)
	if askVol.Sign() > 0 {
		liveAsks := levels - step/2
		locked.Add(locked, provision.Total(perAsk, liveAsks))
	}
	if bidVol.Sign() > 0 {
		liveBids := levels - (step/2 + step%2)
		locked.Add(locked, provision.Total(perBid, liveBids))
	}
	return locked, nil
}
