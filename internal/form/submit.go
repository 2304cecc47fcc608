package form

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/mgvlab/kandel/internal/chain"
	"github.com/mgvlab/kandel/internal/distribution"
	"github.com/mgvlab/kandel/internal/inventory"
	"github.com/mgvlab/kandel/internal/notify"
	"github.com/mgvlab/kandel/internal/provision"
)

// Submit runs the full deployment sequence: deploy the position when
// creating, approve token transfers, retract a restructured ladder, and
// repopulate it with fresh provision attached. On any failure the form
// lands in the failed state with a classified error; a later edit resets it.
func (f *Form) Submit(ctx context.Context) (common.Address, error) {
	f.mu.Lock()
	if f.status == StatusSubmitting {
		f.mu.Unlock()
		return common.Address{}, ErrValidation
	}
	if errs := f.validateLocked(); len(errs) > 0 {
		f.mu.Unlock()
		return common.Address{}, ErrValidation
	}
	dirty := f.dirtyLocked()
	if f.initial != nil && !dirty.Any() {
		f.mu.Unlock()
		return common.Address{}, ErrNothingToSubmit
	}
	params, plan, err := f.gridLocked()
	if err != nil {
		f.mu.Unlock()
		return common.Address{}, err
	}
	if params.AskGives.Sign() == 0 && params.BidGives.Sign() == 0 {
		f.mu.Unlock()
		return common.Address{}, ErrBothSidesEmpty
	}
	if f.status == StatusSuccess || f.status == StatusFailed {
		f.transition(StatusIdle)
	}
	f.transition(StatusSubmitting)
	gasreq := f.fields.GasReq
	stepSize := f.fields.StepSize
	points := f.fields.PricePoints()
	initial := f.initial
	f.mu.Unlock()

	position, err := f.runSubmit(ctx, initial, params, plan, gasreq, stepSize, points, dirty)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.transition(StatusFailed)
		return common.Address{}, err
	}
	f.transition(StatusSuccess)
	if f.deps.OnComplete != nil {
		f.deps.OnComplete(position)
	}
	return position, nil
}

func (f *Form) runSubmit(
	ctx context.Context,
	initial *InitialValues,
	params distribution.Params,
	plan inventory.Plan,
	gasreq uint64,
	stepSize, points int,
	dirty DirtySet,
) (common.Address, error) {
	log := f.log.WithField("mode", plan.Mode)

	var position common.Address
	if initial == nil {
		var err error
		position, err = f.deployStep(ctx)
		if err != nil {
			return common.Address{}, err
		}
		log = log.WithField("position", position.Hex())
		log.Info("position deployed")
	} else {
		position = initial.Position
		log = log.WithField("position", position.Hex())
	}

	if err := f.approveStep(ctx, position, f.deps.Market.Base, "approve base", plan.NeedsBaseApproval, plan.BaseToSend); err != nil {
		return common.Address{}, err
	}
	if err := f.approveStep(ctx, position, f.deps.Market.Quote, "approve quote", plan.NeedsQuoteApproval, plan.QuoteToSend); err != nil {
		return common.Address{}, err
	}

	ladder, err := distribution.Build(params)
	if err != nil {
		return common.Address{}, err
	}
	missing, err := f.provisionStep(ctx, initial, ladder, gasreq)
	if err != nil {
		return common.Address{}, err
	}

	// A restructured ladder must drop its old offers first, otherwise
	// stale levels outside the new range keep trading.
	if initial != nil && (dirty.MinMax || dirty.Levels || dirty.Step) {
		oldPoints := int64(initial.Params.PricePoints)
		if err := f.txStep(ctx, "retract offers", func(ctx context.Context) error {
			return f.deps.Writer.RetractOffers(ctx, position, 0, oldPoints)
		}); err != nil {
			return common.Address{}, err
		}
	}

	populate := chain.PopulateParams{
		From:                0,
		To:                  int64(points),
		BaseQuoteTickIndex0: params.BaseQuoteTickIndex0,
		TickOffset:          params.TickOffset,
		FirstAskIndex:       int64(params.FirstAskIndex),
		BidGives:            params.BidGives,
		AskGives:            params.AskGives,
		Params: chain.Params{
			GasPrice:    new(big.Int),
			GasReq:      new(big.Int).SetUint64(gasreq),
			StepSize:    uint32(stepSize),
			PricePoints: uint32(points),
		},
		BaseAmount:  plan.BaseToSend,
		QuoteAmount: plan.QuoteToSend,
		Value:       missing,
	}
	if err := f.txStep(ctx, "populate ladder", func(ctx context.Context) error {
		return f.deps.Writer.Populate(ctx, position, populate)
	}); err != nil {
		return common.Address{}, err
	}

	log.WithFields(logrus.Fields{
		"asks":      ladder.LiveAsks(),
		"bids":      ladder.LiveBids(),
		"provision": missing,
	}).Info("ladder populated")
	return position, nil
}

// deployStep deploys a fresh position through the seeder.
func (f *Form) deployStep(ctx context.Context) (common.Address, error) {
	id := f.deps.Notifier.Begin("deploy position")
	f.deps.Notifier.Update(id, notify.StageSigning, "")
	position, err := f.deps.Writer.Seed(ctx)
	if err != nil {
		serr := classifyTxError(err)
		f.deps.Notifier.Update(id, notify.StageFailed, serr.Message)
		return common.Address{}, serr
	}
	f.deps.Notifier.Update(id, notify.StageSuccess, position.Hex())
	return position, nil
}

// approveStep grants the position a transfer allowance for one token when
// the plan needs it. Amounts of zero never need approval.
func (f *Form) approveStep(ctx context.Context, position, token common.Address, label string, needed bool, amount *big.Int) error {
	if !needed || amount == nil || amount.Sign() == 0 {
		return nil
	}
	return f.txStep(ctx, label, func(ctx context.Context) error {
		return f.deps.Writer.ApproveIfNeeded(ctx, token, position, amount)
	})
}

// provisionStep quotes the per-offer provision at submit time and computes
// the exact native value to attach. Submit never trusts the debounced
// estimate; the gas price may have moved since it resolved.
func (f *Form) provisionStep(ctx context.Context, initial *InitialValues, ladder distribution.Distribution, gasreq uint64) (*big.Int, error) {
	g := new(big.Int).SetUint64(gasreq)
	perAsk, err := f.deps.Reader.ProvisionQuote(ctx, chain.Asks, g)
	if err != nil {
		return nil, &SubmitError{Message: "Could not quote the required provision; please retry.", Err: err}
	}
	perBid, err := f.deps.Reader.ProvisionQuote(ctx, chain.Bids, g)
	if err != nil {
		return nil, &SubmitError{Message: "Could not quote the required provision; please retry.", Err: err}
	}
	total := new(big.Int).Add(
		provision.Total(perAsk, int64(ladder.LiveAsks())),
		provision.Total(perBid, int64(ladder.LiveBids())),
	)
	missing, err := f.missingProvision(ctx, initial, perAsk, perBid, total)
	if err != nil {
		return nil, &SubmitError{Message: "Could not read the provision balance; please retry.", Err: err}
	}
	return missing, nil
}

// txStep wraps one state-changing call with the notifier lifecycle.
func (f *Form) txStep(ctx context.Context, label string, run func(context.Context) error) error {
	id := f.deps.Notifier.Begin(label)
	f.deps.Notifier.Update(id, notify.StageSigning, "")
	if err := run(ctx); err != nil {
		serr := classifyTxError(err)
		f.deps.Notifier.Update(id, notify.StageFailed, serr.Message)
		return serr
	}
	f.deps.Notifier.Update(id, notify.StageSuccess, "")
	return nil
}

// SubmitLabel summarizes the pending action for presentation.
func (f *Form) SubmitLabel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initial == nil {
		return "Deploy position"
	}
	return fmt.Sprintf("Update position %s", f.initial.Position.Hex())
}
