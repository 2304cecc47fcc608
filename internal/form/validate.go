package form

import (
	"fmt"
	"math/big"

	"github.com/mgvlab/kandel/internal/inventory"
	"github.com/mgvlab/kandel/internal/provision"
	"github.com/mgvlab/kandel/internal/tickmath"
)

// Validate re-runs all field checks and returns the current error map.
// An empty map means the form is submittable as far as local checks go.
func (f *Form) Validate() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() FieldErrors {
	errs := FieldErrors{}

	f.validatePricesLocked(errs)

	if f.fields.LevelsPerSide < 1 {
		errs[FieldLevels] = "at least one level per side is required"
	} else if int64(f.fields.PricePoints()) > maxUint32 {
		errs[FieldLevels] = "too many levels"
	}

	points := f.fields.PricePoints()
	if f.fields.StepSize < 1 {
		errs[FieldStepSize] = "step size must be at least 1"
	} else if f.fields.LevelsPerSide >= 1 && f.fields.StepSize >= points {
		errs[FieldStepSize] = fmt.Sprintf("step size must be below %d", points)
	}

	if !provision.ValidGasreq(f.fields.GasReq) {
		errs[FieldGasReq] = fmt.Sprintf("gas requirement must be between 1 and %d", provision.MaxGasreq)
	}

	baseAmt, err := parseAmount(f.fields.BaseAmount, f.deps.BaseInfo.Decimals)
	if err != nil {
		errs[FieldBase] = err.Error()
	}
	quoteAmt, err := parseAmount(f.fields.QuoteAmount, f.deps.QuoteInfo.Decimals)
	if err != nil {
		errs[FieldQuote] = err.Error()
	}

	// Price sanity done, now inventory feasibility and minimum volumes.
	if len(errs) == 0 {
		f.validateInventoryLocked(errs, baseAmt, quoteAmt)
	}
	return errs
}

// validatePricesLocked checks the price bounds. In edit mode untouched
// bounds came from the chain and are trusted as-is.
func (f *Form) validatePricesLocked(errs FieldErrors) {
	if f.initial != nil && !f.minPriceTouched && !f.maxPriceTouched {
		return
	}

	minPrice, minErr := parsePrice(f.fields.MinPrice)
	if minErr != nil {
		errs[FieldMinPrice] = minErr.Error()
	}
	maxPrice, maxErr := parsePrice(f.fields.MaxPrice)
	if maxErr != nil {
		errs[FieldMaxPrice] = maxErr.Error()
	}
	if minErr != nil || maxErr != nil {
		return
	}

	if minPrice >= maxPrice {
		errs[FieldMaxPrice] = "max price must be above min price"
		return
	}

	minTick, err := tickmath.MinPriceToTick(minPrice)
	if err != nil {
		errs[FieldMinPrice] = err.Error()
		return
	}
	maxTick, err := tickmath.MaxPriceToTick(maxPrice)
	if err != nil {
		errs[FieldMaxPrice] = err.Error()
		return
	}
	if !tickmath.ValidTick(minTick) {
		errs[FieldMinPrice] = "min price is out of range"
	}
	if !tickmath.ValidTick(maxTick) {
		errs[FieldMaxPrice] = "max price is out of range"
	}
	if minTick >= maxTick && errs[FieldMinPrice] == "" && errs[FieldMaxPrice] == "" {
		errs[FieldMaxPrice] = "price range is too narrow for distinct levels"
	}
}

// validateInventoryLocked resolves the inventory plan against current
// inputs and, when offer list configuration is available, checks each
// funded side against the market's minimum volume. A side running on the
// one-wei placeholder is exempt from the volume check.
func (f *Form) validateInventoryLocked(errs FieldErrors, baseAmt, quoteAmt *big.Int) {
	plan, err := f.resolvePlanLocked(baseAmt, quoteAmt)
	if err != nil {
		target := FieldBase
		if f.initial != nil {
			target = FieldQuote
		}
		errs[target] = err.Error()
		return
	}

	if f.configs == nil {
		// Offer list configuration not loaded yet. Skip the volume
		// check rather than block the user on a transient fetch.
		return
	}
	gasreq := new(big.Int).SetUint64(f.fields.GasReq)
	if !plan.AskGivesFallback && plan.AskGivesPerLevel.Sign() > 0 {
		min := provision.MinGives(f.configs.Ask.Density, f.configs.Ask.OfferGasbase, gasreq)
		if plan.AskGivesPerLevel.Cmp(min) < 0 {
			errs[FieldBase] = fmt.Sprintf(
				"base per level %s is below the market minimum %s", plan.AskGivesPerLevel, min)
		}
	}
	if !plan.BidGivesFallback && plan.BidGivesPerLevel.Sign() > 0 {
		min := provision.MinGives(f.configs.Bid.Density, f.configs.Bid.OfferGasbase, gasreq)
		if plan.BidGivesPerLevel.Cmp(min) < 0 {
			errs[FieldQuote] = fmt.Sprintf(
				"quote per level %s is below the market minimum %s", plan.BidGivesPerLevel, min)
		}
	}
}

// resolvePlanLocked builds the inventory input from current fields and runs
// the mode resolution.
func (f *Form) resolvePlanLocked(baseAmt, quoteAmt *big.Int) (inventory.Plan, error) {
	in := inventory.Input{
		Editing:       f.initial != nil,
		AddInventory:  f.fields.AddInventory,
		TypedBase:     baseAmt,
		TypedQuote:    quoteAmt,
		LevelsPerSide: f.fields.LevelsPerSide,
	}
	if f.initial != nil {
		in.Reserves = inventory.Snapshot{
			Base:  f.initial.Reserves.Base,
			Quote: f.initial.Reserves.Quote,
		}
	}
	return inventory.Resolve(in)
}
