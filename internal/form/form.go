// Package form owns the position create/edit workflow: it holds the
// user-editable fields, validates them continuously, recomputes the required
// provision as inputs change, and drives the approve/retract/populate
// sequence on submit.
package form

import (
	"context"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/mgvlab/kandel/internal/chain"
	"github.com/mgvlab/kandel/internal/notify"
	"github.com/mgvlab/kandel/internal/tickmath"
	"github.com/mgvlab/kandel/internal/tokens"
	"github.com/mgvlab/kandel/pkg/logger"
)

// Reader is the read side of the chain. All methods may fail; the form
// treats a failed read like a not-yet-loaded one.
type Reader interface {
	StaticParams(ctx context.Context, position common.Address) (chain.StaticParams, error)
	Params(ctx context.Context, position common.Address) (chain.Params, error)
	BaseQuoteTickOffset(ctx context.Context, position common.Address) (*big.Int, error)
	FirstAskTick(ctx context.Context, position common.Address, firstAskIndex int64) (int64, error)
	Reserves(ctx context.Context, position common.Address) (chain.Reserves, error)
	OfferedVolume(ctx context.Context, position common.Address, side chain.Side) (*big.Int, error)
	LocalConfigs(ctx context.Context) (chain.LocalConfigs, error)
	ProvisionQuote(ctx context.Context, side chain.Side, gasreq *big.Int) (*big.Int, error)
	FreeBalance(ctx context.Context, maker common.Address) (*big.Int, error)
}

// Writer is the write side of the chain. Each method wraps one
// state-changing call and may throw.
type Writer interface {
	Seed(ctx context.Context) (common.Address, error)
	ApproveIfNeeded(ctx context.Context, token, spender common.Address, amount *big.Int) error
	RetractOffers(ctx context.Context, position common.Address, from, to int64) error
	Populate(ctx context.Context, position common.Address, p chain.PopulateParams) error
}

// Deps are the form's collaborators.
type Deps struct {
	Reader   Reader
	Writer   Writer
	Notifier notify.Notifier
	Market   chain.Market
	// BaseInfo / QuoteInfo supply token decimals for amount parsing,
	// typically resolved through the tokens registry.
	BaseInfo  tokens.Info
	QuoteInfo tokens.Info
	// OnComplete is invoked with the position address after a successful
	// submit.
	OnComplete func(common.Address)
}

const (
	defaultGasReq   = 160_000
	defaultLevels   = 5
	defaultStepSize = 1
	recomputeDelay  = 300 * time.Millisecond
	maxUint32       = int64(^uint32(0))
)

// Form is the explicit state object behind the position create/edit screen.
// A single Form instance is the only writer of its own state; external
// callers go through its methods, which serialize on the internal mutex.
type Form struct {
	mu   sync.Mutex
	deps Deps
	log  *logrus.Entry

	status Status
	fields Fields

	// Edit mode: snapshot of on-chain values at load time, nil when
	// creating a new position.
	initial         *InitialValues
	minPriceTouched bool
	maxPriceTouched bool

	// Read-side state; nil until the corresponding fetch resolves.
	configs  *chain.LocalConfigs
	estimate *Estimate

	// Debounce bookkeeping for the provision recomputation.
	recomputeGen    uint64
	recomputeTimer  *time.Timer
	recomputeCancel context.CancelFunc
	recomputeWait   time.Duration
}

// New creates a form in create mode with default grid parameters.
func New(deps Deps) *Form {
	if deps.Notifier == nil {
		deps.Notifier = notify.NopNotifier{}
	}
	return &Form{
		deps: deps,
		log:  logger.WithField("component", "form"),
		fields: Fields{
			LevelsPerSide: defaultLevels,
			StepSize:      defaultStepSize,
			GasReq:        defaultGasReq,
		},
		recomputeWait: recomputeDelay,
	}
}

// RefreshConfigs fetches both offer lists' configuration. Until it succeeds
// the min-volume validation degrades to a no-op.
func (f *Form) RefreshConfigs(ctx context.Context) {
	configs, err := f.deps.Reader.LocalConfigs(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.log.WithError(err).Debug("local configs unavailable")
		f.configs = nil
		return
	}
	f.configs = &configs
}

// LoadExisting switches the form into edit mode: it reads the position's
// on-chain parameters, captures the initial snapshot, and pre-populates the
// editable fields from it.
func (f *Form) LoadExisting(ctx context.Context, position common.Address) error {
	params, err := f.deps.Reader.Params(ctx, position)
	if err != nil {
		return err
	}
	offset, err := f.deps.Reader.BaseQuoteTickOffset(ctx, position)
	if err != nil {
		return err
	}
	reserves, err := f.deps.Reader.Reserves(ctx, position)
	if err != nil {
		return err
	}
	levels := int(params.PricePoints) / 2
	index0, err := f.deps.Reader.FirstAskTick(ctx, position, int64(levels))
	if err != nil {
		return err
	}

	initial := &InitialValues{
		Position:            position,
		BaseQuoteTickIndex0: index0,
		TickOffset:          offset.Int64(),
		LevelsPerSide:       levels,
		StepSize:            int(params.StepSize),
		GasReq:              params.GasReq.Uint64(),
		Reserves:            reserves,
		Params:              params,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.initial = initial
	f.minPriceTouched = false
	f.maxPriceTouched = false
	f.fields = Fields{
		MinPrice:      formatPrice(tickmath.TickToPrice(initial.MinTick())),
		MaxPrice:      formatPrice(tickmath.TickToPrice(initial.MaxTick())),
		LevelsPerSide: levels,
		StepSize:      initial.StepSize,
		GasReq:        initial.GasReq,
	}
	f.scheduleRecomputeLocked()
	return nil
}

// Editing reports whether the form operates on an existing position.
func (f *Form) Editing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initial != nil
}

// Status returns the current lifecycle state.
func (f *Form) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Fields returns a copy of the current field values.
func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Estimate returns the latest provision estimate, nil while none resolved.
func (f *Form) Estimate() *Estimate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.estimate
}

// SetMinPrice records a user edit of the minimum price bound.
func (f *Form) SetMinPrice(v string) {
	f.editField(func() {
		f.fields.MinPrice = v
		f.minPriceTouched = true
	})
}

// SetMaxPrice records a user edit of the maximum price bound.
func (f *Form) SetMaxPrice(v string) {
	f.editField(func() {
		f.fields.MaxPrice = v
		f.maxPriceTouched = true
	})
}

// SetLevelsPerSide records a user edit of the per-side level count.
func (f *Form) SetLevelsPerSide(v int) {
	f.editField(func() { f.fields.LevelsPerSide = v })
}

// SetStepSize records a user edit of the dual step size.
func (f *Form) SetStepSize(v int) {
	f.editField(func() { f.fields.StepSize = v })
}

// SetGasReq records a user edit of the per-offer gas requirement.
func (f *Form) SetGasReq(v uint64) {
	f.editField(func() { f.fields.GasReq = v })
}

// SetBaseAmount records a user edit of the base deposit amount.
func (f *Form) SetBaseAmount(v string) {
	f.editField(func() { f.fields.BaseAmount = v })
}

// SetQuoteAmount records a user edit of the quote deposit amount.
func (f *Form) SetQuoteAmount(v string) {
	f.editField(func() { f.fields.QuoteAmount = v })
}

// SetAddInventory toggles top-up mode in edit mode.
func (f *Form) SetAddInventory(v bool) {
	f.editField(func() { f.fields.AddInventory = v })
}

// editField applies a mutation, moves the form to validating, and restarts
// the debounced provision recomputation. A submit in flight freezes fields.
func (f *Form) editField(apply func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusSubmitting {
		return
	}
	if f.status != StatusValidating {
		if f.status == StatusSuccess || f.status == StatusFailed {
			f.transition(StatusIdle)
		}
		f.transition(StatusValidating)
	}
	apply()
	if len(f.validateLocked()) == 0 {
		f.transition(StatusIdle)
	}
	f.scheduleRecomputeLocked()
}

// Dirty compares current fields against the initial snapshot. In create
// mode everything counts as dirty.
func (f *Form) Dirty() DirtySet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirtyLocked()
}

func (f *Form) dirtyLocked() DirtySet {
	if f.initial == nil {
		return DirtySet{MinMax: true, Levels: true, Step: true, GasReq: true, Inventory: true}
	}
	return DirtySet{
		MinMax: f.minPriceTouched || f.maxPriceTouched,
		Levels: f.fields.LevelsPerSide != f.initial.LevelsPerSide,
		Step:   f.fields.StepSize != f.initial.StepSize,
		GasReq: f.fields.GasReq != f.initial.GasReq,
		Inventory: f.fields.AddInventory ||
			trimmedNonZero(f.fields.BaseAmount) ||
			trimmedNonZero(f.fields.QuoteAmount),
	}
}

// CanSubmit reports whether the submit action should be enabled.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == StatusSubmitting {
		return false
	}
	if len(f.validateLocked()) > 0 {
		return false
	}
	if f.initial != nil && !f.dirtyLocked().Any() {
		return false
	}
	return true
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
