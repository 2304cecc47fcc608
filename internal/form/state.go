package form

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mgvlab/kandel/internal/chain"
)

// Status is the orchestrator's lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusValidating
	StatusSubmitting
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusValidating:
		return "validating"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// legalTransitions enumerates the allowed status moves.
var legalTransitions = map[Status][]Status{
	StatusIdle:       {StatusValidating, StatusSubmitting},
	StatusValidating: {StatusIdle, StatusValidating, StatusSubmitting},
	StatusSubmitting: {StatusSuccess, StatusFailed},
	StatusSuccess:    {StatusIdle},
	StatusFailed:     {StatusIdle},
}

// transition moves the form between states, guarding illegal moves. Callers
// hold f.mu.
func (f *Form) transition(to Status) {
	for _, allowed := range legalTransitions[f.status] {
		if allowed == to {
			f.status = to
			return
		}
	}
	panic(fmt.Sprintf("form: illegal transition %s -> %s", f.status, to))
}

// Field names validation errors attach to.
type Field string

const (
	FieldMinPrice  Field = "minPrice"
	FieldMaxPrice  Field = "maxPrice"
	FieldLevels    Field = "levelsPerSide"
	FieldStepSize  Field = "stepSize"
	FieldGasReq    Field = "gasReq"
	FieldAskVolume Field = "askVolume"
	FieldBidVolume Field = "bidVolume"
	FieldBase      Field = "baseAmount"
	FieldQuote     Field = "quoteAmount"
)

// FieldErrors maps offending fields to inline messages.
type FieldErrors map[Field]string

// Fields are the user-editable inputs, kept as typed so partial entries
// survive round trips.
type Fields struct {
	MinPrice      string
	MaxPrice      string
	LevelsPerSide int
	StepSize      int
	GasReq        uint64
	BaseAmount    string
	QuoteAmount   string
	AddInventory  bool
}

// PricePoints is the total level count implied by the current fields.
func (f Fields) PricePoints() int { return f.LevelsPerSide * 2 }

// InitialValues is the snapshot captured once when an existing position's
// on-chain parameters are first loaded. Dirty tracking compares against it,
// and untouched price fields reuse its exact ticks on submit.
type InitialValues struct {
	Position common.Address

	BaseQuoteTickIndex0 int64
	TickOffset          int64
	LevelsPerSide       int
	StepSize            int
	GasReq              uint64
	Reserves            chain.Reserves
	Params              chain.Params
}

// MinTick is the exact lowest tick of the loaded ladder.
func (iv InitialValues) MinTick() int64 {
	return iv.BaseQuoteTickIndex0 - int64(iv.LevelsPerSide)*iv.TickOffset
}

// MaxTick is the exact highest tick of the loaded ladder.
func (iv InitialValues) MaxTick() int64 {
	return iv.MinTick() + int64(iv.LevelsPerSide*2-1)*iv.TickOffset
}

// DirtySet flags which field groups differ from the initial snapshot.
type DirtySet struct {
	MinMax    bool
	Levels    bool
	Step      bool
	GasReq    bool
	Inventory bool
}

// Any reports whether anything changed at all.
func (d DirtySet) Any() bool {
	return d.MinMax || d.Levels || d.Step || d.GasReq || d.Inventory
}

// Estimate is the debounced provision view model.
type Estimate struct {
	PerAsk   *big.Int
	PerBid   *big.Int
	Total    *big.Int
	Missing  *big.Int
	AskCount int
	BidCount int
	At       time.Time
}
