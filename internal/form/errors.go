package form

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation blocks submission while any inline field error is active.
var ErrValidation = errors.New("form: validation errors are active")

// ErrNothingToSubmit blocks edit-mode submission when no field is dirty.
var ErrNothingToSubmit = errors.New("form: nothing changed")

// ErrBothSidesEmpty rejects a ladder with zero gives on both sides.
var ErrBothSidesEmpty = errors.New("form: both bid and ask amounts are zero")

// SubmitError wraps a submit-time failure with the fixed user-facing message
// for its category.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }

// txErrorPatterns maps lowercased substrings of underlying transaction
// errors to one fixed user-facing message per category. Order matters: first
// match wins.
var txErrorPatterns = []struct {
	substr  string
	message string
}{
	{"user rejected", "Transaction was canceled in the wallet."},
	{"user denied", "Transaction was canceled in the wallet."},
	{"insufficient funds", "Not enough native balance to pay for this transaction."},
	{"underpriced", "Network gas price rose while submitting; please retry."},
	{"insufficient provision", "The attached provision is too small for the posted offers."},
	{"below density", "An offer is below the market's minimum volume."},
	{"slippage", "The price moved while submitting; review the range and retry."},
	{"price drift", "The price moved while submitting; review the range and retry."},
}

// classifyTxError maps an underlying error to its user-facing category.
// Unmatched errors fall back to showing the raw message.
func classifyTxError(err error) *SubmitError {
	lowered := strings.ToLower(err.Error())
	for _, p := range txErrorPatterns {
		if strings.Contains(lowered, p.substr) {
			return &SubmitError{Message: p.message, Err: err}
		}
	}
	return &SubmitError{Message: fmt.Sprintf("Transaction failed: %v", err), Err: err}
}
