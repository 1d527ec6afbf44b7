package shared

import "errors"

// Error taxonomy shared by every ledger component. Typed errors in the domain
// packages unwrap to one of these so callers can branch with errors.Is.
var (
	// ErrValidation indicates malformed input or a broken ledger invariant.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a missing account, asset, employee or record.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration indicates a required mapping or setting is absent.
	ErrConfiguration = errors.New("configuration missing")
	// ErrBudgetExceeded indicates a department payroll exceeds its budget.
	ErrBudgetExceeded = errors.New("budget exceeded")
	// ErrConflict indicates a duplicate write for an already processed event.
	ErrConflict = errors.New("conflict")
	// ErrPostingFailed indicates the posting transaction could not commit.
	ErrPostingFailed = errors.New("posting failed")
	// ErrInvalidTransition indicates a lifecycle status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InvalidTransitionError describes a rejected lifecycle change.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return e.Entity + ": cannot move from " + e.From + " to " + e.To
}

// Unwrap exposes both the transition and validation sentinels.
func (e *InvalidTransitionError) Unwrap() []error {
	return []error{ErrInvalidTransition, ErrValidation}
}
