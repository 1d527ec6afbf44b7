package revaluation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/shared"
	"github.com/mrwhyte0520/contabi/internal/workflow"
)

// Status enumerates revaluation record states.
type Status string

const (
	StatusPending  Status = "Pendiente"
	StatusInReview Status = "En Revisión"
	StatusApproved Status = "Aprobado"
	StatusRejected Status = "Rechazado"
)

// Lifecycle governs revaluation records. Only entering Aprobado posts.
var Lifecycle = workflow.New("revaluation", []Status{StatusPending, StatusInReview, StatusApproved, StatusRejected}, map[Status][]Status{
	StatusPending:  {StatusInReview, StatusApproved, StatusRejected},
	StatusInReview: {StatusApproved, StatusRejected},
}).Posting(StatusApproved).MustValidate(StatusPending)

// Method records how the new value was obtained.
type Method string

const (
	MethodAppraisal Method = "appraisal"
	MethodMarket    Method = "market"
	MethodIndex     Method = "index"
	MethodFormula   Method = "formula"
)

// ErrRecordNotFound indicates a missing revaluation record.
var ErrRecordNotFound = fmt.Errorf("revaluation: record not found: %w", shared.ErrNotFound)

// MissingGainAccountError reports a category without a revaluation gain mapping.
type MissingGainAccountError struct {
	Category string
}

func (e *MissingGainAccountError) Error() string {
	return fmt.Sprintf("revaluation: category %q has no revaluation gain account", e.Category)
}

func (e *MissingGainAccountError) Unwrap() error { return shared.ErrConfiguration }

// MissingLossAccountError reports a category without a revaluation loss mapping.
type MissingLossAccountError struct {
	Category string
}

func (e *MissingLossAccountError) Error() string {
	return fmt.Sprintf("revaluation: category %q has no revaluation loss account", e.Category)
}

func (e *MissingLossAccountError) Unwrap() error { return shared.ErrConfiguration }

// Record is a proposed or decided change to an asset's carrying value.
type Record struct {
	ID            int64           `json:"id"`
	AssetID       int64           `json:"asset_id"`
	PreviousValue decimal.Decimal `json:"previous_value"`
	NewValue      decimal.Decimal `json:"new_value"`
	Delta         decimal.Decimal `json:"delta"`
	Reason        string          `json:"reason"`
	Method        Method          `json:"method"`
	Expression    string          `json:"expression,omitempty"`
	Status        Status          `json:"status"`
	EntryNumber   string          `json:"entry_number,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	DecidedAt     *time.Time      `json:"decided_at,omitempty"`
}

// CreateInput proposes a revaluation. NewValue is required unless Method is
// formula, in which case Expression is evaluated with value bound to the
// asset's current value.
type CreateInput struct {
	AssetID    int64            `json:"asset_id" validate:"required,gt=0"`
	NewValue   *decimal.Decimal `json:"new_value"`
	Method     Method           `json:"method" validate:"required,oneof=appraisal market index formula"`
	Expression string           `json:"expression" validate:"required_if=Method formula,max=256"`
	Reason     string           `json:"reason" validate:"required,max=500"`
}

// Filter narrows List.
type Filter struct {
	AssetID int64
	Status  Status
	Page    shared.Page
}

// ApproveResult carries the decided record and whether a journal entry was posted.
type ApproveResult struct {
	Record Record `json:"record"`
	Posted bool   `json:"posted"`
}
