package quotations

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/shared"
	"github.com/mrwhyte0520/contabi/internal/workflow"
)

type QuoteStatus string

const (
	StatusPending     QuoteStatus = "pending"
	StatusUnderReview QuoteStatus = "under_review"
	StatusApproved    QuoteStatus = "approved"
	StatusRejected    QuoteStatus = "rejected"
	StatusExpired     QuoteStatus = "expired"
	StatusConverted   QuoteStatus = "converted"
)

// Lifecycle governs quotes. converted is reachable only through Convert.
var Lifecycle = workflow.New("quote",
	[]QuoteStatus{StatusPending, StatusUnderReview, StatusApproved, StatusRejected, StatusExpired, StatusConverted},
	map[QuoteStatus][]QuoteStatus{
		StatusPending:     {StatusUnderReview, StatusApproved, StatusRejected, StatusExpired},
		StatusUnderReview: {StatusApproved, StatusRejected, StatusExpired},
		StatusApproved:    {StatusConverted},
	}).MustValidate(StatusPending)

var (
	ErrQuoteNotFound = fmt.Errorf("quotations: quote not found: %w", shared.ErrNotFound)
	ErrQuoteExpired  = fmt.Errorf("quotations: quote is past its validity date: %w", shared.ErrValidation)
)

type Quote struct {
	ID         int64           `json:"id"`
	Number     string          `json:"number"`
	Customer   string          `json:"customer"`
	Total      decimal.Decimal `json:"total"`
	ValidUntil time.Time       `json:"valid_until"`
	Status     QuoteStatus     `json:"status"`
	InvoiceRef string          `json:"invoice_ref,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Lapsed reports whether the quote is past its validity date at asOf.
func (q Quote) Lapsed(asOf time.Time) bool {
	y, m, d := asOf.Date()
	return q.ValidUntil.Before(time.Date(y, m, d, 0, 0, 0, 0, q.ValidUntil.Location()))
}
