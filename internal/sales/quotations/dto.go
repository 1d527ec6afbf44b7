package quotations

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

type CreateQuoteRequest struct {
	Number     string          `json:"number" validate:"required,max=40"`
	Customer   string          `json:"customer" validate:"required,max=200"`
	Total      decimal.Decimal `json:"total"`
	ValidUntil time.Time       `json:"valid_until" validate:"required"`
}

type TransitionRequest struct {
	Status QuoteStatus `json:"status" validate:"required,oneof=under_review approved rejected expired"`
	Note   string      `json:"note" validate:"max=500"`
}

type ConvertRequest struct {
	InvoiceRef string `json:"invoice_ref" validate:"required,max=60"`
}

type ListQuotesRequest struct {
	Status QuoteStatus
	Page   shared.Page
}
