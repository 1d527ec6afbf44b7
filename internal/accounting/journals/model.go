package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus enumerates journal lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "draft"
	EntryStatusPosted EntryStatus = "posted"
)

// JournalEntry captures posting metadata. Posted entries are never mutated;
// corrections are new entries.
type JournalEntry struct {
	ID           int64         `json:"id"`
	EntryNumber  string        `json:"entry_number"`
	Date         time.Time     `json:"date"`
	Description  string        `json:"description"`
	Reference    string        `json:"reference"`
	Status       EntryStatus   `json:"status"`
	SourceModule string        `json:"source_module"`
	SourceID     uuid.UUID     `json:"source_id"`
	PostedAt     time.Time     `json:"posted_at"`
	Lines        []JournalLine `json:"lines"`
}

// JournalLine stores debit or credit amount for an account. Exactly one side is non-zero.
type JournalLine struct {
	LineNumber  int             `json:"line_number"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// Totals returns the debit and credit sums of the entry.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Balanced reports whether debits equal credits exactly.
func (e JournalEntry) Balanced() bool {
	d, c := e.Totals()
	return d.Equal(c)
}
