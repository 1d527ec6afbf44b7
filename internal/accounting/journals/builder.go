package journals

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/accounting/shared"
	base "github.com/mrwhyte0520/contabi/internal/shared"
)

// CandidateLine is an unvalidated debit or credit proposed by a calculator.
type CandidateLine struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Debit is shorthand for a debit candidate.
func Debit(accountID int64, amount decimal.Decimal, description string) CandidateLine {
	return CandidateLine{AccountID: accountID, Debit: amount, Description: description}
}

// Credit is shorthand for a credit candidate.
func Credit(accountID int64, amount decimal.Decimal, description string) CandidateLine {
	return CandidateLine{AccountID: accountID, Credit: amount, Description: description}
}

// EntryRef identifies the business event an entry records. Its entry number
// is the idempotency key of the posting.
type EntryRef struct {
	Event  string
	Period string
	Source string
}

// EntryNumber renders <EVENT>-<PERIOD>-<SOURCE> upper-cased.
func (r EntryRef) EntryNumber() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Event, r.Period, r.Source} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToUpper(strings.Join(parts, "-"))
}

// SourceID derives a stable UUID from an entry number.
func SourceID(entryNumber string) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(entryNumber))
}

// BuildInput groups everything the builder needs.
type BuildInput struct {
	Ref          EntryRef
	Date         time.Time
	Description  string
	Reference    string
	SourceModule string
	Lines        []CandidateLine
}

// Draft is the builder output. A Noop draft carries no lines and must not be posted.
type Draft struct {
	Event string
	Entry JournalEntry
	Noop  bool
}

// UnbalancedEntryError reports debit and credit totals that differ.
type UnbalancedEntryError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("journals: unbalanced entry: debit %s != credit %s", e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *UnbalancedEntryError) Unwrap() error { return shared.ErrUnbalanced }

// Build validates candidate lines and assembles a draft entry.
func Build(in BuildInput) (Draft, error) {
	if strings.TrimSpace(in.Ref.Event) == "" || strings.TrimSpace(in.Ref.Source) == "" {
		return Draft{}, fmt.Errorf("journals: event and source required: %w", base.ErrValidation)
	}
	if in.Date.IsZero() {
		return Draft{}, fmt.Errorf("journals: entry date required: %w", base.ErrValidation)
	}
	number := in.Ref.EntryNumber()
	draft := Draft{
		Event: strings.ToUpper(in.Ref.Event),
		Entry: JournalEntry{
			EntryNumber:  number,
			Date:         in.Date,
			Description:  in.Description,
			Reference:    in.Reference,
			Status:       EntryStatusDraft,
			SourceModule: in.SourceModule,
			SourceID:     SourceID(number),
		},
	}

	lines := make([]JournalLine, 0, len(in.Lines))
	var debit, credit decimal.Decimal
	for idx, c := range in.Lines {
		if c.Debit.IsNegative() || c.Credit.IsNegative() {
			return Draft{}, fmt.Errorf("%w: line %d negative amount", shared.ErrInvalidLine, idx+1)
		}
		if !base.HasMinorUnitPrecision(c.Debit) || !base.HasMinorUnitPrecision(c.Credit) {
			return Draft{}, fmt.Errorf("%w: line %d has more than two decimals", shared.ErrInvalidLine, idx+1)
		}
		if c.Debit.IsZero() && c.Credit.IsZero() {
			continue
		}
		if !c.Debit.IsZero() && !c.Credit.IsZero() {
			return Draft{}, fmt.Errorf("%w: line %d cannot be both debit and credit", shared.ErrInvalidLine, idx+1)
		}
		if c.AccountID == 0 {
			return Draft{}, fmt.Errorf("%w: line %d missing account", shared.ErrInvalidLine, idx+1)
		}
		debit = debit.Add(c.Debit)
		credit = credit.Add(c.Credit)
		lines = append(lines, JournalLine{
			LineNumber:  len(lines) + 1,
			AccountID:   c.AccountID,
			Debit:       c.Debit,
			Credit:      c.Credit,
			Description: c.Description,
		})
	}

	if base.IsNegligible(debit) && base.IsNegligible(credit) {
		draft.Noop = true
		return draft, nil
	}
	if len(lines) < 2 {
		return Draft{}, shared.ErrTooFewLines
	}
	if !debit.Equal(credit) {
		return Draft{}, &UnbalancedEntryError{Debit: debit, Credit: credit}
	}
	draft.Entry.Lines = lines
	return draft, nil
}
