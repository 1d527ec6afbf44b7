package depreciation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/shared"
	"github.com/mrwhyte0520/contabi/internal/workflow"
)

// Status enumerates depreciation record states.
type Status string

const (
	StatusCalculated Status = "Calculado"
	StatusReversed   Status = "Reversado"
)

// Lifecycle toggles records between calculated and reversed. Neither
// direction posts to the ledger.
var Lifecycle = workflow.New("depreciation_record", []Status{StatusCalculated, StatusReversed}, map[Status][]Status{
	StatusCalculated: {StatusReversed},
	StatusReversed:   {StatusCalculated},
}).MustValidate(StatusCalculated)

// ErrRecordNotFound indicates a missing depreciation record.
var ErrRecordNotFound = fmt.Errorf("depreciation: record not found: %w", shared.ErrNotFound)

// ErrAlreadyDepreciated indicates a record already exists for the asset and period.
var ErrAlreadyDepreciated = fmt.Errorf("depreciation: asset already depreciated for period: %w", shared.ErrConflict)

// Record is one asset's depreciation for one period.
type Record struct {
	ID             int64           `json:"id"`
	AssetID        int64           `json:"asset_id"`
	AssetCode      string          `json:"asset_code,omitempty"`
	Category       string          `json:"category,omitempty"`
	Period         Period          `json:"period"`
	MonthlyAmount  decimal.Decimal `json:"monthly_amount"`
	Accumulated    decimal.Decimal `json:"accumulated"`
	RemainingValue decimal.Decimal `json:"remaining_value"`
	Status         Status          `json:"status"`
	EntryNumber    string          `json:"entry_number"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Filter narrows ListRecords.
type Filter struct {
	AssetID  int64
	Period   Period
	Status   Status
	Category string
	Page     shared.Page
}

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod accepts YYYY-MM.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("depreciation: invalid period %q: %w", s, shared.ErrValidation)
	}
	return PeriodOf(t), nil
}

func (p Period) IsZero() bool { return p.Year == 0 }

// String renders YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Compact renders YYYYMM for entry numbers.
func (p Period) Compact() string {
	return fmt.Sprintf("%04d%02d", p.Year, int(p.Month))
}

// End returns the last day of the period.
func (p Period) End() time.Time {
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC)
}

func (p Period) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
