package depreciation

import (
	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/assets"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

// MonthlyAmount returns the straight-line charge for the next period given how
// many months have already been recorded. The base is rounded to cents; the
// last period takes exactly the remainder so the total equals cost - salvage.
func MonthlyAmount(a assets.Asset, monthsRecorded int) decimal.Decimal {
	remaining := a.RemainingDepreciable()
	if !remaining.IsPositive() || a.UsefulLifeMonths <= 0 {
		return decimal.Zero
	}
	base := shared.Round2(a.DepreciableBase().Div(decimal.NewFromInt(int64(a.UsefulLifeMonths))))
	monthsLeft := a.UsefulLifeMonths - monthsRecorded
	if monthsLeft <= 1 || remaining.LessThanOrEqual(base) {
		return remaining
	}
	return base
}
