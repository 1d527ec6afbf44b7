package depreciation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mrwhyte0520/contabi/internal/assets"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

var d = shared.MustDecimal

func TestMonthlyAmountStraightLine(t *testing.T) {
	a := assets.Asset{AcquisitionCost: d("120000"), UsefulLifeMonths: 60}
	require.True(t, MonthlyAmount(a, 0).Equal(d("2000")))

	for i := 0; i < 12; i++ {
		amt := MonthlyAmount(a, i)
		a.AccumulatedDepreciation = a.AccumulatedDepreciation.Add(amt)
	}
	require.True(t, a.AccumulatedDepreciation.Equal(d("24000")))
	require.True(t, a.AcquisitionCost.Sub(a.AccumulatedDepreciation).Equal(d("96000")))
}

func TestMonthlyAmountAbsorbsRoundingInFinalPeriod(t *testing.T) {
	a := assets.Asset{AcquisitionCost: d("1000"), SalvageValue: d("0"), UsefulLifeMonths: 3}
	total := decimal.Zero
	var amounts []decimal.Decimal
	for i := 0; i < 5; i++ {
		amt := MonthlyAmount(a, i)
		amounts = append(amounts, amt)
		a.AccumulatedDepreciation = a.AccumulatedDepreciation.Add(amt)
		total = total.Add(amt)
	}
	require.True(t, amounts[0].Equal(d("333.33")))
	require.True(t, amounts[1].Equal(d("333.33")))
	require.True(t, amounts[2].Equal(d("333.34")))
	require.True(t, amounts[3].IsZero())
	require.True(t, total.Equal(d("1000")))
}

func TestMonthlyAmountNeverExceedsBase(t *testing.T) {
	a := assets.Asset{AcquisitionCost: d("10000"), SalvageValue: d("1000"), UsefulLifeMonths: 7}
	months := 0
	for !a.FullyDepreciated() {
		amt := MonthlyAmount(a, months)
		require.True(t, amt.IsPositive())
		a.AccumulatedDepreciation = a.AccumulatedDepreciation.Add(amt)
		months++
		require.True(t, a.AccumulatedDepreciation.LessThanOrEqual(a.DepreciableBase()))
		require.LessOrEqual(t, months, 7)
	}
	require.True(t, a.AccumulatedDepreciation.Equal(d("9000")))
}

func TestMonthlyAmountClipsWhenBaseExceedsRemainder(t *testing.T) {
	a := assets.Asset{AcquisitionCost: d("6000"), UsefulLifeMonths: 60, AccumulatedDepreciation: d("5950")}
	require.True(t, MonthlyAmount(a, 10).Equal(d("50")))
}

func TestPeriodFormatting(t *testing.T) {
	p, err := ParsePeriod("2024-02")
	require.NoError(t, err)
	require.Equal(t, "2024-02", p.String())
	require.Equal(t, "202402", p.Compact())
	require.Equal(t, 29, p.End().Day())

	_, err = ParsePeriod("2024/02")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLifecycleTable(t *testing.T) {
	require.NoError(t, Lifecycle.Validate(StatusCalculated))
	require.True(t, Lifecycle.Can(StatusCalculated, StatusReversed))
	require.True(t, Lifecycle.Can(StatusReversed, StatusCalculated))
	require.False(t, Lifecycle.Can(StatusCalculated, StatusCalculated))
	require.False(t, Lifecycle.InvokesPosting(StatusReversed))
}
