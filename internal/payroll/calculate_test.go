package payroll

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

var d = shared.MustDecimal

var (
	periodStart = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
)

func singleRate(rate string) TaxConfig {
	return TaxConfig{Components: []TaxComponent{{Code: "SS", Rate: d(rate)}}}
}

func TestCalculateEntryGrossToNet(t *testing.T) {
	e := CalculateEntry(1, Employee{ID: 7, GrossSalary: d("50000")}, TaxConfig{}, d("0.1667"), nil, periodStart, periodEnd)

	assert.True(t, e.TaxableBase.Equal(d("50000")))
	assert.True(t, e.Deductions.Equal(d("8335.00")), e.Deductions.String())
	assert.True(t, e.NetSalary.Equal(d("41665.00")), e.NetSalary.String())
	assert.Equal(t, "calculated", e.Status)
}

func TestCalculateEntryAppliesTaxableCap(t *testing.T) {
	maxTaxable := d("30000")
	cfg := TaxConfig{Components: []TaxComponent{{Code: "AFP", Rate: d("0.0287")}, {Code: "SFS", Rate: d("0.0304")}}, MaxTaxableSalary: &maxTaxable}
	e := CalculateEntry(1, Employee{ID: 1, GrossSalary: d("100000")}, cfg, EmployeeRate(cfg, DefaultFallbackRate), nil, periodStart, periodEnd)

	assert.True(t, e.TaxableBase.Equal(d("30000")))
	// 30000 * 0.0591
	assert.True(t, e.StatutoryDeductions.Equal(d("1773.00")), e.StatutoryDeductions.String())
	assert.True(t, e.NetSalary.Equal(d("98227.00")))
}

func TestEmployeeRateFallsBackWhenUnconfigured(t *testing.T) {
	assert.True(t, EmployeeRate(TaxConfig{}, DefaultFallbackRate).Equal(d("0.0591")))
	assert.True(t, EmployeeRate(singleRate("0.1"), DefaultFallbackRate).Equal(d("0.1")))
}

func TestCalculateEntryDeductionRules(t *testing.T) {
	other := int64(99)
	expired := periodStart.AddDate(0, -1, 0)
	rules := []DeductionRule{
		{ID: 1, Category: "union", Kind: RuleFixed, Amount: d("250"), ValidFrom: periodStart.AddDate(-1, 0, 0)},
		{ID: 2, Category: "loan", Kind: RulePercentage, Amount: d("0.05"), ValidFrom: periodStart},
		{ID: 3, Category: "other", Kind: RuleFixed, Amount: d("1000"), EmployeeID: &other, ValidFrom: periodStart},
		{ID: 4, Category: "old", Kind: RuleFixed, Amount: d("1000"), ValidFrom: expired.AddDate(0, -6, 0), ValidTo: &expired},
	}
	e := CalculateEntry(1, Employee{ID: 1, GrossSalary: d("20000")}, singleRate("0.1"), d("0.1"), rules, periodStart, periodEnd)

	assert.True(t, e.StatutoryDeductions.Equal(d("2000.00")))
	assert.True(t, e.OtherDeductions.Equal(d("1250.00")), e.OtherDeductions.String())
	assert.True(t, e.Deductions.Equal(d("3250.00")))
	assert.True(t, e.NetSalary.Equal(d("16750.00")))
}

func TestCalculateEntryNeverGoesNegative(t *testing.T) {
	rules := []DeductionRule{{ID: 1, Kind: RuleFixed, Amount: d("5000"), ValidFrom: periodStart}}
	e := CalculateEntry(1, Employee{ID: 1, GrossSalary: d("3000")}, singleRate("0.1"), d("0.1"), rules, periodStart, periodEnd)

	assert.True(t, e.OtherDeductions.Equal(d("2700.00")))
	assert.True(t, e.NetSalary.IsZero())
	assert.True(t, e.GrossSalary.Equal(e.Deductions.Add(e.NetSalary)))
}

func TestCalculateListsEveryBudgetViolation(t *testing.T) {
	in := CalcInput{
		PeriodID: 1,
		Employees: []Employee{
			{ID: 1, DepartmentID: 2, GrossSalary: d("60000")},
			{ID: 2, DepartmentID: 1, GrossSalary: d("45000")},
			{ID: 3, DepartmentID: 1, GrossSalary: d("10000")},
			{ID: 4, DepartmentID: 3, GrossSalary: d("999999")},
		},
		Departments: []Department{
			{ID: 1, Name: "Sales", Budget: d("50000")},
			{ID: 2, Name: "Ops", Budget: d("55000")},
			{ID: 3, Name: "Board", Budget: decimal.Zero},
		},
		FallbackRate: DefaultFallbackRate,
	}
	entries, _, err := Calculate(in)

	require.Error(t, err)
	assert.Empty(t, entries)
	assert.True(t, errors.Is(err, shared.ErrBudgetExceeded))
	var budget *BudgetExceededError
	require.ErrorAs(t, err, &budget)
	require.Len(t, budget.Violations, 2)
	assert.Equal(t, "Sales", budget.Violations[0].Department)
	assert.True(t, budget.Violations[0].Required.Equal(d("55000")))
	assert.Equal(t, "Ops", budget.Violations[1].Department)
	assert.Contains(t, budget.ProblemExtensions(), "violations")
}

func TestCalculateAggregatesTotals(t *testing.T) {
	entries, totals, err := Calculate(CalcInput{
		PeriodID:     1,
		Employees:    []Employee{{ID: 1, GrossSalary: d("50000")}, {ID: 2, GrossSalary: d("25000")}},
		Tax:          singleRate("0.1667"),
		FallbackRate: DefaultFallbackRate,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 2, totals.EmployeeCount)
	assert.True(t, totals.Gross.Equal(d("75000")))
	assert.True(t, totals.Deductions.Equal(d("12502.50")), totals.Deductions.String())
	assert.True(t, totals.Net.Equal(d("62497.50")))
	assert.True(t, totals.Gross.Equal(totals.Deductions.Add(totals.Net)))
}

func TestLifecycleIsExhaustive(t *testing.T) {
	require.NoError(t, Lifecycle.Validate(StatusOpen))
	assert.True(t, Lifecycle.Can(StatusProcessing, StatusProcessing))
	assert.True(t, Lifecycle.Can(StatusProcessing, StatusOpen))
	assert.False(t, Lifecycle.Can(StatusOpen, StatusClosed))
	assert.False(t, Lifecycle.Can(StatusPaid, StatusOpen))
	for _, to := range []PeriodStatus{StatusOpen, StatusProcessing, StatusClosed, StatusPaid} {
		assert.False(t, Lifecycle.Can(StatusPaid, to), to)
	}
}
