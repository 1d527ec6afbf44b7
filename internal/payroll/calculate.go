package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

// CalcInput is the consistent snapshot a calculation runs over.
type CalcInput struct {
	PeriodID     int64
	Start, End   time.Time
	Employees    []Employee
	Departments  []Department
	Tax          TaxConfig
	Rules        []DeductionRule
	FallbackRate decimal.Decimal
}

// EmployeeRate sums configured component rates, or returns fallback when
// nothing is configured.
func EmployeeRate(cfg TaxConfig, fallback decimal.Decimal) decimal.Decimal {
	if len(cfg.Components) == 0 {
		return fallback
	}
	rate := decimal.Zero
	for _, c := range cfg.Components {
		rate = rate.Add(c.Rate)
	}
	return rate
}

// CheckBudgets returns every department whose active payroll exceeds a
// positive budget.
func CheckBudgets(employees []Employee, departments []Department) []BudgetViolation {
	required := map[int64]decimal.Decimal{}
	for _, e := range employees {
		if e.DepartmentID == 0 {
			continue
		}
		required[e.DepartmentID] = required[e.DepartmentID].Add(e.GrossSalary)
	}
	var out []BudgetViolation
	for _, dep := range departments {
		if !dep.Budget.IsPositive() {
			continue
		}
		if req := required[dep.ID]; req.GreaterThan(dep.Budget) {
			out = append(out, BudgetViolation{DepartmentID: dep.ID, Department: dep.Name, Budget: dep.Budget, Required: req})
		}
	}
	sortViolations(out)
	return out
}

// CalculateEntry computes one employee's gross-to-net. Other deductions are
// capped so net pay never goes negative.
func CalculateEntry(periodID int64, e Employee, cfg TaxConfig, rate decimal.Decimal, rules []DeductionRule, start, end time.Time) Entry {
	gross := shared.Round2(e.GrossSalary)
	taxable := gross
	if cfg.MaxTaxableSalary != nil && cfg.MaxTaxableSalary.IsPositive() && taxable.GreaterThan(*cfg.MaxTaxableSalary) {
		taxable = *cfg.MaxTaxableSalary
	}
	statutory := shared.Round2(taxable.Mul(rate))

	other := decimal.Zero
	for _, r := range rules {
		if !r.AppliesTo(e.ID, start, end) {
			continue
		}
		switch r.Kind {
		case RuleFixed:
			other = other.Add(r.Amount)
		case RulePercentage:
			other = other.Add(gross.Mul(r.Amount))
		}
	}
	other = shared.Round2(other)
	if room := gross.Sub(statutory); other.GreaterThan(room) {
		other = decimal.Max(room, decimal.Zero)
	}
	deductions := statutory.Add(other)
	return Entry{
		PeriodID:            periodID,
		EmployeeID:          e.ID,
		DepartmentID:        e.DepartmentID,
		GrossSalary:         gross,
		TaxableBase:         taxable,
		StatutoryDeductions: statutory,
		OtherDeductions:     other,
		Deductions:          deductions,
		NetSalary:           gross.Sub(deductions),
		Status:              "calculated",
	}
}

// Calculate runs the budget pre-check and computes every entry. It is
// all-or-nothing: a single violation returns no entries.
func Calculate(in CalcInput) ([]Entry, Totals, error) {
	if v := CheckBudgets(in.Employees, in.Departments); len(v) > 0 {
		return nil, Totals{}, &BudgetExceededError{Violations: v}
	}
	rate := EmployeeRate(in.Tax, in.FallbackRate)
	entries := make([]Entry, 0, len(in.Employees))
	for _, e := range in.Employees {
		entries = append(entries, CalculateEntry(in.PeriodID, e, in.Tax, rate, in.Rules, in.Start, in.End))
	}
	return entries, Sum(entries), nil
}
