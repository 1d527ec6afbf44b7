// Package payroll computes gross-to-net pay per employee and period and posts
// the resulting accrual and payment entries.
package payroll

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/shared"
	"github.com/mrwhyte0520/contabi/internal/workflow"
)

// PeriodStatus enumerates payroll period states.
type PeriodStatus string

const (
	StatusOpen       PeriodStatus = "open"
	StatusProcessing PeriodStatus = "processing"
	StatusClosed     PeriodStatus = "closed"
	StatusPaid       PeriodStatus = "paid"
)

// Lifecycle governs payroll periods. processing -> processing is a re-run and
// processing -> open is the explicit rollback of a failed run.
var Lifecycle = workflow.New("payroll_period", []PeriodStatus{StatusOpen, StatusProcessing, StatusClosed, StatusPaid}, map[PeriodStatus][]PeriodStatus{
	StatusOpen:       {StatusProcessing},
	StatusProcessing: {StatusProcessing, StatusClosed, StatusOpen},
	StatusClosed:     {StatusPaid},
}).Posting(StatusProcessing, StatusClosed, StatusPaid).MustValidate(StatusOpen)

// DefaultFallbackRate applies when no tax components are configured.
var DefaultFallbackRate = decimal.RequireFromString("0.0591")

// ErrPeriodNotFound indicates a missing payroll period.
var ErrPeriodNotFound = fmt.Errorf("payroll: period not found: %w", shared.ErrNotFound)

// Period is a payroll run window.
type Period struct {
	ID           int64        `json:"id"`
	Code         string       `json:"code"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Status       PeriodStatus `json:"status"`
	Totals       Totals       `json:"totals"`
	AccrualEntry string       `json:"accrual_entry,omitempty"`
	PaymentEntry string       `json:"payment_entry,omitempty"`
}

// Totals aggregates a period's entries.
type Totals struct {
	Gross         decimal.Decimal `json:"total_gross"`
	Deductions    decimal.Decimal `json:"total_deductions"`
	Net           decimal.Decimal `json:"total_net"`
	EmployeeCount int             `json:"employee_count"`
}

// Entry is one employee's pay for one period.
type Entry struct {
	ID                  int64           `json:"id"`
	PeriodID            int64           `json:"period_id"`
	EmployeeID          int64           `json:"employee_id"`
	DepartmentID        int64           `json:"department_id,omitempty"`
	GrossSalary         decimal.Decimal `json:"gross_salary"`
	TaxableBase         decimal.Decimal `json:"taxable_base"`
	StatutoryDeductions decimal.Decimal `json:"statutory_deductions"`
	OtherDeductions     decimal.Decimal `json:"other_deductions"`
	Deductions          decimal.Decimal `json:"deductions"`
	NetSalary           decimal.Decimal `json:"net_salary"`
	Status              string          `json:"status"`
}

// Employee is an active employee as seen by the calculation.
type Employee struct {
	ID           int64
	Code         string
	Name         string
	DepartmentID int64
	GrossSalary  decimal.Decimal
}

// Department carries the payroll budget ceiling. Zero means unlimited.
type Department struct {
	ID     int64
	Name   string
	Budget decimal.Decimal
}

// TaxComponent is one statutory employee contribution, as a fraction of the taxable base.
type TaxComponent struct {
	Code string
	Rate decimal.Decimal
}

// TaxConfig is the statutory configuration. An empty component list means
// the fallback rate applies.
type TaxConfig struct {
	Components       []TaxComponent
	MaxTaxableSalary *decimal.Decimal
}

// RuleKind enumerates deduction rule types.
type RuleKind string

const (
	RuleFixed      RuleKind = "fixed"
	RulePercentage RuleKind = "percentage"
)

// DeductionRule is a non-statutory deduction. Percentage amounts are fractions of gross.
type DeductionRule struct {
	ID         int64
	Category   string
	Kind       RuleKind
	Amount     decimal.Decimal
	EmployeeID *int64
	ValidFrom  time.Time
	ValidTo    *time.Time
}

// AppliesTo reports whether the rule covers the employee during [start, end].
func (r DeductionRule) AppliesTo(employeeID int64, start, end time.Time) bool {
	if r.EmployeeID != nil && *r.EmployeeID != employeeID {
		return false
	}
	if r.ValidFrom.After(end) {
		return false
	}
	if r.ValidTo != nil && r.ValidTo.Before(start) {
		return false
	}
	return true
}

// BudgetViolation describes one department whose payroll exceeds its budget.
type BudgetViolation struct {
	DepartmentID int64           `json:"department_id"`
	Department   string          `json:"department"`
	Budget       decimal.Decimal `json:"budget"`
	Required     decimal.Decimal `json:"required"`
}

// BudgetExceededError lists every department over budget.
type BudgetExceededError struct {
	Violations []BudgetViolation
}

func (e *BudgetExceededError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s (required %s, budget %s)", v.Department, v.Required.StringFixed(2), v.Budget.StringFixed(2)))
	}
	return "payroll: budget exceeded: " + strings.Join(parts, "; ")
}

func (e *BudgetExceededError) Unwrap() error { return shared.ErrBudgetExceeded }

// ProblemExtensions exposes the violations in HTTP problem responses.
func (e *BudgetExceededError) ProblemExtensions() map[string]any {
	return map[string]any{"violations": e.Violations}
}

// Summary is the read model for a period.
type Summary struct {
	Period  Period  `json:"period"`
	Entries []Entry `json:"entries"`
}

// Sum aggregates entries into period totals.
func Sum(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		t.Gross = t.Gross.Add(e.GrossSalary)
		t.Deductions = t.Deductions.Add(e.Deductions)
		t.Net = t.Net.Add(e.NetSalary)
	}
	t.EmployeeCount = len(entries)
	return t
}

func sortViolations(v []BudgetViolation) {
	sort.Slice(v, func(i, j int) bool { return v[i].DepartmentID < v[j].DepartmentID })
}
