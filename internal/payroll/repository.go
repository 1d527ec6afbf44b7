package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

// Repository is the payroll store plus the employee, budget and tax
// providers it reads. Every method joins the transaction in ctx.
type Repository interface {
	GetPeriod(ctx context.Context, id int64) (Period, error)
	LockPeriod(ctx context.Context, id int64) (Period, error)
	ListActiveEmployees(ctx context.Context, departmentID int64) ([]Employee, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	TaxConfig(ctx context.Context) (TaxConfig, error)
	DeductionRules(ctx context.Context, start, end time.Time) ([]DeductionRule, error)
	InsertEntries(ctx context.Context, entries []Entry) (int, error)
	ListEntries(ctx context.Context, periodID int64) ([]Entry, error)
	SaveRun(ctx context.Context, periodID int64, totals Totals, status PeriodStatus) error
	Transition(ctx context.Context, periodID int64, from, to PeriodStatus, entryNumber string) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectPeriod = `SELECT id, code, start_date, end_date, status, total_gross, total_deductions, total_net,
employee_count, accrual_entry, payment_entry FROM payroll_periods WHERE id=$1`

func (r *repository) GetPeriod(ctx context.Context, id int64) (Period, error) {
	return r.period(ctx, selectPeriod, id)
}

func (r *repository) LockPeriod(ctx context.Context, id int64) (Period, error) {
	return r.period(ctx, selectPeriod+` FOR UPDATE`, id)
}

func (r *repository) period(ctx context.Context, sql string, id int64) (Period, error) {
	var p Period
	err := db.Conn(ctx, r.pool).QueryRow(ctx, sql, id).Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status,
		&p.Totals.Gross, &p.Totals.Deductions, &p.Totals.Net, &p.Totals.EmployeeCount, &p.AccrualEntry, &p.PaymentEntry)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrPeriodNotFound
	}
	return p, err
}

// ListActiveEmployees returns active employees, optionally for one department.
func (r *repository) ListActiveEmployees(ctx context.Context, departmentID int64) ([]Employee, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, code, name, COALESCE(department_id, 0), gross_salary
FROM employees WHERE is_active AND ($1 = 0 OR department_id = $1) ORDER BY id`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.DepartmentID, &e.GrossSalary); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, name, payroll_budget FROM departments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Budget); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) TaxConfig(ctx context.Context) (TaxConfig, error) {
	q := db.Conn(ctx, r.pool)
	var cfg TaxConfig
	rows, err := q.Query(ctx, `SELECT code, employee_rate FROM tax_components WHERE is_active ORDER BY code`)
	if err != nil {
		return cfg, err
	}
	for rows.Next() {
		var c TaxComponent
		if err := rows.Scan(&c.Code, &c.Rate); err != nil {
			rows.Close()
			return cfg, err
		}
		cfg.Components = append(cfg.Components, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return cfg, err
	}
	err = q.QueryRow(ctx, `SELECT max_taxable_salary FROM tax_settings WHERE id=1`).Scan(&cfg.MaxTaxableSalary)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return cfg, err
	}
	return cfg, nil
}

func (r *repository) DeductionRules(ctx context.Context, start, end time.Time) ([]DeductionRule, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, category, kind, amount, employee_id, valid_from, valid_to
FROM deduction_rules WHERE is_active AND valid_from <= $2 AND (valid_to IS NULL OR valid_to >= $1) ORDER BY id`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DeductionRule
	for rows.Next() {
		var d DeductionRule
		if err := rows.Scan(&d.ID, &d.Category, &d.Kind, &d.Amount, &d.EmployeeID, &d.ValidFrom, &d.ValidTo); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertEntries adds entries, skipping employees already calculated for the
// period. It returns how many rows were new.
func (r *repository) InsertEntries(ctx context.Context, entries []Entry) (int, error) {
	q := db.Conn(ctx, r.pool)
	inserted := 0
	for _, e := range entries {
		tag, err := q.Exec(ctx, `INSERT INTO payroll_entries
(period_id, employee_id, department_id, gross_salary, taxable_base, statutory_deductions, other_deductions, deductions, net_salary, status)
VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (employee_id, period_id) DO NOTHING`,
			e.PeriodID, e.EmployeeID, e.DepartmentID, e.GrossSalary.StringFixed(2), e.TaxableBase.StringFixed(2),
			e.StatutoryDeductions.StringFixed(2), e.OtherDeductions.StringFixed(2), e.Deductions.StringFixed(2),
			e.NetSalary.StringFixed(2), e.Status)
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *repository) ListEntries(ctx context.Context, periodID int64) ([]Entry, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, period_id, employee_id, COALESCE(department_id, 0), gross_salary,
taxable_base, statutory_deductions, other_deductions, deductions, net_salary, status
FROM payroll_entries WHERE period_id=$1 ORDER BY employee_id`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PeriodID, &e.EmployeeID, &e.DepartmentID, &e.GrossSalary, &e.TaxableBase,
			&e.StatutoryDeductions, &e.OtherDeductions, &e.Deductions, &e.NetSalary, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) SaveRun(ctx context.Context, periodID int64, totals Totals, status PeriodStatus) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE payroll_periods
SET total_gross=$2, total_deductions=$3, total_net=$4, employee_count=$5, status=$6, updated_at=NOW()
WHERE id=$1`, periodID, totals.Gross.StringFixed(2), totals.Deductions.StringFixed(2), totals.Net.StringFixed(2),
		totals.EmployeeCount, string(status))
	return err
}

// Transition moves the period from -> to, recording entryNumber as the accrual
// entry when closing and the payment entry when paying.
func (r *repository) Transition(ctx context.Context, periodID int64, from, to PeriodStatus, entryNumber string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE payroll_periods SET status=$3,
accrual_entry = CASE WHEN $3 = 'closed' THEN $4 ELSE accrual_entry END,
payment_entry = CASE WHEN $3 = 'paid' THEN $4 ELSE payment_entry END,
updated_at=NOW()
WHERE id=$1 AND status=$2`, periodID, string(from), string(to), entryNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payroll: period %d is no longer %s: %w", periodID, from, shared.ErrConflict)
	}
	return nil
}
