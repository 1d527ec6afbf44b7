package payroll

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrwhyte0520/contabi/internal/accounting/accounts"
	"github.com/mrwhyte0520/contabi/internal/accounting/journals"
	"github.com/mrwhyte0520/contabi/internal/accounting/mappings"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

type memRepo struct {
	mu          sync.Mutex
	periods     map[int64]Period
	employees   []Employee
	departments []Department
	tax         TaxConfig
	rules       []DeductionRule
	entries     map[[2]int64]Entry
	nextEntry   int64
	failInsert  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		periods: map[int64]Period{1: {ID: 1, Code: "2024-06", StartDate: periodStart, EndDate: periodEnd, Status: StatusOpen}},
		entries: map[[2]int64]Entry{},
	}
}

func (r *memRepo) GetPeriod(_ context.Context, id int64) (Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[id]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

func (r *memRepo) LockPeriod(ctx context.Context, id int64) (Period, error) {
	return r.GetPeriod(ctx, id)
}

func (r *memRepo) ListActiveEmployees(context.Context, int64) ([]Employee, error) {
	return r.employees, nil
}

func (r *memRepo) ListDepartments(context.Context) ([]Department, error) {
	return r.departments, nil
}

func (r *memRepo) TaxConfig(context.Context) (TaxConfig, error) { return r.tax, nil }

func (r *memRepo) DeductionRules(context.Context, time.Time, time.Time) ([]DeductionRule, error) {
	return r.rules, nil
}

func (r *memRepo) InsertEntries(_ context.Context, entries []Entry) (int, error) {
	if r.failInsert != nil {
		return 0, r.failInsert
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range entries {
		key := [2]int64{e.EmployeeID, e.PeriodID}
		if _, ok := r.entries[key]; ok {
			continue
		}
		r.nextEntry++
		e.ID = r.nextEntry
		r.entries[key] = e
		n++
	}
	return n, nil
}

func (r *memRepo) ListEntries(_ context.Context, periodID int64) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (r *memRepo) SaveRun(_ context.Context, periodID int64, totals Totals, status PeriodStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.periods[periodID]
	p.Totals = totals
	p.Status = status
	r.periods[periodID] = p
	return nil
}

func (r *memRepo) Transition(_ context.Context, periodID int64, from, to PeriodStatus, entry string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.periods[periodID]
	if p.Status != from {
		return shared.ErrConflict
	}
	p.Status = to
	switch to {
	case StatusClosed:
		p.AccrualEntry = entry
	case StatusPaid:
		p.PaymentEntry = entry
	}
	r.periods[periodID] = p
	return nil
}

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type stubDirectory map[mappings.MappingKey]int64

func (s stubDirectory) Resolve(_ context.Context, key mappings.MappingKey) (accounts.Account, error) {
	id, ok := s[key]
	if !ok {
		return accounts.Account{}, &accounts.AccountNotFoundError{Ref: key.String()}
	}
	return accounts.Account{ID: id, IsActive: true}, nil
}

type recordingPoster struct {
	entries []journals.JournalEntry
}

func (p *recordingPoster) Post(ctx context.Context, draft journals.Draft, mark journals.SourceMarker) (journals.JournalEntry, error) {
	for _, e := range p.entries {
		if e.EntryNumber == draft.Entry.EntryNumber {
			return e, nil
		}
	}
	entry := draft.Entry
	entry.Status = journals.EntryStatusPosted
	if err := mark(ctx, entry); err != nil {
		return journals.JournalEntry{}, err
	}
	p.entries = append(p.entries, entry)
	return entry, nil
}

func payrollDirectory() stubDirectory {
	return stubDirectory{
		mappings.PayrollSalaryExpense:     10,
		mappings.PayrollDeductionsPayable: 20,
		mappings.PayrollSalariesPayable:   30,
		mappings.PayrollCash:              40,
	}
}

func newTestService(repo *memRepo, dir stubDirectory) (*Service, *recordingPoster) {
	poster := &recordingPoster{}
	svc := NewService(repo, passTx{}, dir, poster, decimal.Zero, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.WithNow(func() time.Time { return time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC) })
	return svc, poster
}

func TestCalculatePeriodMovesToProcessing(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, DepartmentID: 1, GrossSalary: d("50000")}}
	repo.tax = singleRate("0.1667")
	svc, _ := newTestService(repo, payrollDirectory())

	summary, err := svc.CalculatePeriod(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, StatusProcessing, summary.Period.Status)
	require.Len(t, summary.Entries, 1)
	assert.True(t, summary.Entries[0].Deductions.Equal(d("8335.00")))
	assert.True(t, summary.Entries[0].NetSalary.Equal(d("41665.00")))
	assert.True(t, summary.Period.Totals.Net.Equal(d("41665.00")))
}

func TestCalculatePeriodRerunDoesNotDuplicate(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, GrossSalary: d("1000")}, {ID: 2, GrossSalary: d("2000")}}
	svc, _ := newTestService(repo, payrollDirectory())

	_, err := svc.CalculatePeriod(context.Background(), 1)
	require.NoError(t, err)
	repo.employees = append(repo.employees, Employee{ID: 3, GrossSalary: d("3000")})
	summary, err := svc.CalculatePeriod(context.Background(), 1)
	require.NoError(t, err)

	assert.Len(t, repo.entries, 3)
	assert.Equal(t, 3, summary.Period.Totals.EmployeeCount)
	assert.True(t, summary.Period.Totals.Gross.Equal(d("6000")))
}

func TestCalculatePeriodUsesFallbackRate(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, GrossSalary: d("10000")}}
	svc, _ := newTestService(repo, payrollDirectory())

	summary, err := svc.CalculatePeriod(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, summary.Entries[0].Deductions.Equal(d("591.00")))
}

func TestCalculatePeriodBudgetViolationLeavesPeriodOpen(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, DepartmentID: 1, GrossSalary: d("9000")}, {ID: 2, DepartmentID: 2, GrossSalary: d("9000")}}
	repo.departments = []Department{{ID: 1, Name: "Sales", Budget: d("5000")}, {ID: 2, Name: "Ops", Budget: d("8000")}}
	svc, _ := newTestService(repo, payrollDirectory())

	_, err := svc.CalculatePeriod(context.Background(), 1)
	var budget *BudgetExceededError
	require.ErrorAs(t, err, &budget)
	assert.Len(t, budget.Violations, 2)
	assert.Empty(t, repo.entries)
	assert.Equal(t, StatusOpen, repo.periods[1].Status)
}

func TestCalculatePeriodFailedRerunReopens(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, GrossSalary: d("1000")}}
	svc, _ := newTestService(repo, payrollDirectory())
	_, err := svc.CalculatePeriod(context.Background(), 1)
	require.NoError(t, err)

	repo.failInsert = errors.New("connection reset")
	repo.employees = append(repo.employees, Employee{ID: 2, GrossSalary: d("1000")})
	_, err = svc.CalculatePeriod(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, StatusOpen, repo.periods[1].Status)
}

func TestCalculateRejectsClosedPeriod(t *testing.T) {
	repo := newMemRepo()
	p := repo.periods[1]
	p.Status = StatusClosed
	repo.periods[1] = p
	svc, _ := newTestService(repo, payrollDirectory())

	_, err := svc.CalculatePeriod(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Equal(t, StatusClosed, repo.periods[1].Status)
}

func TestCloseAndPayPostBalancedEntries(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, GrossSalary: d("50000")}}
	repo.tax = singleRate("0.1667")
	svc, poster := newTestService(repo, payrollDirectory())
	ctx := context.Background()

	_, err := svc.CalculatePeriod(ctx, 1)
	require.NoError(t, err)
	closed, err := svc.Close(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, "PAYROLL-202406-1-ACCRUAL", closed.AccrualEntry)

	paid, err := svc.Pay(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Equal(t, "PAYROLL-202406-1-PAYMENT", paid.PaymentEntry)

	require.Len(t, poster.entries, 2)
	for _, e := range poster.entries {
		assert.True(t, e.Balanced(), e.EntryNumber)
	}
	accrual := poster.entries[0]
	require.Len(t, accrual.Lines, 3)
	assert.Equal(t, int64(10), accrual.Lines[0].AccountID)
	assert.True(t, accrual.Lines[0].Debit.Equal(d("50000")))
	assert.True(t, accrual.Lines[1].Credit.Equal(d("8335.00")))
	assert.True(t, accrual.Lines[2].Credit.Equal(d("41665.00")))
	payment := poster.entries[1]
	assert.True(t, payment.Lines[0].Debit.Equal(d("41665.00")))
	assert.Equal(t, int64(40), payment.Lines[1].AccountID)
}

func TestCloseDistinguishesPeriodsSharingCompactCode(t *testing.T) {
	repo := newMemRepo()
	repo.periods[2] = Period{ID: 2, Code: "202406", StartDate: periodStart, EndDate: periodEnd, Status: StatusOpen}
	repo.employees = []Employee{{ID: 1, GrossSalary: d("1000")}}
	svc, poster := newTestService(repo, payrollDirectory())
	ctx := context.Background()

	for _, id := range []int64{1, 2} {
		_, err := svc.CalculatePeriod(ctx, id)
		require.NoError(t, err)
	}
	first, err := svc.Close(ctx, 1)
	require.NoError(t, err)
	second, err := svc.Close(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, StatusClosed, first.Status)
	assert.Equal(t, StatusClosed, second.Status)
	assert.Equal(t, "PAYROLL-202406-1-ACCRUAL", first.AccrualEntry)
	assert.Equal(t, "PAYROLL-202406-2-ACCRUAL", second.AccrualEntry)
	assert.Len(t, poster.entries, 2)
}

func TestCloseConflictsWhenEntryNumberTaken(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, GrossSalary: d("1000")}}
	svc, poster := newTestService(repo, payrollDirectory())
	ctx := context.Background()
	_, err := svc.CalculatePeriod(ctx, 1)
	require.NoError(t, err)
	poster.entries = append(poster.entries, journals.JournalEntry{EntryNumber: "PAYROLL-202406-1-ACCRUAL", Status: journals.EntryStatusPosted})

	_, err = svc.Close(ctx, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, StatusProcessing, repo.periods[1].Status)
	assert.Empty(t, repo.periods[1].AccrualEntry)
	assert.Len(t, poster.entries, 1)
}

func TestAdvanceRefusesNonPostingTarget(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, GrossSalary: d("1000")}}
	svc, poster := newTestService(repo, payrollDirectory())
	ctx := context.Background()
	_, err := svc.CalculatePeriod(ctx, 1)
	require.NoError(t, err)

	_, err = svc.advance(ctx, 1, StatusOpen, sourceAccrual, svc.accrualLines)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Equal(t, StatusProcessing, repo.periods[1].Status)
	assert.Empty(t, poster.entries)
}

func TestCloseRequiresProcessing(t *testing.T) {
	repo := newMemRepo()
	svc, poster := newTestService(repo, payrollDirectory())

	_, err := svc.Close(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Empty(t, poster.entries)
}

func TestCloseMissingMappingIsNotFound(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, GrossSalary: d("1000")}}
	dir := payrollDirectory()
	delete(dir, mappings.PayrollDeductionsPayable)
	svc, _ := newTestService(repo, dir)
	_, err := svc.CalculatePeriod(context.Background(), 1)
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, StatusProcessing, repo.periods[1].Status)
}

func TestCloseEmptyPayrollSkipsPosting(t *testing.T) {
	repo := newMemRepo()
	svc, poster := newTestService(repo, payrollDirectory())
	_, err := svc.CalculatePeriod(context.Background(), 1)
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Empty(t, poster.entries)
}

func TestSummary(t *testing.T) {
	repo := newMemRepo()
	repo.employees = []Employee{{ID: 1, GrossSalary: d("1000")}}
	svc, _ := newTestService(repo, payrollDirectory())
	_, err := svc.CalculatePeriod(context.Background(), 1)
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-06", summary.Period.Code)
	assert.Len(t, summary.Entries, 1)

	_, err = svc.Summary(context.Background(), 42)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
