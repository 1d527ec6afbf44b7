package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mrwhyte0520/contabi/internal/accounting/accounts"
	"github.com/mrwhyte0520/contabi/internal/accounting/journals"
	"github.com/mrwhyte0520/contabi/internal/accounting/mappings"
	"github.com/mrwhyte0520/contabi/internal/platform/db"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

// EventPayroll prefixes payroll entry numbers.
const EventPayroll = "PAYROLL"

const (
	sourceAccrual = "ACCRUAL"
	sourcePayment = "PAYMENT"
)

// AccountResolver is the Account Directory surface used for payroll keys.
type AccountResolver interface {
	Resolve(ctx context.Context, key mappings.MappingKey) (accounts.Account, error)
}

// Poster is the posting engine surface.
type Poster interface {
	Post(ctx context.Context, draft journals.Draft, mark journals.SourceMarker) (journals.JournalEntry, error)
}

// Service drives the payroll period lifecycle.
type Service struct {
	repo     Repository
	tx       db.Transactor
	dir      AccountResolver
	poster   Poster
	fallback decimal.Decimal
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the payroll service. A non-positive fallback rate
// selects DefaultFallbackRate.
func NewService(repo Repository, tx db.Transactor, dir AccountResolver, poster Poster, fallback decimal.Decimal, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if !fallback.IsPositive() {
		fallback = DefaultFallbackRate
	}
	return &Service{repo: repo, tx: tx, dir: dir, poster: poster, fallback: fallback, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CalculatePeriod computes entries for every active employee and moves the
// period to processing. Employees already calculated keep their entry, so a
// re-run only fills gaps. A failed run leaves the period open.
func (s *Service) CalculatePeriod(ctx context.Context, periodID int64) (Summary, error) {
	var (
		summary    Summary
		wasRunning bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		period, err := s.repo.LockPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		wasRunning = period.Status == StatusProcessing
		if err := Lifecycle.Check(period.Status, StatusProcessing); err != nil {
			return err
		}
		in, err := s.snapshot(ctx, period)
		if err != nil {
			return err
		}
		entries, _, err := Calculate(in)
		if err != nil {
			return err
		}
		inserted, err := s.repo.InsertEntries(ctx, entries)
		if err != nil {
			return fmt.Errorf("payroll: insert entries: %w", err)
		}
		stored, err := s.repo.ListEntries(ctx, period.ID)
		if err != nil {
			return fmt.Errorf("payroll: list entries: %w", err)
		}
		totals := Sum(stored)
		if err := s.repo.SaveRun(ctx, period.ID, totals, StatusProcessing); err != nil {
			return fmt.Errorf("payroll: save run: %w", err)
		}
		period.Status = StatusProcessing
		period.Totals = totals
		summary = Summary{Period: period, Entries: stored}
		s.logger.Info("payroll calculated",
			slog.String("period", period.Code),
			slog.Int("inserted", inserted),
			slog.Int("employees", totals.EmployeeCount),
			slog.String("total_net", totals.Net.StringFixed(2)))
		return nil
	})
	if err != nil {
		if wasRunning {
			s.rollbackToOpen(ctx, periodID, err)
		}
		return Summary{}, err
	}
	return summary, nil
}

func (s *Service) snapshot(ctx context.Context, period Period) (CalcInput, error) {
	in := CalcInput{PeriodID: period.ID, Start: period.StartDate, End: period.EndDate, FallbackRate: s.fallback}
	var err error
	if in.Employees, err = s.repo.ListActiveEmployees(ctx, 0); err != nil {
		return in, fmt.Errorf("payroll: employees: %w", err)
	}
	if in.Departments, err = s.repo.ListDepartments(ctx); err != nil {
		return in, fmt.Errorf("payroll: departments: %w", err)
	}
	if in.Tax, err = s.repo.TaxConfig(ctx); err != nil {
		return in, fmt.Errorf("payroll: tax config: %w", err)
	}
	if len(in.Tax.Components) == 0 {
		s.logger.Warn("payroll tax configuration missing, using fallback rate",
			slog.String("period", period.Code), slog.String("rate", s.fallback.String()))
	}
	if in.Rules, err = s.repo.DeductionRules(ctx, period.StartDate, period.EndDate); err != nil {
		return in, fmt.Errorf("payroll: deduction rules: %w", err)
	}
	return in, nil
}

func (s *Service) rollbackToOpen(ctx context.Context, periodID int64, cause error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.Transition(ctx, periodID, StatusProcessing, StatusOpen, "")
	})
	if err != nil {
		s.logger.Error("payroll rollback to open", slog.Int64("period_id", periodID), slog.Any("error", err))
		return
	}
	s.logger.Warn("payroll run failed, period reopened", slog.Int64("period_id", periodID), slog.Any("error", cause))
}

// Close posts the accrual entry and moves the period to closed.
func (s *Service) Close(ctx context.Context, periodID int64) (Period, error) {
	return s.advance(ctx, periodID, StatusClosed, sourceAccrual, s.accrualLines)
}

// Pay posts the salary payment entry and moves the period to paid.
func (s *Service) Pay(ctx context.Context, periodID int64) (Period, error) {
	return s.advance(ctx, periodID, StatusPaid, sourcePayment, s.paymentLines)
}

type lineFunc func(ctx context.Context, totals Totals) ([]journals.CandidateLine, error)

func (s *Service) advance(ctx context.Context, periodID int64, to PeriodStatus, source string, lines lineFunc) (Period, error) {
	period, err := s.repo.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if err := Lifecycle.Check(period.Status, to); err != nil {
		return Period{}, err
	}
	if !Lifecycle.InvokesPosting(to) {
		return Period{}, fmt.Errorf("payroll: %s does not post an entry: %w", to, shared.ErrInvalidTransition)
	}
	candidates, err := lines(ctx, period.Totals)
	if err != nil {
		return Period{}, err
	}
	draft, err := journals.Build(journals.BuildInput{
		Ref:          journals.EntryRef{Event: EventPayroll, Period: compactCode(period.Code), Source: fmt.Sprintf("%d-%s", period.ID, source)},
		Date:         s.entryDate(period, to),
		Description:  fmt.Sprintf("Payroll %s %s", strings.ToLower(source), period.Code),
		Reference:    period.Code,
		SourceModule: mappings.ModulePayroll,
		Lines:        candidates,
	})
	if err != nil {
		return Period{}, err
	}
	from := period.Status
	if draft.Noop {
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.repo.Transition(ctx, periodID, from, to, "")
		})
		if err != nil {
			return Period{}, err
		}
	} else {
		marked := false
		_, err = s.poster.Post(ctx, draft, func(ctx context.Context, entry journals.JournalEntry) error {
			marked = true
			return s.repo.Transition(ctx, periodID, from, to, entry.EntryNumber)
		})
		if err != nil {
			return Period{}, err
		}
		if !marked {
			// The entry number already existed, so this period was not moved.
			current, err := s.repo.GetPeriod(ctx, periodID)
			if err != nil {
				return Period{}, err
			}
			if current.Status != to {
				return Period{}, fmt.Errorf("payroll: entry %s already posted for another period: %w", draft.Entry.EntryNumber, shared.ErrConflict)
			}
			return current, nil
		}
	}
	s.logger.Info("payroll period advanced", slog.String("period", period.Code), slog.String("from", string(from)), slog.String("to", string(to)))
	return s.repo.GetPeriod(ctx, periodID)
}

func (s *Service) entryDate(p Period, to PeriodStatus) time.Time {
	if to == StatusPaid {
		return s.now()
	}
	return p.EndDate
}

func (s *Service) accrualLines(ctx context.Context, t Totals) ([]journals.CandidateLine, error) {
	expense, err := s.dir.Resolve(ctx, mappings.PayrollSalaryExpense)
	if err != nil {
		return nil, err
	}
	deductions, err := s.dir.Resolve(ctx, mappings.PayrollDeductionsPayable)
	if err != nil {
		return nil, err
	}
	salaries, err := s.dir.Resolve(ctx, mappings.PayrollSalariesPayable)
	if err != nil {
		return nil, err
	}
	return []journals.CandidateLine{
		journals.Debit(expense.ID, t.Gross, "Salary expense"),
		journals.Credit(deductions.ID, t.Deductions, "Payroll deductions payable"),
		journals.Credit(salaries.ID, t.Net, "Salaries payable"),
	}, nil
}

func (s *Service) paymentLines(ctx context.Context, t Totals) ([]journals.CandidateLine, error) {
	salaries, err := s.dir.Resolve(ctx, mappings.PayrollSalariesPayable)
	if err != nil {
		return nil, err
	}
	cash, err := s.dir.Resolve(ctx, mappings.PayrollCash)
	if err != nil {
		return nil, err
	}
	return []journals.CandidateLine{
		journals.Debit(salaries.ID, t.Net, "Salaries paid"),
		journals.Credit(cash.ID, t.Net, "Salary payment"),
	}, nil
}

// Summary returns the period with its entries.
func (s *Service) Summary(ctx context.Context, periodID int64) (Summary, error) {
	var out Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.repo.GetPeriod(gctx, periodID)
		out.Period = p
		return err
	})
	g.Go(func() error {
		entries, err := s.repo.ListEntries(gctx, periodID)
		out.Entries = entries
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrPeriodNotFound) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("payroll: summary: %w", err)
	}
	return out, nil
}

func compactCode(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "-", "")
}
