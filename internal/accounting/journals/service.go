package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrwhyte0520/contabi/internal/accounting/shared"
	"github.com/mrwhyte0520/contabi/internal/platform/db"
	base "github.com/mrwhyte0520/contabi/internal/shared"
)

// ErrNothingToPost is returned when a no-op draft reaches the engine.
var ErrNothingToPost = fmt.Errorf("journals: draft has no effect: %w", base.ErrValidation)

// PostingFailedError wraps a failure that prevented an entry from committing.
type PostingFailedError struct {
	EntryNumber string
	Err         error
}

func (e *PostingFailedError) Error() string {
	return fmt.Sprintf("journals: posting %s failed: %v", e.EntryNumber, e.Err)
}

func (e *PostingFailedError) Unwrap() []error {
	return []error{base.ErrPostingFailed, e.Err}
}

// SourceMarker updates the originating record inside the posting transaction.
type SourceMarker func(ctx context.Context, entry JournalEntry) error

type AuditPort interface {
	Record(ctx context.Context, log base.AuditLog) error
}

type PeriodGuard interface {
	CheckOpen(ctx context.Context, date time.Time) error
}

// PostingObserver receives one call per posting attempt.
type PostingObserver interface {
	ObservePosting(event, result string)
}

// Posting results reported to the observer.
const (
	ResultPosted    = "posted"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
)

// Service is the posting engine. It owns the transaction every posting and
// its source update run in.
type Service struct {
	repo     Repository
	tx       db.Transactor
	guard    PeriodGuard
	audit    AuditPort
	observer PostingObserver
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, tx db.Transactor, guard PeriodGuard, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tx: tx, guard: guard, audit: audit, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithObserver attaches posting metrics.
func (s *Service) WithObserver(o PostingObserver) {
	s.observer = o
}

// Post persists draft exactly once and runs mark in the same transaction.
// When the entry number already exists the stored entry is returned and mark
// is not called.
func (s *Service) Post(ctx context.Context, draft Draft, mark SourceMarker) (JournalEntry, error) {
	if draft.Noop {
		return JournalEntry{}, ErrNothingToPost
	}
	if !draft.Entry.Balanced() || len(draft.Entry.Lines) < 2 {
		d, c := draft.Entry.Totals()
		return JournalEntry{}, &UnbalancedEntryError{Debit: d, Credit: c}
	}
	number := draft.Entry.EntryNumber

	var posted JournalEntry
	duplicate := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByNumber(ctx, number)
		if err == nil {
			posted = existing
			duplicate = true
			return nil
		}
		if !errors.Is(err, shared.ErrJournalNotFound) {
			return err
		}
		if s.guard != nil {
			if err := s.guard.CheckOpen(ctx, draft.Entry.Date); err != nil {
				return err
			}
		}
		inserted, err := s.repo.Insert(ctx, draft.Entry)
		if err != nil {
			return err
		}
		if mark != nil {
			if err := mark(ctx, inserted); err != nil {
				return err
			}
		}
		posted = inserted
		return nil
	})
	if errors.Is(err, ErrDuplicateEntry) {
		// Lost a race: our transaction rolled back, so read the winner.
		existing, getErr := s.repo.GetByNumber(ctx, number)
		if getErr == nil {
			s.observe(draft.Event, ResultDuplicate)
			return existing, nil
		}
		err = getErr
	}
	if err != nil {
		s.observe(draft.Event, ResultFailed)
		s.logger.Warn("journal posting failed", slog.String("entry_number", number), slog.Any("error", err))
		if isDomainError(err) {
			return JournalEntry{}, err
		}
		return JournalEntry{}, &PostingFailedError{EntryNumber: number, Err: err}
	}
	if duplicate {
		s.observe(draft.Event, ResultDuplicate)
		return posted, nil
	}

	s.observe(draft.Event, ResultPosted)
	s.logger.Info("journal posted", slog.String("entry_number", number), slog.Int64("id", posted.ID))
	if s.audit != nil {
		d, _ := posted.Totals()
		if err := s.audit.Record(ctx, base.AuditLog{
			ActorID:  base.ActorFromContext(ctx),
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: number,
			Meta: map[string]any{
				"source_module": posted.SourceModule,
				"source_id":     posted.SourceID.String(),
				"total":         d.StringFixed(2),
			},
			At: s.now(),
		}); err != nil {
			s.logger.Warn("audit journal post", slog.String("entry_number", number), slog.Any("error", err))
		}
	}
	return posted, nil
}

// GetByNumber loads a stored entry.
func (s *Service) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns recent entries without lines.
func (s *Service) List(ctx context.Context, page base.Page) ([]JournalEntry, error) {
	return s.repo.List(ctx, page)
}

func (s *Service) observe(event, result string) {
	if s.observer != nil {
		s.observer.ObservePosting(event, result)
	}
}

func isDomainError(err error) bool {
	for _, target := range []error{base.ErrValidation, base.ErrNotFound, base.ErrConfiguration, base.ErrConflict, base.ErrBudgetExceeded, context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
