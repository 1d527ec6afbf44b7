package depreciation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/accounting/accounts"
	"github.com/mrwhyte0520/contabi/internal/accounting/journals"
	"github.com/mrwhyte0520/contabi/internal/accounting/mappings"
	"github.com/mrwhyte0520/contabi/internal/assets"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

// EventDepreciation prefixes depreciation entry numbers.
const EventDepreciation = "DEP"

// AccountResolver is the Account Directory surface used for category roles.
type AccountResolver interface {
	Resolve(ctx context.Context, key mappings.MappingKey) (accounts.Account, error)
}

// Poster is the posting engine surface.
type Poster interface {
	Post(ctx context.Context, draft journals.Draft, mark journals.SourceMarker) (journals.JournalEntry, error)
}

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RunResult summarises one scheduler pass.
type RunResult struct {
	Period  Period   `json:"period"`
	Records []Record `json:"records"`
	Entries []string `json:"entries"`
	Skipped []string `json:"skipped,omitempty"`
}

// Scheduler computes monthly depreciation and posts one entry per category.
type Scheduler struct {
	assets  assets.Repository
	records Repository
	dir     AccountResolver
	poster  Poster
	audit   AuditPort
	logger  *slog.Logger
	now     func() time.Time
}

func NewScheduler(assetRepo assets.Repository, records Repository, dir AccountResolver, poster Poster, audit AuditPort, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{assets: assetRepo, records: records, dir: dir, poster: poster, audit: audit, logger: logger, now: time.Now}
}

func (s *Scheduler) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type pending struct {
	asset  assets.Asset
	amount decimal.Decimal
}

// Run depreciates every eligible asset for the month containing asOf. Assets
// already recorded for the period are skipped, so repeated runs are no-ops.
// A failing category does not stop the others; its error is joined into the result.
func (s *Scheduler) Run(ctx context.Context, asOf time.Time) (RunResult, error) {
	period := PeriodOf(asOf)
	result := RunResult{Period: period}

	eligible, err := s.assets.ListDepreciable(ctx, period.End())
	if err != nil {
		return result, fmt.Errorf("depreciation: list assets: %w", err)
	}
	done, err := s.records.AssetsWithRecord(ctx, period)
	if err != nil {
		return result, fmt.Errorf("depreciation: existing records: %w", err)
	}
	ids := make([]int64, 0, len(eligible))
	for _, a := range eligible {
		ids = append(ids, a.ID)
	}
	counts, err := s.records.CountByAsset(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("depreciation: record counts: %w", err)
	}

	byCategory := map[string][]pending{}
	for _, a := range eligible {
		if done[a.ID] || a.AcquiredOn.After(period.End()) {
			continue
		}
		amount := MonthlyAmount(a, counts[a.ID])
		if shared.IsNegligible(amount) {
			continue
		}
		cat := strings.ToLower(a.Category)
		byCategory[cat] = append(byCategory[cat], pending{asset: a, amount: amount})
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var errs []error
	for _, cat := range categories {
		entry, recs, err := s.postCategory(ctx, period, cat, byCategory[cat])
		if err != nil {
			if errors.Is(err, ErrAlreadyDepreciated) {
				s.logger.Info("depreciation category already processed", slog.String("category", cat), slog.String("period", period.String()))
				result.Skipped = append(result.Skipped, cat)
				continue
			}
			s.logger.Error("depreciation category failed", slog.String("category", cat), slog.String("period", period.String()), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("depreciation: category %s: %w", cat, err))
			continue
		}
		if entry.EntryNumber == "" {
			continue
		}
		result.Entries = append(result.Entries, entry.EntryNumber)
		result.Records = append(result.Records, recs...)
	}
	return result, errors.Join(errs...)
}

func (s *Scheduler) postCategory(ctx context.Context, period Period, category string, items []pending) (journals.JournalEntry, []Record, error) {
	expense, err := s.dir.Resolve(ctx, mappings.CategoryKey(category, mappings.RoleDepreciationExpense))
	if err != nil {
		return journals.JournalEntry{}, nil, err
	}
	accumulated, err := s.dir.Resolve(ctx, mappings.CategoryKey(category, mappings.RoleAccumulatedDepreciation))
	if err != nil {
		return journals.JournalEntry{}, nil, err
	}

	ids := make([]int64, 0, len(items))
	lines := make([]journals.CandidateLine, 0, len(items)*2)
	for _, it := range items {
		ids = append(ids, it.asset.ID)
		lines = append(lines,
			journals.Debit(expense.ID, it.amount, "Depreciation "+it.asset.Code),
			journals.Credit(accumulated.ID, it.amount, "Accumulated depreciation "+it.asset.Code),
		)
	}
	draft, err := journals.Build(journals.BuildInput{
		Ref:          journals.EntryRef{Event: EventDepreciation, Period: period.Compact(), Source: category + "-" + assetSetHash(ids)},
		Date:         period.End(),
		Description:  fmt.Sprintf("Depreciation %s %s", category, period),
		Reference:    period.String(),
		SourceModule: mappings.ModuleAsset,
		Lines:        lines,
	})
	if err != nil {
		return journals.JournalEntry{}, nil, err
	}
	if draft.Noop {
		return journals.JournalEntry{}, nil, nil
	}

	var created []Record
	entry, err := s.poster.Post(ctx, draft, func(ctx context.Context, entry journals.JournalEntry) error {
		created = created[:0]
		for _, it := range items {
			rec, err := s.records.Insert(ctx, Record{
				AssetID:        it.asset.ID,
				AssetCode:      it.asset.Code,
				Category:       it.asset.Category,
				Period:         period,
				MonthlyAmount:  it.amount,
				Accumulated:    it.asset.AccumulatedDepreciation.Add(it.amount),
				RemainingValue: it.asset.CurrentValue.Sub(it.amount),
				Status:         StatusCalculated,
				EntryNumber:    entry.EntryNumber,
			})
			if err != nil {
				return err
			}
			if err := s.assets.ApplyDepreciation(ctx, it.asset.ID, it.amount); err != nil {
				return fmt.Errorf("asset %s: %w", it.asset.Code, err)
			}
			created = append(created, rec)
		}
		return nil
	})
	if err != nil {
		return journals.JournalEntry{}, nil, err
	}
	return entry, created, nil
}

// Reverse marks a record Reversado. The ledger is not touched.
func (s *Scheduler) Reverse(ctx context.Context, id int64) (Record, error) {
	return s.transition(ctx, id, StatusReversed)
}

// Restore moves a reversed record back to Calculado.
func (s *Scheduler) Restore(ctx context.Context, id int64) (Record, error) {
	return s.transition(ctx, id, StatusCalculated)
}

func (s *Scheduler) transition(ctx context.Context, id int64, to Status) (Record, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := Lifecycle.Check(rec.Status, to); err != nil {
		return Record{}, err
	}
	if Lifecycle.InvokesPosting(to) {
		return Record{}, fmt.Errorf("depreciation: %s would post to the ledger: %w", to, shared.ErrInvalidTransition)
	}
	if err := s.records.UpdateStatus(ctx, id, rec.Status, to); err != nil {
		return Record{}, err
	}
	from := rec.Status
	rec.Status = to
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorFromContext(ctx),
			Action:   "depreciation.status",
			Entity:   "depreciation_record",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": string(from), "to": string(to)},
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit depreciation status", slog.Int64("id", id), slog.Any("error", err))
		}
	}
	return rec, nil
}

// List returns records matching f.
func (s *Scheduler) List(ctx context.Context, f Filter) ([]Record, error) {
	return s.records.List(ctx, f)
}

func assetSetHash(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return uuid.NewSHA1(uuid.Nil, []byte(strings.Join(parts, ","))).String()[:8]
}
