package depreciation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mrwhyte0520/contabi/internal/accounting/accounts"
	"github.com/mrwhyte0520/contabi/internal/accounting/journals"
	"github.com/mrwhyte0520/contabi/internal/accounting/mappings"
	"github.com/mrwhyte0520/contabi/internal/assets"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

type memAssets struct {
	m map[int64]assets.Asset
}

func (r *memAssets) Get(_ context.Context, id int64) (assets.Asset, error) {
	a, ok := r.m[id]
	if !ok {
		return assets.Asset{}, assets.ErrAssetNotFound
	}
	return a, nil
}

func (r *memAssets) ListDepreciable(_ context.Context, acquiredBy time.Time) ([]assets.Asset, error) {
	var out []assets.Asset
	for _, a := range r.m {
		if a.Status == assets.StatusActive && !a.AcquiredOn.After(acquiredBy) && !a.FullyDepreciated() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAssets) ApplyDepreciation(_ context.Context, id int64, amount decimal.Decimal) error {
	a := r.m[id]
	if a.AccumulatedDepreciation.Add(amount).GreaterThan(a.DepreciableBase()) {
		return assets.ErrDepreciationExceeded
	}
	a.AccumulatedDepreciation = a.AccumulatedDepreciation.Add(amount)
	a.CurrentValue = a.CurrentValue.Sub(amount)
	r.m[id] = a
	return nil
}

func (r *memAssets) SetCurrentValue(_ context.Context, id int64, value decimal.Decimal) error {
	a := r.m[id]
	a.CurrentValue = value
	r.m[id] = a
	return nil
}

type memRecords struct {
	m    map[int64]Record
	next int64
}

func (r *memRecords) Insert(_ context.Context, rec Record) (Record, error) {
	for _, existing := range r.m {
		if existing.AssetID == rec.AssetID && existing.Period == rec.Period {
			return Record{}, ErrAlreadyDepreciated
		}
	}
	r.next++
	rec.ID = r.next
	r.m[rec.ID] = rec
	return rec, nil
}

func (r *memRecords) Get(_ context.Context, id int64) (Record, error) {
	rec, ok := r.m[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *memRecords) UpdateStatus(_ context.Context, id int64, from, to Status) error {
	rec, ok := r.m[id]
	if !ok || rec.Status != from {
		return ErrRecordNotFound
	}
	rec.Status = to
	r.m[id] = rec
	return nil
}

func (r *memRecords) AssetsWithRecord(_ context.Context, p Period) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, rec := range r.m {
		if rec.Period == p {
			out[rec.AssetID] = true
		}
	}
	return out, nil
}

func (r *memRecords) CountByAsset(_ context.Context, ids []int64) (map[int64]int, error) {
	out := map[int64]int{}
	for _, rec := range r.m {
		out[rec.AssetID]++
	}
	return out, nil
}

func (r *memRecords) List(_ context.Context, f Filter) ([]Record, error) {
	var out []Record
	for _, rec := range r.m {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

type stubDirectory map[mappings.MappingKey]int64

func (s stubDirectory) Resolve(_ context.Context, key mappings.MappingKey) (accounts.Account, error) {
	id, ok := s[key]
	if !ok {
		return accounts.Account{}, &accounts.AccountNotFoundError{Ref: key.String()}
	}
	return accounts.Account{ID: id, IsActive: true}, nil
}

// fakePoster mirrors the engine: idempotent on entry number, marker in the
// same unit of work, rollback of marker writes on failure.
type fakePoster struct {
	entries map[string]journals.JournalEntry
	assets  *memAssets
	records *memRecords
}

func (p *fakePoster) Post(ctx context.Context, draft journals.Draft, mark journals.SourceMarker) (journals.JournalEntry, error) {
	if e, ok := p.entries[draft.Entry.EntryNumber]; ok {
		return e, nil
	}
	if !draft.Entry.Balanced() {
		return journals.JournalEntry{}, errors.New("unbalanced")
	}
	assetSnap := cloneMap(p.assets.m)
	recSnap := cloneMap(p.records.m)
	entry := draft.Entry
	entry.ID = int64(len(p.entries) + 1)
	entry.Status = journals.EntryStatusPosted
	if err := mark(ctx, entry); err != nil {
		p.assets.m = assetSnap
		p.records.m = recSnap
		return journals.JournalEntry{}, err
	}
	p.entries[entry.EntryNumber] = entry
	return entry, nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type fixture struct {
	assets    *memAssets
	records   *memRecords
	poster    *fakePoster
	scheduler *Scheduler
}

func newFixture(dir stubDirectory, list ...assets.Asset) *fixture {
	as := &memAssets{m: map[int64]assets.Asset{}}
	for _, a := range list {
		as.m[a.ID] = a
	}
	recs := &memRecords{m: map[int64]Record{}}
	poster := &fakePoster{entries: map[string]journals.JournalEntry{}, assets: as, records: recs}
	s := NewScheduler(as, recs, dir, poster, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &fixture{assets: as, records: recs, poster: poster, scheduler: s}
}

func vehiclesDirectory() stubDirectory {
	return stubDirectory{
		mappings.CategoryKey("vehicles", mappings.RoleDepreciationExpense):     610,
		mappings.CategoryKey("vehicles", mappings.RoleAccumulatedDepreciation): 159,
		mappings.CategoryKey("furniture", mappings.RoleDepreciationExpense):    611,
		mappings.CategoryKey("furniture", mappings.RoleAccumulatedDepreciation): 158,
	}
}

func truck(id int64) assets.Asset {
	return assets.Asset{
		ID: id, Code: fmt.Sprintf("VEH-%03d", id), Category: "Vehicles",
		AcquisitionCost: d("120000"), CurrentValue: d("120000"), UsefulLifeMonths: 60,
		Method: assets.MethodStraightLine, Status: assets.StatusActive,
		AcquiredOn: time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC),
	}
}

func monthEnd(year int, month time.Month) time.Time {
	return Period{Year: year, Month: month}.End()
}

func TestRunTwelveMonths(t *testing.T) {
	f := newFixture(vehiclesDirectory(), truck(1))
	ctx := context.Background()
	for m := time.January; m <= time.December; m++ {
		res, err := f.scheduler.Run(ctx, monthEnd(2024, m))
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		require.True(t, res.Records[0].MonthlyAmount.Equal(d("2000")))
	}
	a := f.assets.m[1]
	require.True(t, a.AccumulatedDepreciation.Equal(d("24000")))
	require.True(t, a.CurrentValue.Equal(d("96000")))
	require.Len(t, f.poster.entries, 12)
	for _, e := range f.poster.entries {
		debit, credit := e.Totals()
		require.True(t, debit.Equal(d("2000")))
		require.True(t, debit.Equal(credit))
		require.Equal(t, int64(610), e.Lines[0].AccountID)
		require.Equal(t, int64(159), e.Lines[1].AccountID)
	}
	last := f.records.m[12]
	require.True(t, last.Accumulated.Equal(d("24000")))
	require.True(t, last.RemainingValue.Equal(d("96000")))
}

func TestRunIsIdempotentPerPeriod(t *testing.T) {
	f := newFixture(vehiclesDirectory(), truck(1))
	ctx := context.Background()
	_, err := f.scheduler.Run(ctx, monthEnd(2024, time.January))
	require.NoError(t, err)
	res, err := f.scheduler.Run(ctx, monthEnd(2024, time.January))
	require.NoError(t, err)
	require.Empty(t, res.Records)
	require.Len(t, f.records.m, 1)
	require.Len(t, f.poster.entries, 1)
	require.True(t, f.assets.m[1].AccumulatedDepreciation.Equal(d("2000")))
}

func TestRunOneEntryPerCategory(t *testing.T) {
	desk := assets.Asset{
		ID: 9, Code: "FUR-009", Category: "furniture", AcquisitionCost: d("3600"), CurrentValue: d("3600"),
		UsefulLifeMonths: 36, Status: assets.StatusActive, AcquiredOn: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f := newFixture(vehiclesDirectory(), truck(1), truck(2), desk)
	res, err := f.scheduler.Run(context.Background(), monthEnd(2024, time.January))
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	require.Len(t, res.Records, 3)

	var vehicles journals.JournalEntry
	for number, e := range f.poster.entries {
		if strings.HasPrefix(number, "DEP-202401-VEHICLES-") {
			vehicles = e
		}
	}
	require.Len(t, vehicles.Lines, 4)
	require.Len(t, vehicles.EntryNumber, len("DEP-202401-VEHICLES-")+8)
	debit, _ := vehicles.Totals()
	require.True(t, debit.Equal(d("4000")))
}

func TestRunLateAssetGetsDistinctEntry(t *testing.T) {
	f := newFixture(vehiclesDirectory(), truck(1))
	ctx := context.Background()
	first, err := f.scheduler.Run(ctx, monthEnd(2024, time.March))
	require.NoError(t, err)

	f.assets.m[2] = truck(2)
	second, err := f.scheduler.Run(ctx, monthEnd(2024, time.March))
	require.NoError(t, err)
	require.Len(t, second.Records, 1)
	require.Equal(t, int64(2), second.Records[0].AssetID)
	require.NotEqual(t, first.Entries[0], second.Entries[0])
	require.Len(t, f.poster.entries, 2)
}

func TestRunSkipsAssetsAcquiredAfterPeriod(t *testing.T) {
	late := truck(3)
	late.AcquiredOn = time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	f := newFixture(vehiclesDirectory(), late)
	res, err := f.scheduler.Run(context.Background(), monthEnd(2024, time.January))
	require.NoError(t, err)
	require.Empty(t, res.Records)
	require.Empty(t, f.poster.entries)
}

func TestRunMissingMappingFailsOnlyThatCategory(t *testing.T) {
	dir := vehiclesDirectory()
	delete(dir, mappings.CategoryKey("furniture", mappings.RoleAccumulatedDepreciation))
	desk := assets.Asset{
		ID: 9, Code: "FUR-009", Category: "Furniture", AcquisitionCost: d("3600"), CurrentValue: d("3600"),
		UsefulLifeMonths: 36, Status: assets.StatusActive, AcquiredOn: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f := newFixture(dir, truck(1), desk)
	res, err := f.scheduler.Run(context.Background(), monthEnd(2024, time.January))
	require.Error(t, err)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Len(t, res.Records, 1)
	require.True(t, f.assets.m[9].AccumulatedDepreciation.IsZero())
}

func TestRunFullLifeSumsToDepreciableBase(t *testing.T) {
	a := truck(1)
	a.AcquisitionCost = d("1000")
	a.CurrentValue = d("1000")
	a.SalvageValue = d("100")
	a.UsefulLifeMonths = 7
	f := newFixture(vehiclesDirectory(), a)
	ctx := context.Background()
	for m := time.January; m <= time.October; m++ {
		_, err := f.scheduler.Run(ctx, monthEnd(2024, m))
		require.NoError(t, err)
	}
	total := decimal.Zero
	for _, e := range f.poster.entries {
		debit, _ := e.Totals()
		total = total.Add(debit)
	}
	require.Len(t, f.poster.entries, 7)
	require.True(t, total.Equal(d("900")))
	require.True(t, f.assets.m[1].CurrentValue.Equal(d("100")))
}

func TestReverseAndRestoreDoNotPost(t *testing.T) {
	f := newFixture(vehiclesDirectory(), truck(1))
	ctx := context.Background()
	res, err := f.scheduler.Run(ctx, monthEnd(2024, time.January))
	require.NoError(t, err)
	id := res.Records[0].ID

	rec, err := f.scheduler.Reverse(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusReversed, rec.Status)
	require.Len(t, f.poster.entries, 1)
	require.True(t, f.assets.m[1].AccumulatedDepreciation.Equal(d("2000")))

	_, err = f.scheduler.Reverse(ctx, id)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	rec, err = f.scheduler.Restore(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusCalculated, rec.Status)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(vehiclesDirectory(), truck(1))
	ctx := context.Background()
	res, err := f.scheduler.Run(ctx, monthEnd(2024, time.January))
	require.NoError(t, err)
	_, err = f.scheduler.Run(ctx, monthEnd(2024, time.February))
	require.NoError(t, err)
	_, err = f.scheduler.Reverse(ctx, res.Records[0].ID)
	require.NoError(t, err)

	all, err := f.scheduler.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	reversed, err := f.scheduler.List(ctx, Filter{Status: StatusReversed})
	require.NoError(t, err)
	require.Len(t, reversed, 1)
	require.Equal(t, res.Records[0].ID, reversed[0].ID)
}
