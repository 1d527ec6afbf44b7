package journals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/accounting/shared"
	"github.com/mrwhyte0520/contabi/internal/platform/db"
	base "github.com/mrwhyte0520/contabi/internal/shared"
)

// ErrDuplicateEntry is returned by Insert when the entry number already exists.
var ErrDuplicateEntry = errors.New("journals: entry number already posted")

// Repository encapsulates DB operations for journals. Writes join the
// transaction carried by ctx.
type Repository interface {
	GetByNumber(ctx context.Context, number string) (JournalEntry, error)
	List(ctx context.Context, page base.Page) ([]JournalEntry, error)
	Insert(ctx context.Context, entry JournalEntry) (JournalEntry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectEntry = `SELECT id, entry_number, date, description, reference, status, source_module, source_id, posted_at FROM journal_entries`

func (r *repository) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	q := db.Conn(ctx, r.pool)
	entry, err := scanEntry(q.QueryRow(ctx, selectEntry+` WHERE entry_number=$1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := q.Query(ctx, `SELECT l.line_number, l.account_id, a.code, l.debit, l.credit, l.description
FROM journal_lines l JOIN accounts a ON a.id = l.account_id
WHERE l.entry_id=$1 ORDER BY l.line_number`, entry.ID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.LineNumber, &line.AccountID, &line.AccountCode, &line.Debit, &line.Credit, &line.Description); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *repository) List(ctx context.Context, page base.Page) ([]JournalEntry, error) {
	page = page.Normalize()
	rows, err := db.Conn(ctx, r.pool).Query(ctx, selectEntry+` ORDER BY posted_at DESC, id DESC LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Insert writes the header and lines. A concurrent or earlier posting of the
// same entry number yields ErrDuplicateEntry.
func (r *repository) Insert(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	q := db.Conn(ctx, r.pool)
	err := q.QueryRow(ctx, `INSERT INTO journal_entries (entry_number, date, description, reference, status, source_module, source_id)
VALUES ($1, $2, $3, $4, 'posted', $5, $6)
ON CONFLICT (entry_number) DO NOTHING
RETURNING id, posted_at`, entry.EntryNumber, entry.Date, entry.Description, entry.Reference, entry.SourceModule, entry.SourceID).
		Scan(&entry.ID, &entry.PostedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsSerializationFailure(err) || db.IsUniqueViolation(err) {
			return JournalEntry{}, ErrDuplicateEntry
		}
		return JournalEntry{}, err
	}
	batch := &pgx.Batch{}
	for _, line := range entry.Lines {
		batch.Queue(`INSERT INTO journal_lines (entry_id, line_number, account_id, debit, credit, description)
VALUES ($1, $2, $3, $4, $5, $6)`, entry.ID, line.LineNumber, line.AccountID, line.Debit.StringFixed(2), line.Credit.StringFixed(2), line.Description)
	}
	if err := sendBatch(ctx, q, batch); err != nil {
		return JournalEntry{}, err
	}
	entry.Status = EntryStatusPosted
	return entry, nil
}

type batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func sendBatch(ctx context.Context, q db.Querier, batch *pgx.Batch) error {
	b, ok := q.(batcher)
	if !ok {
		return errors.New("journals: connection does not support batches")
	}
	results := b.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.EntryNumber, &e.Date, &e.Description, &e.Reference, &e.Status, &e.SourceModule, &e.SourceID, &e.PostedAt)
	return e, err
}
