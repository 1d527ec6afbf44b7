package revaluation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

// Repository persists revaluation records. Writes join the transaction in ctx.
type Repository interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	// Decide moves the record from one of the given states into to.
	Decide(ctx context.Context, id int64, from []Status, to Status, entryNumber string) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const recordColumns = `id, asset_id, previous_value, new_value, delta, reason, method, expression, status, entry_number, created_at, decided_at`

func (r *repository) Insert(ctx context.Context, rec Record) (Record, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO revaluation_records
(asset_id, previous_value, new_value, delta, reason, method, expression, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+recordColumns,
		rec.AssetID, rec.PreviousValue.StringFixed(2), rec.NewValue.StringFixed(2), rec.Delta.StringFixed(2),
		rec.Reason, string(rec.Method), rec.Expression, string(rec.Status))
	return scanRecord(row)
}

func (r *repository) Get(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+recordColumns+` FROM revaluation_records WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (r *repository) Decide(ctx context.Context, id int64, from []Status, to Status, entryNumber string) (Record, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	rec, err := scanRecord(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE revaluation_records
SET status=$2, entry_number=$3, decided_at=NOW()
WHERE id=$1 AND status = ANY($4)
RETURNING `+recordColumns, id, string(to), entryNumber, states))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: record %d is no longer in %v", ErrRecordNotFound, id, from)
	}
	return rec, err
}

func (r *repository) List(ctx context.Context, f Filter) ([]Record, error) {
	var where []string
	var args []any
	if f.AssetID != 0 {
		args = append(args, f.AssetID)
		where = append(where, fmt.Sprintf("asset_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	sql := `SELECT ` + recordColumns + ` FROM revaluation_records`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	page := f.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	sql += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.AssetID, &rec.PreviousValue, &rec.NewValue, &rec.Delta, &rec.Reason, &rec.Method,
		&rec.Expression, &rec.Status, &rec.EntryNumber, &rec.CreatedAt, &rec.DecidedAt)
	return rec, err
}
