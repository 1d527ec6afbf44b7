package depreciation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

// Repository persists depreciation records. Writes join the transaction in ctx.
type Repository interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	AssetsWithRecord(ctx context.Context, period Period) (map[int64]bool, error)
	CountByAsset(ctx context.Context, assetIDs []int64) (map[int64]int, error)
	List(ctx context.Context, f Filter) ([]Record, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// Insert adds a record. A second record for the same asset and period yields
// ErrAlreadyDepreciated.
func (r *repository) Insert(ctx context.Context, rec Record) (Record, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO depreciation_records
(asset_id, period, monthly_amount, accumulated, remaining_value, status, entry_number)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (asset_id, period) DO NOTHING
RETURNING id, created_at`,
		rec.AssetID, rec.Period.String(), rec.MonthlyAmount.StringFixed(2), rec.Accumulated.StringFixed(2),
		rec.RemainingValue.StringFixed(2), string(rec.Status), rec.EntryNumber).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || db.IsSerializationFailure(err) {
			return Record{}, fmt.Errorf("%w: asset %d period %s", ErrAlreadyDepreciated, rec.AssetID, rec.Period)
		}
		return Record{}, err
	}
	return rec, nil
}

const selectRecord = `SELECT r.id, r.asset_id, a.code, a.category, r.period, r.monthly_amount, r.accumulated,
r.remaining_value, r.status, r.entry_number, r.created_at
FROM depreciation_records r JOIN assets a ON a.id = r.asset_id`

func (r *repository) Get(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(db.Conn(ctx, r.pool).QueryRow(ctx, selectRecord+` WHERE r.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

// UpdateStatus moves a record only when it is still in from.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE depreciation_records SET status=$3 WHERE id=$1 AND status=$2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *repository) AssetsWithRecord(ctx context.Context, period Period) (map[int64]bool, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT asset_id FROM depreciation_records WHERE period=$1`, period.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *repository) CountByAsset(ctx context.Context, assetIDs []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT asset_id, COUNT(*) FROM depreciation_records
WHERE asset_id = ANY($1) GROUP BY asset_id`, assetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, f Filter) ([]Record, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.AssetID != 0 {
		add("r.asset_id=$%d", f.AssetID)
	}
	if !f.Period.IsZero() {
		add("r.period=$%d", f.Period.String())
	}
	if f.Status != "" {
		add("r.status=$%d", string(f.Status))
	}
	if f.Category != "" {
		add("lower(a.category)=lower($%d)", f.Category)
	}
	sql := selectRecord
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	page := f.Page.Normalize()
	args = append(args, page.Limit, page.Offset)
	sql += fmt.Sprintf(" ORDER BY r.period DESC, r.asset_id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

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
	var period string
	err := row.Scan(&rec.ID, &rec.AssetID, &rec.AssetCode, &rec.Category, &period, &rec.MonthlyAmount, &rec.Accumulated,
		&rec.RemainingValue, &rec.Status, &rec.EntryNumber, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Period, err = ParsePeriod(period)
	return rec, err
}
