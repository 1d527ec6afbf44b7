package assets

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

// Repository is the asset directory. Writes join the transaction in ctx.
type Repository interface {
	Get(ctx context.Context, id int64) (Asset, error)
	ListDepreciable(ctx context.Context, acquiredBy time.Time) ([]Asset, error)
	ApplyDepreciation(ctx context.Context, id int64, amount decimal.Decimal) error
	SetCurrentValue(ctx context.Context, id int64, value decimal.Decimal) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectAsset = `SELECT id, code, name, category, acquisition_cost, current_value, accumulated_depreciation,
useful_life_months, salvage_value, method, acquired_on, status FROM assets`

func (r *repository) Get(ctx context.Context, id int64) (Asset, error) {
	a, err := scanAsset(db.Conn(ctx, r.pool).QueryRow(ctx, selectAsset+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, ErrAssetNotFound
	}
	return a, err
}

// ListDepreciable returns active assets acquired on or before the date with
// depreciation left, ordered by category then id.
func (r *repository) ListDepreciable(ctx context.Context, acquiredBy time.Time) ([]Asset, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, selectAsset+`
WHERE status='active' AND acquired_on <= $1 AND accumulated_depreciation < acquisition_cost - salvage_value
ORDER BY category, id`, acquiredBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) ApplyDepreciation(ctx context.Context, id int64, amount decimal.Decimal) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE assets
SET accumulated_depreciation = accumulated_depreciation + $2, current_value = current_value - $2
WHERE id=$1 AND accumulated_depreciation + $2 <= acquisition_cost - salvage_value`, id, amount.StringFixed(2))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDepreciationExceeded
	}
	return nil
}

func (r *repository) SetCurrentValue(ctx context.Context, id int64, value decimal.Decimal) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE assets SET current_value=$2 WHERE id=$1`, id, value.StringFixed(2))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Category, &a.AcquisitionCost, &a.CurrentValue, &a.AccumulatedDepreciation,
		&a.UsefulLifeMonths, &a.SalvageValue, &a.Method, &a.AcquiredOn, &a.Status)
	return a, err
}
