package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

// ErrNoPeriod is returned when no fiscal period covers a date.
var ErrNoPeriod = errors.New("periods: no period covers date")

type Repository interface {
	FindByDate(ctx context.Context, date time.Time) (Period, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// FindByDate returns the period covering the supplied date regardless of status.
func (r *repository) FindByDate(ctx context.Context, date time.Time) (Period, error) {
	var period Period
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id, code, start_date, end_date, status
FROM accounting_periods WHERE $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date).
		Scan(&period.ID, &period.Code, &period.StartDate, &period.EndDate, &period.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrNoPeriod
		}
		return Period{}, err
	}
	return period, nil
}
