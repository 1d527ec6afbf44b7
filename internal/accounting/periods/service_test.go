package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrwhyte0520/contabi/internal/accounting/shared"
	base "github.com/mrwhyte0520/contabi/internal/shared"
)

type stubRepo struct {
	periods []Period
}

func (s stubRepo) FindByDate(_ context.Context, date time.Time) (Period, error) {
	for _, p := range s.periods {
		if !date.Before(p.StartDate) && !date.After(p.EndDate) {
			return p, nil
		}
	}
	return Period{}, ErrNoPeriod
}

func TestGuardCheckOpen(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	guard := NewGuard(stubRepo{periods: []Period{
		{Code: "2024-01", StartDate: jan, EndDate: jan.AddDate(0, 1, -1), Status: PeriodStatusLocked},
		{Code: "2024-02", StartDate: feb, EndDate: feb.AddDate(0, 1, -1), Status: PeriodStatusOpen},
	}})
	ctx := context.Background()

	err := guard.CheckOpen(ctx, jan.AddDate(0, 0, 30))
	require.ErrorIs(t, err, shared.ErrPeriodLocked)
	require.ErrorIs(t, err, base.ErrValidation)

	require.NoError(t, guard.CheckOpen(ctx, feb.AddDate(0, 0, 28)))
	require.NoError(t, guard.CheckOpen(ctx, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)))
}

func TestNilGuardAllows(t *testing.T) {
	var g *Guard
	require.NoError(t, g.CheckOpen(context.Background(), time.Now()))
}
