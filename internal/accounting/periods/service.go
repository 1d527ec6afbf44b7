package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrwhyte0520/contabi/internal/accounting/shared"
)

// Guard rejects postings dated inside a closed or locked fiscal period.
// Dates outside every configured period are accepted.
type Guard struct {
	repo Repository
}

func NewGuard(repo Repository) *Guard {
	return &Guard{repo: repo}
}

// CheckOpen returns shared.ErrPeriodLocked when date falls in a non-open period.
func (g *Guard) CheckOpen(ctx context.Context, date time.Time) error {
	if g == nil || g.repo == nil {
		return nil
	}
	period, err := g.repo.FindByDate(ctx, date)
	if err != nil {
		if errors.Is(err, ErrNoPeriod) {
			return nil
		}
		return err
	}
	if period.Status != PeriodStatusOpen {
		return fmt.Errorf("%w: %s is %s", shared.ErrPeriodLocked, period.Code, period.Status)
	}
	return nil
}
