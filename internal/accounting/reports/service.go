package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

// Service builds ledger reports.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TrialBalance summarises posted activity between from and to, inclusive.
func (s *Service) TrialBalance(ctx context.Context, from, to time.Time) (TrialBalance, error) {
	if from.IsZero() || to.IsZero() {
		return TrialBalance{}, fmt.Errorf("reports: from and to are required: %w", shared.ErrValidation)
	}
	if to.Before(from) {
		return TrialBalance{}, fmt.Errorf("reports: range ends before it starts: %w", shared.ErrValidation)
	}
	balances, err := s.repo.Balances(ctx, from, to)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(balances), nil
}
