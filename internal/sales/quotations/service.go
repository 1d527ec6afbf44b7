package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

const approvalModule = "quote"

type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

type Service struct {
	repo      Repository
	approvals ApprovalPort
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, approvals ApprovalPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, approvals: approvals, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Create(ctx context.Context, req CreateQuoteRequest) (Quote, error) {
	if req.Total.IsNegative() || !shared.HasMinorUnitPrecision(req.Total) {
		return Quote{}, fmt.Errorf("quotations: total must be a non-negative amount with two decimals: %w", shared.ErrValidation)
	}
	return s.repo.Create(ctx, Quote{
		Number:     strings.ToUpper(strings.TrimSpace(req.Number)),
		Customer:   strings.TrimSpace(req.Customer),
		Total:      req.Total,
		ValidUntil: req.ValidUntil,
		Status:     StatusPending,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (Quote, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, error) {
	return s.repo.List(ctx, req)
}

// Transition applies a status change other than conversion. A lapsed quote
// can only be rejected or expired.
func (s *Service) Transition(ctx context.Context, id int64, to QuoteStatus, note string) (Quote, error) {
	if to == StatusConverted {
		return Quote{}, fmt.Errorf("quotations: use convert to convert a quote: %w", shared.ErrValidation)
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if err := Lifecycle.Check(q.Status, to); err != nil {
		return Quote{}, err
	}
	if (to == StatusUnderReview || to == StatusApproved) && q.Lapsed(s.now()) {
		return Quote{}, ErrQuoteExpired
	}
	updated, err := s.repo.UpdateStatus(ctx, id, q.Status, to, "")
	if err != nil {
		return Quote{}, err
	}
	if action, ok := approvalActions[to]; ok {
		s.recordApproval(ctx, id, action, note)
	}
	s.logger.Info("quote status changed", slog.Int64("id", id), slog.String("from", string(q.Status)), slog.String("to", string(to)))
	return updated, nil
}

var approvalActions = map[QuoteStatus]shared.ApprovalAction{
	StatusUnderReview: shared.ApprovalSubmit,
	StatusApproved:    shared.ApprovalApprove,
	StatusRejected:    shared.ApprovalReject,
}

// Convert turns an approved quote into an invoice reference exactly once.
// Repeating the call with the same reference returns the converted quote.
func (s *Service) Convert(ctx context.Context, id int64, invoiceRef string) (Quote, error) {
	invoiceRef = strings.TrimSpace(invoiceRef)
	if invoiceRef == "" {
		return Quote{}, fmt.Errorf("quotations: invoice reference required: %w", shared.ErrValidation)
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if q.Status == StatusConverted && q.InvoiceRef == invoiceRef {
		return q, nil
	}
	if err := Lifecycle.Check(q.Status, StatusConverted); err != nil {
		return Quote{}, err
	}
	updated, err := s.repo.UpdateStatus(ctx, id, StatusApproved, StatusConverted, invoiceRef)
	if err != nil {
		return Quote{}, err
	}
	s.recordApproval(ctx, id, shared.ApprovalConvert, invoiceRef)
	s.logger.Info("quote converted", slog.Int64("id", id), slog.String("invoice_ref", invoiceRef))
	return updated, nil
}

// ExpireDue expires every open quote whose validity ended before asOf.
func (s *Service) ExpireDue(ctx context.Context, asOf time.Time) (int64, error) {
	y, m, d := asOf.Date()
	n, err := s.repo.ExpireBefore(ctx, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return 0, fmt.Errorf("quotations: expire: %w", err)
	}
	if n > 0 {
		s.logger.Info("quotes expired", slog.Int64("count", n))
	}
	return n, nil
}

func (s *Service) recordApproval(ctx context.Context, id int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  approvalModule,
		RefID:   id,
		ActorID: shared.ActorFromContext(ctx),
		Action:  action,
		Note:    note,
		At:      s.now(),
	})
	if err != nil {
		s.logger.Warn("record quote approval", slog.Int64("id", id), slog.Any("error", err))
	}
}
