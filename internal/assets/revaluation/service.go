package revaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrwhyte0520/contabi/internal/accounting/accounts"
	"github.com/mrwhyte0520/contabi/internal/accounting/journals"
	"github.com/mrwhyte0520/contabi/internal/accounting/mappings"
	"github.com/mrwhyte0520/contabi/internal/assets"
	"github.com/mrwhyte0520/contabi/internal/formula"
	"github.com/mrwhyte0520/contabi/internal/platform/db"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

// EventRevaluation prefixes revaluation entry numbers.
const EventRevaluation = "REVAL"

const approvalModule = "revaluation"

// AccountResolver is the Account Directory surface used for category roles.
type AccountResolver interface {
	Resolve(ctx context.Context, key mappings.MappingKey) (accounts.Account, error)
}

// Poster is the posting engine surface.
type Poster interface {
	Post(ctx context.Context, draft journals.Draft, mark journals.SourceMarker) (journals.JournalEntry, error)
}

type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Service runs the revaluation lifecycle.
type Service struct {
	records   Repository
	assets    assets.Repository
	dir       AccountResolver
	poster    Poster
	tx        db.Transactor
	approvals ApprovalPort
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(records Repository, assetRepo assets.Repository, dir AccountResolver, poster Poster, tx db.Transactor, approvals ApprovalPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, assets: assetRepo, dir: dir, poster: poster, tx: tx, approvals: approvals, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create proposes a new carrying value, snapshotting the asset's current value.
func (s *Service) Create(ctx context.Context, in CreateInput) (Record, error) {
	asset, err := s.assets.Get(ctx, in.AssetID)
	if err != nil {
		return Record{}, err
	}
	var newValue decimal.Decimal
	switch in.Method {
	case MethodFormula:
		expr, err := formula.Parse(in.Expression, "value")
		if err != nil {
			return Record{}, err
		}
		newValue, err = expr.Eval(map[string]decimal.Decimal{"value": asset.CurrentValue})
		if err != nil {
			return Record{}, err
		}
	case MethodAppraisal, MethodMarket, MethodIndex:
		if in.NewValue == nil {
			return Record{}, fmt.Errorf("revaluation: new value required for %s: %w", in.Method, shared.ErrValidation)
		}
		newValue = *in.NewValue
	default:
		return Record{}, fmt.Errorf("revaluation: unknown method %q: %w", in.Method, shared.ErrValidation)
	}
	newValue = shared.Round2(newValue)
	if newValue.IsNegative() {
		return Record{}, fmt.Errorf("revaluation: new value must not be negative: %w", shared.ErrValidation)
	}
	rec := Record{
		AssetID:       asset.ID,
		PreviousValue: asset.CurrentValue,
		NewValue:      newValue,
		Delta:         newValue.Sub(asset.CurrentValue),
		Reason:        in.Reason,
		Method:        in.Method,
		Expression:    in.Expression,
		Status:        StatusPending,
	}
	created, err := s.records.Insert(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("revaluation: insert: %w", err)
	}
	s.logger.Info("revaluation proposed", slog.Int64("id", created.ID), slog.Int64("asset_id", asset.ID), slog.String("delta", created.Delta.StringFixed(2)))
	return created, nil
}

// Submit sends a pending record to review.
func (s *Service) Submit(ctx context.Context, id int64, note string) (Record, error) {
	return s.statusOnly(ctx, id, StatusInReview, shared.ApprovalSubmit, note)
}

// Reject closes a record without touching the asset or the ledger.
func (s *Service) Reject(ctx context.Context, id int64, note string) (Record, error) {
	return s.statusOnly(ctx, id, StatusRejected, shared.ApprovalReject, note)
}

func (s *Service) statusOnly(ctx context.Context, id int64, to Status, action shared.ApprovalAction, note string) (Record, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := Lifecycle.Check(rec.Status, to); err != nil {
		return Record{}, err
	}
	if Lifecycle.InvokesPosting(to) {
		return Record{}, fmt.Errorf("revaluation: %s must go through Approve: %w", to, shared.ErrInvalidTransition)
	}
	updated, err := s.records.Decide(ctx, id, []Status{rec.Status}, to, "")
	if err != nil {
		return Record{}, err
	}
	s.recordApproval(ctx, id, action, note)
	return updated, nil
}

// Approve applies the revaluation. A negligible delta only updates the record
// and the asset; otherwise the gain or loss is posted in the same transaction.
// The asset must still carry the value the record was proposed against.
func (s *Service) Approve(ctx context.Context, id int64, note string) (ApproveResult, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return ApproveResult{}, err
	}
	if err := Lifecycle.Check(rec.Status, StatusApproved); err != nil {
		return ApproveResult{}, err
	}
	asset, err := s.assets.Get(ctx, rec.AssetID)
	if err != nil {
		return ApproveResult{}, err
	}
	if !asset.CurrentValue.Equal(rec.PreviousValue) {
		return ApproveResult{}, fmt.Errorf("revaluation: asset %s value moved from %s to %s since the proposal: %w",
			asset.Code, rec.PreviousValue.StringFixed(2), asset.CurrentValue.StringFixed(2), shared.ErrConflict)
	}
	from := []Status{StatusPending, StatusInReview}
	delta := rec.NewValue.Sub(rec.PreviousValue)

	if shared.IsNegligible(delta) {
		var updated Record
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			if updated, err = s.records.Decide(ctx, id, from, StatusApproved, ""); err != nil {
				return err
			}
			return s.assets.SetCurrentValue(ctx, asset.ID, rec.NewValue)
		})
		if err != nil {
			return ApproveResult{}, err
		}
		s.recordApproval(ctx, id, shared.ApprovalApprove, note)
		return ApproveResult{Record: updated}, nil
	}

	lines, err := s.lines(ctx, asset, delta)
	if err != nil {
		return ApproveResult{}, err
	}
	draft, err := journals.Build(journals.BuildInput{
		Ref:          journals.EntryRef{Event: EventRevaluation, Period: rec.CreatedAt.Format("200601"), Source: strconv.FormatInt(rec.ID, 10)},
		Date:         s.now(),
		Description:  fmt.Sprintf("Revaluation %s: %s", asset.Code, rec.Reason),
		Reference:    asset.Code,
		SourceModule: mappings.ModuleAsset,
		Lines:        lines,
	})
	if err != nil {
		return ApproveResult{}, err
	}

	var updated Record
	marked := false
	_, err = s.poster.Post(ctx, draft, func(ctx context.Context, entry journals.JournalEntry) error {
		var err error
		if updated, err = s.records.Decide(ctx, id, from, StatusApproved, entry.EntryNumber); err != nil {
			return err
		}
		marked = true
		return s.assets.SetCurrentValue(ctx, asset.ID, rec.NewValue)
	})
	if err != nil {
		return ApproveResult{}, err
	}
	if !marked {
		// The entry already existed, so the record was approved by an earlier call.
		if updated, err = s.records.Get(ctx, id); err != nil {
			return ApproveResult{}, err
		}
	}
	s.recordApproval(ctx, id, shared.ApprovalApprove, note)
	return ApproveResult{Record: updated, Posted: true}, nil
}

func (s *Service) lines(ctx context.Context, asset assets.Asset, delta decimal.Decimal) ([]journals.CandidateLine, error) {
	assetAcc, err := s.dir.Resolve(ctx, mappings.CategoryKey(asset.Category, mappings.RoleAsset))
	if err != nil {
		return nil, err
	}
	var notFound *accounts.AccountNotFoundError
	if delta.IsPositive() {
		gain, err := s.dir.Resolve(ctx, mappings.CategoryKey(asset.Category, mappings.RoleRevaluationGain))
		if errors.As(err, &notFound) {
			return nil, &MissingGainAccountError{Category: asset.Category}
		}
		if err != nil {
			return nil, err
		}
		return []journals.CandidateLine{
			journals.Debit(assetAcc.ID, delta, "Revaluation "+asset.Code),
			journals.Credit(gain.ID, delta, "Revaluation gain "+asset.Code),
		}, nil
	}
	loss, err := s.dir.Resolve(ctx, mappings.CategoryKey(asset.Category, mappings.RoleRevaluationLoss))
	if errors.As(err, &notFound) {
		return nil, &MissingLossAccountError{Category: asset.Category}
	}
	if err != nil {
		return nil, err
	}
	amount := delta.Abs()
	return []journals.CandidateLine{
		journals.Debit(loss.ID, amount, "Revaluation loss "+asset.Code),
		journals.Credit(assetAcc.ID, amount, "Revaluation "+asset.Code),
	}, nil
}

// List returns records matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]Record, error) {
	return s.records.List(ctx, f)
}

func (s *Service) recordApproval(ctx context.Context, id int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	if err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  approvalModule,
		RefID:   id,
		ActorID: shared.ActorFromContext(ctx),
		Action:  action,
		Note:    note,
	}); err != nil {
		s.logger.Warn("record revaluation approval", slog.Int64("id", id), slog.Any("error", err))
	}
}
