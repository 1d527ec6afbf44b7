package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/mrwhyte0520/contabi/internal/jobs"
)

// QuoteExpirer expires quotes whose validity ended.
type QuoteExpirer interface {
	ExpireDue(ctx context.Context, asOf time.Time) (int64, error)
}

// QuoteExpiryJob moves lapsed quotes to expired.
type QuoteExpiryJob struct {
	Expirer QuoteExpirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

func NewQuoteExpiryJob(expirer QuoteExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuoteExpiryJob {
	return &QuoteExpiryJob{Expirer: expirer, Logger: logger, Metrics: metrics, clock: time.Now}
}

func (j *QuoteExpiryJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Expirer == nil {
		return errors.New("quote expiry: dependencies not configured")
	}
	tracker := j.Metrics.Track(TaskQuoteExpiry)
	defer func() {
		err = tracker.End(err)
	}()
	n, err := j.Expirer.ExpireDue(ctx, j.clock())
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("quote expiry", slog.Any("error", err))
		}
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("quote expiry finished", slog.Int64("expired", n))
	}
	return nil
}
