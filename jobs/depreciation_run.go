package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mrwhyte0520/contabi/internal/assets/depreciation"
	jobmetrics "github.com/mrwhyte0520/contabi/internal/jobs"
)

// DepreciationRunner is the scheduler surface used by the job.
type DepreciationRunner interface {
	Run(ctx context.Context, asOf time.Time) (depreciation.RunResult, error)
}

// DepreciationRunJob posts monthly depreciation from the worker.
type DepreciationRunJob struct {
	Runner  DepreciationRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDepreciationRunJob constructs the job handler.
func NewDepreciationRunJob(runner DepreciationRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *DepreciationRunJob {
	return &DepreciationRunJob{
		Runner:  runner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the depreciation run. Invalid payloads are not retried.
func (j *DepreciationRunJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Runner == nil {
		return errors.New("depreciation run: dependencies not configured")
	}
	var payload DepreciationRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	period, err := j.resolvePeriod(payload.Period)
	if err != nil {
		j.log().Error("resolve depreciation period", slog.String("period", payload.Period), slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskDepreciationRun)
	defer func() {
		err = tracker.End(err)
	}()

	result, err := j.Runner.Run(ctx, period.End())
	j.log().Info("depreciation run finished",
		slog.String("period", period.String()),
		slog.Int("entries", len(result.Entries)),
		slog.Int("records", len(result.Records)),
		slog.Any("skipped", result.Skipped))
	if err != nil {
		j.log().Error("depreciation run", slog.String("period", period.String()), slog.Any("error", err))
		return err
	}
	return nil
}

func (j *DepreciationRunJob) resolvePeriod(raw string) (depreciation.Period, error) {
	if raw == "" || raw == PeriodPrevious {
		return depreciation.PeriodOf(j.clock().AddDate(0, 0, -j.clock().Day())), nil
	}
	return depreciation.ParsePeriod(raw)
}

func (j *DepreciationRunJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
