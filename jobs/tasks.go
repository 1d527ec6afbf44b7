package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDepreciationRun runs the monthly depreciation scheduler.
	TaskDepreciationRun = "depreciation:run"
	// TaskLedgerIntegrity checks that every posted entry balances.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskQuoteExpiry expires quotes past their validity date.
	TaskQuoteExpiry = "quotes:expire"
)

// PeriodPrevious asks the depreciation job for the month before the run date.
const PeriodPrevious = "previous"

// DepreciationRunPayload selects the month to depreciate, as YYYY-MM or PeriodPrevious.
type DepreciationRunPayload struct {
	Period string `json:"period"`
}

// NewDepreciationRunTask builds a depreciation task. An empty period means the previous month.
func NewDepreciationRunTask(period string) (*asynq.Task, error) {
	if period == "" {
		period = PeriodPrevious
	}
	body, err := json.Marshal(DepreciationRunPayload{Period: period})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDepreciationRun, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// LedgerIntegrityPayload carries scheduling metadata.
type LedgerIntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask builds a ledger integrity task.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerIntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// NewQuoteExpiryTask builds a quote expiry task.
func NewQuoteExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskQuoteExpiry, nil, asynq.Queue(QueueDefault))
}
