package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/mrwhyte0520/contabi/internal/jobs"
)

// IntegrityIssue is one journal entry that breaks double-entry invariants.
type IntegrityIssue struct {
	EntryNumber string
	Kind        string
}

const (
	IssueUnbalanced = "unbalanced"
	IssueTooFew     = "too_few_lines"
)

// LedgerChecker finds posted entries that do not balance.
type LedgerChecker interface {
	FindIssues(ctx context.Context) ([]IntegrityIssue, error)
}

type pgLedgerChecker struct {
	pool *pgxpool.Pool
}

// NewLedgerChecker returns a checker backed by journal_entries and journal_lines.
func NewLedgerChecker(pool *pgxpool.Pool) LedgerChecker {
	return &pgLedgerChecker{pool: pool}
}

func (c *pgLedgerChecker) FindIssues(ctx context.Context) ([]IntegrityIssue, error) {
	rows, err := c.pool.Query(ctx, `SELECT e.entry_number,
	CASE WHEN COUNT(l.id) < 2 THEN 'too_few_lines' ELSE 'unbalanced' END
FROM journal_entries e
LEFT JOIN journal_lines l ON l.entry_id = e.id
WHERE e.status = 'posted'
GROUP BY e.id, e.entry_number
HAVING COUNT(l.id) < 2 OR COALESCE(SUM(l.debit), 0) <> COALESCE(SUM(l.credit), 0)
ORDER BY e.entry_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []IntegrityIssue
	for rows.Next() {
		var issue IntegrityIssue
		if err := rows.Scan(&issue.EntryNumber, &issue.Kind); err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	return out, rows.Err()
}

// ErrLedgerIntegrity is returned when the check finds broken entries.
var ErrLedgerIntegrity = errors.New("ledger integrity check failed")

// LedgerIntegrityJob verifies the general ledger on a schedule.
type LedgerIntegrityJob struct {
	Checker LedgerChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewLedgerIntegrityJob(checker LedgerChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{Checker: checker, Logger: logger, Metrics: metrics}
}

// Handle runs the check. Findings are reported, never repaired, and are not retried.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Checker == nil {
		return errors.New("ledger integrity: dependencies not configured")
	}
	if len(task.Payload()) > 0 {
		var payload LedgerIntegrityPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		err = tracker.End(err)
	}()
	return j.Check(ctx)
}

// Check runs the integrity query once and reports what it finds.
func (j *LedgerIntegrityJob) Check(ctx context.Context) error {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	issues, err := j.Checker.FindIssues(ctx)
	if err != nil {
		logger.Error("ledger integrity query", slog.Any("error", err))
		return err
	}
	if len(issues) == 0 {
		logger.Info("ledger integrity check passed", slog.String("job", TaskLedgerIntegrity))
		return nil
	}
	byKind := map[string]int{}
	for _, issue := range issues {
		byKind[issue.Kind]++
		logger.Error("ledger integrity issue", slog.String("entry_number", issue.EntryNumber), slog.String("kind", issue.Kind))
	}
	for kind, n := range byKind {
		j.Metrics.AddIntegrityIssues(kind, n)
	}
	return fmt.Errorf("%w: %d entries: %w", ErrLedgerIntegrity, len(issues), asynq.SkipRetry)
}
