package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrwhyte0520/contabi/internal/assets/depreciation"
	jobmetrics "github.com/mrwhyte0520/contabi/internal/jobs"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type runnerStub struct {
	asOf []time.Time
	err  error
}

func (r *runnerStub) Run(_ context.Context, asOf time.Time) (depreciation.RunResult, error) {
	r.asOf = append(r.asOf, asOf)
	return depreciation.RunResult{Period: depreciation.PeriodOf(asOf), Entries: []string{"DEP-X"}}, r.err
}

func TestDepreciationRunJobDefaultsToPreviousMonth(t *testing.T) {
	runner := &runnerStub{}
	job := NewDepreciationRunJob(runner, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.clock = func() time.Time { return time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC) }

	task, err := NewDepreciationRunTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, runner.asOf, 1)
	assert.Equal(t, "2024-02", depreciation.PeriodOf(runner.asOf[0]).String())
}

func TestDepreciationRunJobExplicitPeriod(t *testing.T) {
	runner := &runnerStub{}
	job := NewDepreciationRunJob(runner, discard, nil)

	task, err := NewDepreciationRunTask("2023-11")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, "2023-11", depreciation.PeriodOf(runner.asOf[0]).String())
}

func TestDepreciationRunJobBadPayloadSkipsRetry(t *testing.T) {
	job := NewDepreciationRunJob(&runnerStub{}, discard, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskDepreciationRun, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task, _ := NewDepreciationRunTask("2023-13")
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestDepreciationRunJobPropagatesFailure(t *testing.T) {
	boom := errors.New("category vehicles failed")
	job := NewDepreciationRunJob(&runnerStub{err: boom}, discard, nil)
	task, _ := NewDepreciationRunTask("2024-01")

	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

type checkerStub struct {
	issues []IntegrityIssue
	err    error
}

func (c checkerStub) FindIssues(context.Context) ([]IntegrityIssue, error) { return c.issues, c.err }

func TestLedgerIntegrityJobPasses(t *testing.T) {
	job := NewLedgerIntegrityJob(checkerStub{}, discard, nil)
	task, err := NewLedgerIntegrityTask(time.Now())
	require.NoError(t, err)
	assert.NoError(t, job.Handle(context.Background(), task))
}

func TestLedgerIntegrityJobReportsIssues(t *testing.T) {
	job := NewLedgerIntegrityJob(checkerStub{issues: []IntegrityIssue{
		{EntryNumber: "DEP-202401-VEHICLES-1A2B3C4D", Kind: IssueUnbalanced},
		{EntryNumber: "PAYROLL-202401-1-ACCRUAL", Kind: IssueTooFew},
	}}, discard, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Check(context.Background())
	assert.ErrorIs(t, err, ErrLedgerIntegrity)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type expirerStub struct{ calls int }

func (e *expirerStub) ExpireDue(context.Context, time.Time) (int64, error) {
	e.calls++
	return 2, nil
}

func TestQuoteExpiryJob(t *testing.T) {
	expirer := &expirerStub{}
	job := NewQuoteExpiryJob(expirer, discard, nil)
	require.NoError(t, job.Handle(context.Background(), NewQuoteExpiryTask()))
	assert.Equal(t, 1, expirer.calls)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, discard).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0}`, rec.Body.String())
}
