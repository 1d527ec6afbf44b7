package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("depreciation:run").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("depreciation:run").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("depreciation:run", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("depreciation:run", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("depreciation:run")))
}

func TestAddIntegrityIssues(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddIntegrityIssues("unbalanced", 3)
	m.AddIntegrityIssues("unbalanced", 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.integrity.WithLabelValues("unbalanced")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.AddIntegrityIssues("unbalanced", 1)
	assert.NoError(t, m.Track("x").End(nil))
}
