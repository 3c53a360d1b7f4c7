package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics("test")

	m.RunFinished("done")
	m.RunFinished("done")
	m.StageFailed("minting")
	m.NotificationResult("failed")
	m.Reconciled("created")
	m.ObserveStage("extracting", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineStageFailures.WithLabelValues("minting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reconciliations.WithLabelValues("created")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_pipeline_runs_total")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunFinished("done")
		m.StageFailed("x")
		m.ObserveStage("x", time.Second)
		m.NotificationResult("sent")
		m.Reconciled("existing")
	})
}
