package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveFrame(t *testing.T) {
	m := New()

	m.ObserveFrame(true)
	m.ObserveFrame(false)
	m.ObserveFrame(true)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FramesProcessed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FacesDetected))
}

func TestMetrics_ObserveSubmission(t *testing.T) {
	m := New()

	m.ObserveSubmission(OutcomeSuccess, time.Now())
	m.ObserveSubmission(OutcomeRejected, time.Now())
	m.ObserveSubmission(OutcomeRejected, time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues(OutcomeRejected)))
}

func TestMetrics_IndependentInstances(t *testing.T) {
	a := New()
	b := New()

	a.Triggers.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Triggers))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Triggers))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveCalculation("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `pdcalc_calculations_total{status="success"} 1`)
}
