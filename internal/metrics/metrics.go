// Package metrics exposes capture and measurement counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
)

// Metrics tracks the capture pipeline and the measurement service.
type Metrics struct {
	registry *prometheus.Registry

	FramesProcessed    prometheus.Counter
	FacesDetected      prometheus.Counter
	DetectionErrors    prometheus.Counter
	Triggers           prometheus.Counter
	Submissions        *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
	Calculations       *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry, so tests
// and multiple instances never collide on the default one.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FramesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pdcalc_frames_processed_total",
			Help: "Total number of camera frames run through detection",
		}),
		FacesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "pdcalc_faces_detected_total",
			Help: "Total number of frames in which a face was found",
		}),
		DetectionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "pdcalc_detection_errors_total",
			Help: "Total number of frames the landmark detector failed on",
		}),
		Triggers: factory.NewCounter(prometheus.CounterOpts{
			Name: "pdcalc_capture_triggers_total",
			Help: "Total number of captures triggered by a full alignment streak",
		}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdcalc_submissions_total",
			Help: "Measurement submissions by outcome",
		}, []string{"outcome"}),
		SubmissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdcalc_submission_duration_seconds",
			Help:    "Round trip time of measurement submissions",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdcalc_calculations_total",
			Help: "Calculations served by the measurement endpoint, by status",
		}, []string{"status"}),
	}
}

// ObserveFrame records one processed frame.
func (m *Metrics) ObserveFrame(faceFound bool) {
	m.FramesProcessed.Inc()
	if faceFound {
		m.FacesDetected.Inc()
	}
}

// ObserveSubmission records a submission outcome and its latency.
// Call with time.Now() taken before the request.
func (m *Metrics) ObserveSubmission(outcome string, start time.Time) {
	m.Submissions.WithLabelValues(outcome).Inc()
	m.SubmissionDuration.Observe(time.Since(start).Seconds())
}

// ObserveCalculation records a calculation served with the given status.
func (m *Metrics) ObserveCalculation(status string) {
	m.Calculations.WithLabelValues(status).Inc()
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
