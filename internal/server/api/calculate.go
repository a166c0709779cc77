package api

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mustfahassan/pd-calculator/internal/measure"
	"github.com/mustfahassan/pd-calculator/internal/metrics"
	"github.com/mustfahassan/pd-calculator/internal/store"
)

// maxCalculateBody bounds a /calculate_pd body; 478 landmarks fit easily.
const maxCalculateBody = 1 << 20

// CalculateHandler serves POST /calculate_pd.
type CalculateHandler struct {
	calculator *measure.Calculator
	limiter    *rate.Limiter
	store      *store.Store
	metrics    *metrics.Metrics
	log        *logrus.Logger
}

// NewCalculateHandler creates a CalculateHandler. A nil limiter disables
// rate limiting; a nil store disables the calculation log.
func NewCalculateHandler(c *measure.Calculator, limiter *rate.Limiter, s *store.Store, m *metrics.Metrics, log *logrus.Logger) *CalculateHandler {
	return &CalculateHandler{calculator: c, limiter: limiter, store: s, metrics: m, log: log}
}

// ServeHTTP computes the PD of one landmark set. Unusable landmarks and low
// confidence are answered with status "error" in a 200 body; only malformed
// requests get a 4xx.
func (h *CalculateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		h.respond(w, http.StatusTooManyRequests, measure.Result{Status: measure.StatusError, Message: "too many requests"})
		return
	}

	req, err := measure.DecodeRequest(http.MaxBytesReader(w, r.Body, maxCalculateBody))
	if err != nil {
		h.respond(w, http.StatusBadRequest, measure.Result{Status: measure.StatusError, Message: "invalid JSON"})
		return
	}
	if len(req.Landmarks) == 0 {
		h.respond(w, http.StatusBadRequest, measure.Result{Status: measure.StatusError, Message: "landmarks are required"})
		return
	}

	result := h.calculator.Calculate(req.Landmarks)

	fields := logrus.Fields{
		"status":     result.Status,
		"pd_mm":      result.PDMM,
		"confidence": result.Confidence,
		"landmarks":  len(req.Landmarks),
	}
	if result.OK() {
		h.log.WithFields(fields).Info("PD calculated")
	} else {
		h.log.WithFields(fields).WithField("message", result.Message).Warn("PD calculation rejected")
	}

	if h.store != nil {
		calc := &store.Calculation{
			Status:        string(result.Status),
			PDMM:          result.PDMM,
			Confidence:    result.Confidence,
			Message:       result.Message,
			LandmarkCount: len(req.Landmarks),
		}
		if err := h.store.Calculations().Create(calc); err != nil {
			h.log.WithError(err).Error("Failed to record calculation")
		}
	}

	h.respond(w, http.StatusOK, result)
}

func (h *CalculateHandler) respond(w http.ResponseWriter, status int, result measure.Result) {
	if h.metrics != nil {
		h.metrics.ObserveCalculation(string(result.Status))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := measure.EncodeResult(w, result); err != nil {
		h.log.WithError(err).Debug("Failed to write calculation response")
	}
}
