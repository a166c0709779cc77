package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mustfahassan/pd-calculator/internal/app"
	"github.com/mustfahassan/pd-calculator/internal/session"
)

// SessionController is the capture session as seen by the HTTP layer.
type SessionController interface {
	Start() error
	Stop()
	MeasureAgain() error
	Status() session.Status
	SessionID() string
}

// StatusResponse is the JSON form of a session snapshot.
type StatusResponse struct {
	SessionID string `json:"session_id,omitempty"`
	session.Status
}

// NewStatusResponse pairs a snapshot with its session ID.
func NewStatusResponse(id string, s session.Status) StatusResponse {
	return StatusResponse{SessionID: id, Status: s}
}

// SessionHandler handles /api/session and its actions.
type SessionHandler struct {
	session SessionController
	log     *logrus.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s SessionController, log *logrus.Logger) *SessionHandler {
	return &SessionHandler{session: s, log: log}
}

// ServeHTTP routes GET /api/session and POST /api/session/{start,stop,retry}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/session")
	action = strings.Trim(action, "/")

	if action == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.status(w)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "start":
		h.start(w)
	case "stop":
		h.session.Stop()
		h.status(w)
	case "retry":
		h.retry(w)
	default:
		writeError(w, http.StatusNotFound, "Unknown session action")
	}
}

func (h *SessionHandler) status(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, NewStatusResponse(h.session.SessionID(), h.session.Status()))
}

// start handles POST /api/session/start. A camera that cannot be opened is
// reported as 503 so the UI can show an alert.
func (h *SessionHandler) start(w http.ResponseWriter) {
	if err := h.session.Start(); err != nil {
		if errors.Is(err, app.ErrCameraUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "Camera unavailable: check that a camera is connected and access is allowed")
			return
		}
		h.log.WithError(err).Error("Failed to start session")
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}
	h.status(w)
}

// retry handles POST /api/session/retry (measure again).
func (h *SessionHandler) retry(w http.ResponseWriter) {
	if err := h.session.MeasureAgain(); err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "No result to measure again from")
		case errors.Is(err, app.ErrCameraUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Camera unavailable: check that a camera is connected and access is allowed")
		default:
			h.log.WithError(err).Error("Failed to restart session")
			writeError(w, http.StatusInternalServerError, "Failed to restart session")
		}
		return
	}
	h.status(w)
}
