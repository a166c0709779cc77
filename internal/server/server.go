// Package server provides the HTTP server of pdcalc: the capture session
// API, the preview stream, status events and the measurement endpoint.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/mustfahassan/pd-calculator/internal/logging"
	"github.com/mustfahassan/pd-calculator/internal/measure"
	"github.com/mustfahassan/pd-calculator/internal/metrics"
	"github.com/mustfahassan/pd-calculator/internal/server/api"
	"github.com/mustfahassan/pd-calculator/internal/session"
	"github.com/mustfahassan/pd-calculator/internal/store"
)

// Session is the capture session the server drives.
type Session interface {
	api.SessionController
	Subscribe(fn func(session.Status)) (unsubscribe func())
}

// Config holds the server configuration. Every component is optional; its
// routes are only registered when it is set.
type Config struct {
	StaticDir  string
	Session    Session
	Preview    FrameSource
	Calculator *measure.Calculator
	Store      *store.Store
	Metrics    *metrics.Metrics
	Logger     *logrus.Logger
	// RateLimit and RateBurst throttle /calculate_pd. Zero disables throttling.
	RateLimit float64
	RateBurst int
}

// Server represents the HTTP server for the pdcalc application.
type Server struct {
	config Config
	mux    *http.ServeMux
	events *EventHub
	start  time.Time
	log    *logrus.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    config.Logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Session != nil {
		sessionHandler := api.NewSessionHandler(s.config.Session, s.log)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)

		s.events = NewEventHub(s.config.Session.SessionID, s.log)
		s.events.Attach(s.config.Session)
		s.mux.Handle("/api/events", s.events)
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.Calculator != nil {
		var limiter *rate.Limiter
		if s.config.RateLimit > 0 {
			burst := max(s.config.RateBurst, 1)
			limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), burst)
		}
		s.mux.Handle("/calculate_pd", api.NewCalculateHandler(s.config.Calculator, limiter, s.config.Store, s.config.Metrics, s.log))
	}

	if s.config.Store != nil {
		calculations := api.NewCalculationsHandler(s.config.Store)
		s.mux.Handle("/api/calculations", calculations)
		s.mux.Handle("/api/calculations/", calculations)
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	s.mux.ServeHTTP(rec, r)

	// Long-lived streams log on completion like everything else.
	fields := logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     rec.status,
		"latency_ms": time.Since(start).Milliseconds(),
		"ip":         r.RemoteAddr,
	}
	switch {
	case rec.status >= 500:
		s.log.WithFields(fields).Error("Server error")
	case rec.status >= 400:
		s.log.WithFields(fields).Warn("Client error")
	default:
		s.log.WithFields(fields).Debug("Success")
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// HTTPServer returns an http.Server serving s on addr, ready for
// ListenAndServe and graceful Shutdown.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Close disconnects event subscribers.
func (s *Server) Close() {
	if s.events != nil {
		s.events.Close()
	}
}

// Serve runs the server on addr until ctx is cancelled, then shuts it down.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := s.HTTPServer(addr)
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
