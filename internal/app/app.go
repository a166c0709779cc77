// Package app runs a capture session: it owns the camera for the session's
// lifetime and drives frames through detection, the capture state machine,
// the overlay and the one-shot measurement request.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mustfahassan/pd-calculator/internal/capture"
	"github.com/mustfahassan/pd-calculator/internal/detector"
	"github.com/mustfahassan/pd-calculator/internal/logging"
	"github.com/mustfahassan/pd-calculator/internal/measure"
	"github.com/mustfahassan/pd-calculator/internal/metrics"
	"github.com/mustfahassan/pd-calculator/internal/overlay"
	"github.com/mustfahassan/pd-calculator/internal/session"
)

// Timing defaults.
const (
	DefaultCountdownInterval = time.Second
	DefaultSubmitTimeout     = 15 * time.Second
)

// ErrCameraUnavailable is returned by Start when the camera cannot be opened.
var ErrCameraUnavailable = errors.New("camera unavailable")

// Measurer submits captured landmarks for measurement.
type Measurer interface {
	Submit(ctx context.Context, landmarks []detector.Point3D) (*measure.Result, error)
}

// Config wires an App. Nil collaborators get defaults: a real camera from
// CameraConfig, the MediaPipe detector (falling back to a mock when it is
// not installed), fresh metrics and a discarding logger. Measurer is required.
type Config struct {
	CameraConfig      capture.Config
	Session           session.Config
	CountdownInterval time.Duration
	SubmitTimeout     time.Duration

	Camera   capture.Camera
	Detector detector.Detector
	Measurer Measurer
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger
}

// App is the capture runtime.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	measurer Measurer
	machine  *session.Machine
	renderer *overlay.Renderer
	metrics  *metrics.Metrics
	log      *logrus.Logger
	preview  *Preview

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	sessionID string

	subMu     sync.RWMutex
	nextSubID int
	subs      map[int]func(session.Status)
}

// New creates an App. It does not touch the camera until Start.
func New(config Config) (*App, error) {
	if config.Measurer == nil {
		return nil, errors.New("app: measurer is required")
	}
	if config.CountdownInterval <= 0 {
		config.CountdownInterval = DefaultCountdownInterval
	}
	if config.SubmitTimeout <= 0 {
		config.SubmitTimeout = DefaultSubmitTimeout
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}
	if config.Camera == nil {
		config.Camera = capture.NewCamera(config.CameraConfig)
	}

	a := &App{
		config:   config,
		camera:   config.Camera,
		detector: config.Detector,
		measurer: config.Measurer,
		machine:  session.New(config.Session),
		metrics:  config.Metrics,
		log:      config.Logger,
		preview:  NewPreview(),
		subs:     make(map[int]func(session.Status)),
	}
	a.renderer = overlay.New(a.machine.Config().Guide, overlay.DefaultStyle())

	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			a.detector = mp
			a.log.Info("Using MediaPipe face mesh detection")
		} else {
			a.log.WithError(err).Warn("MediaPipe not available, using mock detector")
			a.detector = detector.NewMockDetector()
		}
	}

	// Stopped until the first Start.
	a.machine.Stop()

	return a, nil
}

// Start opens the camera and begins a new capture session. Starting a
// running session is a no-op. When the camera cannot be opened the error
// wraps ErrCameraUnavailable and capture never begins.
func (a *App) Start() error {
	if err := a.start(); err != nil {
		return err
	}
	a.broadcast()
	return nil
}

func (a *App) start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.runningLocked() {
		return nil
	}

	a.machine.Start()
	if err := a.launchLocked(); err != nil {
		a.machine.Stop()
		return err
	}
	return nil
}

// MeasureAgain leaves the result display and starts capturing again.
func (a *App) MeasureAgain() error {
	if err := a.measureAgain(); err != nil {
		return err
	}
	a.broadcast()
	return nil
}

func (a *App) measureAgain() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.machine.MeasureAgain(); err != nil {
		return err
	}
	if a.runningLocked() {
		return nil
	}
	if err := a.launchLocked(); err != nil {
		a.machine.Stop()
		return err
	}
	return nil
}

// Stop halts the session from any state and releases the camera. Any
// response still in flight is discarded.
func (a *App) Stop() {
	a.machine.Stop()

	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	// A launched loop releases the camera itself on exit.
	if cancel != nil {
		cancel()
		<-done
	} else if err := a.camera.Close(); err != nil {
		a.log.WithError(err).Warn("Error closing camera")
	}

	a.log.WithField("session_id", a.SessionID()).Info("Capture session stopped")
	a.broadcast()
}

// Close stops the session and shuts the detector down.
func (a *App) Close() error {
	a.Stop()
	if err := a.detector.Close(); err != nil {
		return fmt.Errorf("close detector: %w", err)
	}
	return nil
}

// Running reports whether the frame loop is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runningLocked()
}

// Status returns the current session snapshot.
func (a *App) Status() session.Status {
	return a.machine.Status()
}

// SessionID identifies the current or most recent capture session.
func (a *App) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Preview returns the buffer holding the latest rendered frame.
func (a *App) Preview() *Preview {
	return a.preview
}

// Subscribe registers fn to receive every status change. The returned
// function removes it. fn is called from the frame loop and must not block.
func (a *App) Subscribe(fn func(session.Status)) (unsubscribe func()) {
	a.subMu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subs[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subs, id)
		a.subMu.Unlock()
	}
}

func (a *App) broadcast() {
	s := a.machine.Status()

	a.subMu.RLock()
	defer a.subMu.RUnlock()
	for _, fn := range a.subs {
		fn(s)
	}
}

// runningLocked reports whether a loop is active, reaping one that ended
// on its own after a successful measurement.
func (a *App) runningLocked() bool {
	if a.done == nil {
		return false
	}
	select {
	case <-a.done:
		a.cancel()
		a.cancel, a.done = nil, nil
		return false
	default:
		return true
	}
}

func (a *App) launchLocked() error {
	if err := a.camera.Open(); err != nil {
		a.log.WithError(err).Error("Camera unavailable")
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	a.sessionID = uuid.NewString()

	a.log.WithField("session_id", a.sessionID).Info("Capture session started")
	go a.runPipeline(ctx, a.done, a.log.WithField("session_id", a.sessionID))
	return nil
}
