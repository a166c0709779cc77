// Package session implements the capture state machine: debounced
// alignment counting, the countdown ritual and the one-shot measurement
// request, with late responses discarded after a stop.
package session

import (
	"errors"
	"math"
	"sync"

	"github.com/mustfahassan/pd-calculator/internal/alignment"
	"github.com/mustfahassan/pd-calculator/internal/detector"
	"github.com/mustfahassan/pd-calculator/internal/measure"
)

// Capture defaults.
const (
	// DefaultThreshold is the number of consecutive aligned and stable frames
	// that triggers a capture.
	DefaultThreshold = 30
	// DefaultCountdownSteps is the number of visible countdown ticks.
	DefaultCountdownSteps = 3
)

// ErrInvalidTransition is returned when an operation is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid session transition")

// State is the capture state.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateCountdown
	StateRequesting
	StateDisplaying
	StateStopped
)

var stateNames = map[State]string{
	StateIdle:         "idle",
	StateAccumulating: "accumulating",
	StateCountdown:    "countdown",
	StateRequesting:   "requesting",
	StateDisplaying:   "displaying",
	StateStopped:      "stopped",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the machine's tunables.
type Config struct {
	Threshold      int
	CountdownSteps int
	Guide          alignment.Guide
}

// DefaultConfig returns a Config with the standard 30-frame threshold and 3-step countdown.
func DefaultConfig() Config {
	return Config{
		Threshold:      DefaultThreshold,
		CountdownSteps: DefaultCountdownSteps,
		Guide:          alignment.DefaultGuide(),
	}
}

// Observation is one processed camera frame. View holds the mirrored
// landmarks used for evaluation and drawing; Raw holds the detector output
// as delivered, which is what gets submitted. Both are nil without a face.
type Observation struct {
	View   []detector.Point3D
	Raw    []detector.Point3D
	Width  int
	Height int
}

// FaceDetected reports whether the frame carried a face.
func (o Observation) FaceDetected() bool {
	return len(o.View) > 0
}

// FrameUpdate is the outcome of HandleFrame.
type FrameUpdate struct {
	Verdict   alignment.Verdict
	Count     int
	Progress  float64
	State     State
	Triggered bool
}

// CountdownUpdate is the outcome of CountdownTick.
type CountdownUpdate struct {
	// Active is false when the tick arrived outside Countdown and changed nothing.
	Active    bool
	Remaining int
	// Request is set on the final tick only.
	Request *Request
}

// Request is the single submission handed out when the countdown ends.
type Request struct {
	Epoch     uint64
	Landmarks []detector.Point3D
}

// Status is a snapshot for the UI.
type Status struct {
	State     State              `json:"state"`
	Message   string             `json:"message"`
	Aligned   bool               `json:"aligned"`
	Count     int                `json:"count"`
	Threshold int                `json:"threshold"`
	Progress  float64            `json:"progress"`
	Countdown int                `json:"countdown"`
	Result    *measure.Result    `json:"result,omitempty"`
	Display   *measure.Display   `json:"display,omitempty"`
	Error     string             `json:"error,omitempty"`
	View      []detector.Point3D `json:"-"`
}

// Machine owns all capture state. Every method is safe for concurrent use;
// the owning runtime drives it from a single frame loop.
type Machine struct {
	mu        sync.Mutex
	config    Config
	evaluator *alignment.Evaluator
	state     State
	count     int
	verdict   alignment.Verdict
	remaining int
	snapshot  []detector.Point3D
	view      []detector.Point3D
	epoch     uint64
	result    *measure.Result
	lastError string
}

// New creates a Machine in Idle.
func New(config Config) *Machine {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.CountdownSteps <= 0 {
		config.CountdownSteps = DefaultCountdownSteps
	}
	if config.Guide == (alignment.Guide{}) {
		config.Guide = alignment.DefaultGuide()
	}

	return &Machine{
		config:    config,
		evaluator: alignment.NewEvaluator(config.Guide, alignment.NewTracker()),
		state:     StateIdle,
		verdict:   alignment.Verdict{Message: alignment.MessageNoFace},
	}
}

// Config returns the machine configuration.
func (m *Machine) Config() Config {
	return m.config
}

// HandleFrame evaluates one frame. Frames are only counted in Idle and
// Accumulating; in every other state they are ignored, so nothing can
// trigger while a countdown or request is under way.
func (m *Machine) HandleFrame(obs Observation) FrameUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle && m.state != StateAccumulating {
		return m.frameUpdateLocked(false)
	}

	m.view = obs.View

	if !obs.FaceDetected() {
		m.count = 0
		m.verdict = alignment.Verdict{Message: alignment.MessageNoFace}
		m.state = StateIdle
		return m.frameUpdateLocked(false)
	}

	m.verdict = m.evaluator.Evaluate(obs.View, obs.Width, obs.Height)
	if m.verdict.Aligned {
		m.count = min(m.count+1, m.config.Threshold)
	} else {
		m.count = 0
	}

	if m.count == 0 {
		m.state = StateIdle
	} else {
		m.state = StateAccumulating
	}

	if m.count >= m.config.Threshold {
		m.state = StateCountdown
		m.remaining = m.config.CountdownSteps
		m.snapshot = cloneLandmarks(obs.Raw)
		return m.frameUpdateLocked(true)
	}

	return m.frameUpdateLocked(false)
}

// CountdownTick advances the countdown by one step. The final step moves
// to Requesting and hands out the captured landmarks exactly once.
// Ticks outside Countdown change nothing.
func (m *Machine) CountdownTick() CountdownUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCountdown {
		return CountdownUpdate{}
	}

	m.remaining--
	if m.remaining > 0 {
		return CountdownUpdate{Active: true, Remaining: m.remaining}
	}

	m.state = StateRequesting
	req := &Request{Epoch: m.epoch, Landmarks: m.snapshot}
	m.snapshot = nil
	return CountdownUpdate{Active: true, Remaining: 0, Request: req}
}

// Complete delivers the outcome of a request. It returns false when the
// response is stale (a stop or restart happened since the request was
// issued) and was discarded. A success moves to Displaying; any failure
// returns to Idle with the counter and history cleared.
func (m *Machine) Complete(epoch uint64, result *measure.Result, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRequesting || epoch != m.epoch {
		return false
	}

	if err == nil && result.OK() {
		m.state = StateDisplaying
		m.result = result
		m.lastError = ""
		return true
	}

	switch {
	case err != nil:
		m.lastError = err.Error()
	case result != nil && result.Message != "":
		m.lastError = result.Message
	default:
		m.lastError = "measurement failed"
	}
	m.resetLocked()
	return true
}

// MeasureAgain leaves Displaying for a fresh Idle session.
func (m *Machine) MeasureAgain() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDisplaying {
		return ErrInvalidTransition
	}
	m.epoch++
	m.result = nil
	m.lastError = ""
	m.resetLocked()
	return nil
}

// Start (re-)initializes the machine into Idle from any state.
func (m *Machine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.result = nil
	m.lastError = ""
	m.resetLocked()
}

// Stop halts the session from any state. The counter and history are
// cleared and any in-flight response will be discarded.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.resetLocked()
	m.state = StateStopped
	m.verdict = alignment.Verdict{}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Count returns the consecutive aligned-frame counter.
func (m *Machine) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Status returns a snapshot for the UI.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		State:     m.state,
		Message:   m.verdict.Message,
		Aligned:   m.verdict.Aligned,
		Count:     m.count,
		Threshold: m.config.Threshold,
		Progress:  Progress(m.count, m.config.Threshold),
		Error:     m.lastError,
		View:      m.view,
	}
	if m.state == StateCountdown {
		s.Countdown = m.remaining
	}
	if m.result != nil {
		r := *m.result
		d := r.Display()
		s.Result = &r
		s.Display = &d
	}
	return s
}

// Progress converts a counter to a percentage clamped to [0, 100].
func Progress(count, threshold int) float64 {
	if threshold <= 0 {
		return 0
	}
	p := float64(count) / float64(threshold) * 100
	return math.Max(0, math.Min(100, p))
}

// resetLocked re-enters Idle with an empty counter and history.
func (m *Machine) resetLocked() {
	m.state = StateIdle
	m.count = 0
	m.remaining = 0
	m.snapshot = nil
	m.view = nil
	m.verdict = alignment.Verdict{Message: alignment.MessageNoFace}
	m.evaluator.Tracker().Reset()
}

func (m *Machine) frameUpdateLocked(triggered bool) FrameUpdate {
	return FrameUpdate{
		Verdict:   m.verdict,
		Count:     m.count,
		Progress:  Progress(m.count, m.config.Threshold),
		State:     m.state,
		Triggered: triggered,
	}
}

func cloneLandmarks(points []detector.Point3D) []detector.Point3D {
	if points == nil {
		return nil
	}
	out := make([]detector.Point3D, len(points))
	copy(out, points)
	return out
}
