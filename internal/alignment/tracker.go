// Package alignment decides, frame by frame, whether a detected face matches
// the target guide and has held still long enough to be measured.
package alignment

import (
	"sync"

	"github.com/mustfahassan/pd-calculator/internal/geometry"
)

// Stability tracker defaults.
const (
	// HistorySize is the number of recent face centres kept.
	HistorySize = 5
	// StabilityFraction is the maximum centre spread, as a fraction of the
	// frame dimension, for the face to count as steady.
	StabilityFraction = 0.03
)

// Tracker keeps a sliding window of recent face centres and reports whether
// the face has been spatially steady across the window.
type Tracker struct {
	mu       sync.Mutex
	size     int
	fraction float64
	history  []geometry.Point
}

// NewTracker creates a Tracker with the default window and spread.
func NewTracker() *Tracker {
	return NewTrackerWith(HistorySize, StabilityFraction)
}

// NewTrackerWith creates a Tracker with a custom window size and spread fraction.
// Non-positive values fall back to the defaults.
func NewTrackerWith(size int, fraction float64) *Tracker {
	if size <= 0 {
		size = HistorySize
	}
	if fraction <= 0 {
		fraction = StabilityFraction
	}
	return &Tracker{
		size:     size,
		fraction: fraction,
		history:  make([]geometry.Point, 0, size),
	}
}

// Observe records a face centre and reports whether the window is full and
// both the x and y spreads are below the configured fraction of the frame.
func (t *Tracker) Observe(center geometry.Point, frameWidth, frameHeight int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) >= t.size {
		copy(t.history, t.history[1:])
		t.history = t.history[:t.size-1]
	}
	t.history = append(t.history, center)

	if len(t.history) < t.size {
		return false
	}

	minX, maxX := t.history[0].X, t.history[0].X
	minY, maxY := t.history[0].Y, t.history[0].Y
	for _, p := range t.history[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	return maxX-minX < float64(frameWidth)*t.fraction &&
		maxY-minY < float64(frameHeight)*t.fraction
}

// Reset clears the history.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = t.history[:0]
}

// Len returns the number of centres currently held.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}
