package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back blank frames of a fixed size for testing.
// Detection results come from a mock detector, so frame content does not matter.
type MockCamera struct {
	width   int
	height  int
	fps     int
	openErr error
	mu      sync.Mutex
	running bool
	opens   int
	closes  int
	calls   int
	reads   int
}

// NewMockCamera creates a MockCamera producing width x height BGR frames.
func NewMockCamera(width, height int) *MockCamera {
	return &MockCamera{width: width, height: height, fps: DefaultFPS}
}

// FailOpen makes the next Open calls fail with err, as a denied or missing device would.
func (c *MockCamera) FailOpen(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.opens++
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.running {
		c.closes++
	}
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if c.width <= 0 || c.height <= 0 {
		return nil, errors.New("no frames available")
	}

	frame := gocv.NewMatWithSize(c.height, c.width, gocv.MatTypeCV8UC3)
	if frame.Empty() {
		frame.Close()
		return nil, fmt.Errorf("allocate %dx%d frame: %w", c.width, c.height, ErrEmptyFrame)
	}
	c.reads++

	return &frame, nil
}

// SetFPS changes the rate the capture loop polls at. Values <= 0 are ignored.
func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// CloseCalls returns how often Close was called, including on a closed camera.
func (c *MockCamera) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Stats returns how often the camera was opened, closed and read.
func (c *MockCamera) Stats() (opens, closes, reads int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.closes, c.reads
}
