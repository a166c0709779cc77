package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	faces  []Face
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Face, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Calls returns how many frames were submitted.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SyntheticFace builds a full 478-point face whose landmark bounding box is
// centred on (cx, cy) with the given normalized width and height.
// Mesh points lie on the face oval, the iris rings sit at eye height, and
// the landmarks read by the measurement service get plausible positions.
func SyntheticFace(cx, cy, width, height float64) Face {
	points := make([]Point3D, NumLandmarks)
	rx, ry := width/2, height/2

	for i := 0; i < NumLandmarks; i++ {
		angle := 2 * math.Pi * float64(i) / float64(NumLandmarks)
		points[i] = Point3D{
			X: cx + rx*math.Cos(angle),
			Y: cy + ry*math.Sin(angle),
			Z: 0,
		}
	}

	// The oval above already spans the box; everything below stays inside it.
	eyeY := cy - ry*0.15
	eyeDX := rx * 0.45
	irisR := rx * 0.06

	setRing := func(ring [irisRingPoints]int, x float64) {
		offsets := [irisRingPoints][2]float64{{irisR, 0}, {0, -irisR}, {-irisR, 0}, {0, irisR}}
		for k, id := range ring {
			points[id] = Point3D{X: x + offsets[k][0], Y: eyeY + offsets[k][1], Z: -0.01}
		}
	}
	// Subject's left eye appears on the image right in an unmirrored frame.
	setRing(LeftIris, cx+eyeDX)
	setRing(RightIris, cx-eyeDX)

	points[NoseTip] = Point3D{X: cx, Y: cy + ry*0.1, Z: -0.05}
	points[LeftEyeTop] = Point3D{X: cx + eyeDX, Y: eyeY - ry*0.05}
	points[LeftEyeBottom] = Point3D{X: cx + eyeDX, Y: eyeY + ry*0.05}
	points[RightEyeTop] = Point3D{X: cx - eyeDX, Y: eyeY - ry*0.05}
	points[RightEyeBottom] = Point3D{X: cx - eyeDX, Y: eyeY + ry*0.05}
	points[RightTemple] = Point3D{X: cx - rx*0.95, Y: eyeY}
	points[LeftTemple] = Point3D{X: cx + rx*0.95, Y: eyeY}

	return Face{Points: points, Score: 0.97}
}

// CenteredFace returns a face centred in the frame, widthRatio wide,
// with a 4:3 height to width ratio of a typical face mesh.
func CenteredFace(widthRatio float64) Face {
	return SyntheticFace(0.5, 0.5, widthRatio, widthRatio*4/3)
}
