// Package detector provides face landmark detection interfaces and types for PD measurement.
package detector

// Face mesh landmark indices following the MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip        = 4
	RightEyeTop    = 159
	RightEyeBottom = 145
	LeftEyeTop     = 386
	LeftEyeBottom  = 374
	RightTemple    = 127
	LeftTemple     = 356
	NumLandmarks   = 478 // 468 mesh points plus 10 iris points
	irisRingPoints = 4
)

// LeftIris and RightIris are the four-point rings around each iris.
// Their centroid approximates the pupil centre.
var (
	LeftIris  = [irisRingPoints]int{474, 475, 476, 477}
	RightIris = [irisRingPoints]int{469, 470, 471, 472}
)

// Point3D is a normalized landmark: x and y in [0,1] relative to the frame,
// z a relative depth estimate.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Face is one detected face. The landmark id is the index into Points.
type Face struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// HasIris reports whether the face carries the refined iris landmarks.
func (f *Face) HasIris() bool {
	return f != nil && len(f.Points) >= NumLandmarks
}

// Clone returns a deep copy of the face.
func (f *Face) Clone() *Face {
	if f == nil {
		return nil
	}
	points := make([]Point3D, len(f.Points))
	copy(points, f.Points)
	return &Face{Points: points, Score: f.Score}
}

// ByID keys the landmarks by their integer id, the shape the
// measurement endpoint expects.
func ByID(points []Point3D) map[int]Point3D {
	out := make(map[int]Point3D, len(points))
	for i, p := range points {
		out[i] = p
	}
	return out
}
