package detector

import "gocv.io/x/gocv"

// Detector is the landmark source of the capture pipeline: submit a frame,
// get the face found in it. Implementations are configured for single-face
// detection, so at most one Face is returned.
type Detector interface {
	// Detect analyzes a video frame and returns the detected face landmarks.
	// Returns an empty slice if no face is detected.
	Detect(frame *gocv.Mat) ([]Face, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// MaxFaces is the maximum number of faces to detect (always 1 for measurement).
	MaxFaces int

	// RefineLandmarks enables the iris landmarks (468-477).
	RefineLandmarks bool

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns the fixed single-face configuration used for measurement.
func DefaultConfig() Config {
	return Config{
		MaxFaces:        1,
		RefineLandmarks: true,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
