package measure

import (
	"errors"
	"fmt"
	"math"

	"github.com/mustfahassan/pd-calculator/internal/detector"
)

// Calibration constants of the reference calculation.
const (
	// AverageFaceWidthMM is the assumed temple-to-temple width.
	AverageFaceWidthMM = 145.0
	// CalibrationFactor scales the raw estimate onto a 66 mm baseline.
	CalibrationFactor = 0.943
	// DefaultMinConfidence rejects measurements below this 0..100 score.
	DefaultMinConfidence = 50.0
	// MessageLowConfidence is returned when a measurement scores too low.
	MessageLowConfidence = "low confidence"
)

// Quality weights.
const (
	orientationWeight = 0.4
	eyeOpenWeight     = 0.3
	gazeWeight        = 0.3
)

var (
	// ErrMissingLandmark is returned when a required landmark id is absent.
	ErrMissingLandmark = errors.New("missing landmark")
	// ErrDegenerateFace is returned when the temple distance is zero.
	ErrDegenerateFace = errors.New("face width is zero")
)

// Measurement is the full output of one calculation.
type Measurement struct {
	LeftPupil  detector.Point3D
	RightPupil detector.Point3D
	PDNorm     float64 // inter-pupil distance in normalized units
	PDMM       float64
	Quality    float64 // 0..1, rounded to 2 decimals
}

// Calculator computes PD from a single landmark set.
type Calculator struct {
	minConfidence float64
}

// NewCalculator creates a Calculator rejecting results below minConfidence (0..100).
// A negative value disables the check.
func NewCalculator(minConfidence float64) *Calculator {
	return &Calculator{minConfidence: minConfidence}
}

// Measure runs the calculation and returns its intermediate values.
func (c *Calculator) Measure(landmarks map[int]detector.Point3D) (*Measurement, error) {
	left, err := irisCenter(landmarks, detector.LeftIris)
	if err != nil {
		return nil, err
	}
	right, err := irisCenter(landmarks, detector.RightIris)
	if err != nil {
		return nil, err
	}

	pdNorm := math.Hypot(right.X-left.X, right.Y-left.Y)

	rightTemple, err := lookup(landmarks, detector.RightTemple)
	if err != nil {
		return nil, err
	}
	leftTemple, err := lookup(landmarks, detector.LeftTemple)
	if err != nil {
		return nil, err
	}
	faceWidth := math.Abs(leftTemple.X - rightTemple.X)
	if faceWidth == 0 {
		return nil, ErrDegenerateFace
	}

	quality, err := measurementQuality(landmarks, left, right)
	if err != nil {
		return nil, err
	}

	return &Measurement{
		LeftPupil:  left,
		RightPupil: right,
		PDNorm:     pdNorm,
		PDMM:       pdNorm * (AverageFaceWidthMM / faceWidth) * CalibrationFactor,
		Quality:    quality,
	}, nil
}

// Calculate produces the endpoint result. Calculation failures and low
// confidence are reported as StatusError results, never as Go errors.
func (c *Calculator) Calculate(landmarks map[int]detector.Point3D) Result {
	m, err := c.Measure(landmarks)
	if err != nil {
		return Result{Status: StatusError, Message: err.Error()}
	}

	confidence := m.Quality * 100
	if c.minConfidence >= 0 && confidence < c.minConfidence {
		return Result{
			PDMM:       m.PDMM,
			Confidence: confidence,
			Status:     StatusError,
			Message:    MessageLowConfidence,
		}
	}

	return Result{
		PDMM:       math.Round(m.PDMM*10) / 10,
		Confidence: confidence,
		Status:     StatusSuccess,
	}
}

func lookup(landmarks map[int]detector.Point3D, id int) (detector.Point3D, error) {
	p, ok := landmarks[id]
	if !ok {
		return detector.Point3D{}, fmt.Errorf("%w: %d", ErrMissingLandmark, id)
	}
	return p, nil
}

func irisCenter(landmarks map[int]detector.Point3D, ring [4]int) (detector.Point3D, error) {
	var sx, sy float64
	for _, id := range ring {
		p, err := lookup(landmarks, id)
		if err != nil {
			return detector.Point3D{}, err
		}
		sx += p.X
		sy += p.Y
	}
	n := float64(len(ring))
	return detector.Point3D{X: sx / n, Y: sy / n}, nil
}

// measurementQuality scores head orientation, eye openness and gaze centring.
func measurementQuality(landmarks map[int]detector.Point3D, left, right detector.Point3D) (float64, error) {
	ids := []int{detector.NoseTip, detector.LeftEyeTop, detector.LeftEyeBottom, detector.RightEyeTop, detector.RightEyeBottom}
	pts := make(map[int]detector.Point3D, len(ids))
	for _, id := range ids {
		p, err := lookup(landmarks, id)
		if err != nil {
			return 0, err
		}
		pts[id] = p
	}

	orientation := math.Abs(0.5 - pts[detector.NoseTip].X)
	eyeOpenness := math.Min(
		math.Abs(pts[detector.LeftEyeTop].Y-pts[detector.LeftEyeBottom].Y),
		math.Abs(pts[detector.RightEyeTop].Y-pts[detector.RightEyeBottom].Y),
	)
	gaze := math.Abs(0.5 - (left.X+right.X)/2)

	orientationScore := math.Max(0, 1-orientation*4)
	eyeScore := math.Min(1, eyeOpenness*10)
	gazeScore := math.Max(0, 1-gaze*4)

	quality := orientationScore*orientationWeight + eyeScore*eyeOpenWeight + gazeScore*gazeWeight
	return math.Round(math.Min(1, quality)*100) / 100, nil
}
