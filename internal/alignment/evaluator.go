package alignment

import (
	"math"

	"github.com/mustfahassan/pd-calculator/internal/detector"
	"github.com/mustfahassan/pd-calculator/internal/geometry"
)

// Instruction messages shown to the user.
const (
	MessagePerfect    = "Perfect"
	MessageMoveCloser = "Move closer"
	MessageMoveBack   = "Move back"
	MessageCenter     = "Center your face"
	MessageNoFace     = "No face detected"
)

// Guide describes the target face placement and the tolerances around it.
type Guide struct {
	// FaceWidthRatio is the target face width as a fraction of frame width.
	FaceWidthRatio float64
	// FaceHeightRatio is the guide outline height as a fraction of frame height.
	FaceHeightRatio float64
	// SizeTolerance is the allowed relative difference between face and target width.
	SizeTolerance float64
	// CenterTolerance is the allowed centre offset per axis, as a fraction of the frame.
	CenterTolerance float64
}

// DefaultGuide returns the standard target: 35% wide, 15% size and 5% centring tolerance.
func DefaultGuide() Guide {
	return Guide{
		FaceWidthRatio:  0.35,
		FaceHeightRatio: 0.55,
		SizeTolerance:   0.15,
		CenterTolerance: 0.05,
	}
}

// Verdict is the per-frame alignment outcome.
type Verdict struct {
	Aligned bool   `json:"aligned"`
	Message string `json:"message"`
}

// Evaluator turns one frame of landmarks into a Verdict.
type Evaluator struct {
	guide   Guide
	tracker *Tracker
}

// NewEvaluator creates an Evaluator. A nil tracker gets a default one.
func NewEvaluator(guide Guide, tracker *Tracker) *Evaluator {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Evaluator{guide: guide, tracker: tracker}
}

// Guide returns the target the evaluator checks against.
func (e *Evaluator) Guide() Guide {
	return e.guide
}

// Tracker returns the stability tracker consulted by Evaluate.
func (e *Evaluator) Tracker() *Tracker {
	return e.tracker
}

// Evaluate checks the (already mirrored) landmarks of one frame.
//
// Every frame's centre goes into the stability window before any check, so
// the window can hold off-centre frames. Size feedback wins over centring
// feedback, and Aligned needs both geometry and stability.
func (e *Evaluator) Evaluate(points []detector.Point3D, frameWidth, frameHeight int) Verdict {
	if len(points) == 0 || frameWidth <= 0 || frameHeight <= 0 {
		return Verdict{Message: MessageNoFace}
	}

	box := geometry.BoundingBox(geometry.ToPixels(points, frameWidth, frameHeight))
	center := box.Center()
	stable := e.tracker.Observe(center, frameWidth, frameHeight)

	offsetX := math.Abs(center.X-float64(frameWidth)/2) / float64(frameWidth)
	offsetY := math.Abs(center.Y-float64(frameHeight)/2) / float64(frameHeight)

	faceWidth := box.Width()
	targetWidth := float64(frameWidth) * e.guide.FaceWidthRatio
	widthDiff := math.Abs(faceWidth-targetWidth) / targetWidth

	switch {
	case widthDiff > e.guide.SizeTolerance:
		if faceWidth < targetWidth {
			return Verdict{Message: MessageMoveCloser}
		}
		return Verdict{Message: MessageMoveBack}
	case offsetX <= e.guide.CenterTolerance && offsetY <= e.guide.CenterTolerance && stable:
		return Verdict{Aligned: true, Message: MessagePerfect}
	default:
		return Verdict{Message: MessageCenter}
	}
}
