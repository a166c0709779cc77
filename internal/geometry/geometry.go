// Package geometry maps normalized landmarks into pixel space and provides
// the box and centroid helpers used by alignment and drawing.
package geometry

import "github.com/mustfahassan/pd-calculator/internal/detector"

// Point is a pixel-space point.
type Point struct {
	X float64
	Y float64
}

// Box is an axis-aligned pixel-space bounding box.
type Box struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// Width returns Right - Left.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns Bottom - Top.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// ToPixelSpace scales a normalized landmark to frame pixels.
func ToPixelSpace(p detector.Point3D, frameWidth, frameHeight int) Point {
	return Point{X: p.X * float64(frameWidth), Y: p.Y * float64(frameHeight)}
}

// ToPixels converts a whole landmark set.
func ToPixels(points []detector.Point3D, frameWidth, frameHeight int) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = ToPixelSpace(p, frameWidth, frameHeight)
	}
	return out
}

// MirrorX returns a copy of p flipped horizontally (x' = 1 - x).
// The preview is drawn mirrored while the landmark stream is not.
func MirrorX(p detector.Point3D) detector.Point3D {
	p.X = 1 - p.X
	return p
}

// MirrorAll returns a mirrored copy of a landmark set. Apply it exactly once
// per frame, before evaluation and drawing.
func MirrorAll(points []detector.Point3D) []detector.Point3D {
	if points == nil {
		return nil
	}
	out := make([]detector.Point3D, len(points))
	for i, p := range points {
		out[i] = MirrorX(p)
	}
	return out
}

// BoundingBox returns the min/max extent of points. An empty input yields
// the zero Box.
func BoundingBox(points []Point) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{Left: points[0].X, Right: points[0].X, Top: points[0].Y, Bottom: points[0].Y}
	for _, p := range points[1:] {
		if p.X < b.Left {
			b.Left = p.X
		}
		if p.X > b.Right {
			b.Right = p.X
		}
		if p.Y < b.Top {
			b.Top = p.Y
		}
		if p.Y > b.Bottom {
			b.Bottom = p.Y
		}
	}
	return b
}

// Centroid returns the arithmetic mean of points.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// IrisCenters estimates both pupil centres in pixel space from the iris rings.
// ok is false when the landmark set lacks the refined iris points.
func IrisCenters(points []detector.Point3D, frameWidth, frameHeight int) (left, right Point, ok bool) {
	if len(points) < detector.NumLandmarks {
		return Point{}, Point{}, false
	}
	ring := func(ids [4]int) Point {
		pts := make([]Point, 0, len(ids))
		for _, id := range ids {
			pts = append(pts, ToPixelSpace(points[id], frameWidth, frameHeight))
		}
		return Centroid(pts)
	}
	return ring(detector.LeftIris), ring(detector.RightIris), true
}
