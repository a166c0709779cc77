// Package overlay draws the capture guide and live feedback onto camera
// frames. It holds no decision logic: everything drawn comes from the View.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/mustfahassan/pd-calculator/internal/alignment"
	"github.com/mustfahassan/pd-calculator/internal/detector"
	"github.com/mustfahassan/pd-calculator/internal/geometry"
	"github.com/mustfahassan/pd-calculator/internal/measure"
)

// Style holds the colours and font settings of the overlay.
type Style struct {
	TextColor    color.RGBA
	GuideColor   color.RGBA
	AlignedColor color.RGBA
	ErrorColor   color.RGBA
	BannerColor  color.RGBA
	FontScale    float64
	Thickness    int
}

// DefaultStyle returns white guide lines, green markers and a dark banner.
func DefaultStyle() Style {
	return Style{
		TextColor:    color.RGBA{R: 255, G: 255, B: 255, A: 255},
		GuideColor:   color.RGBA{R: 255, G: 255, B: 255, A: 255},
		AlignedColor: color.RGBA{R: 0, G: 255, B: 0, A: 255},
		ErrorColor:   color.RGBA{R: 255, G: 0, B: 0, A: 255},
		BannerColor:  color.RGBA{R: 40, G: 40, B: 40, A: 255},
		FontScale:    0.8,
		Thickness:    2,
	}
}

// View is everything the overlay needs for one frame.
type View struct {
	// Landmarks are the mirrored landmarks the evaluator saw.
	Landmarks []detector.Point3D
	Message   string
	Aligned   bool
	// Progress is a percentage in [0, 100].
	Progress  float64
	Countdown int
	Result    *measure.Display
}

// Renderer draws Views onto frames.
type Renderer struct {
	guide alignment.Guide
	style Style
}

// New creates a Renderer for the given guide.
func New(guide alignment.Guide, style Style) *Renderer {
	return &Renderer{guide: guide, style: style}
}

// Render mirrors the frame in place and draws the overlay on it.
func (r *Renderer) Render(frame *gocv.Mat, v View) {
	if frame == nil || frame.Empty() {
		return
	}

	gocv.Flip(*frame, frame, 1)

	w, h := frame.Cols(), frame.Rows()

	r.drawGuide(frame, w, h, v.Aligned)
	r.drawPupils(frame, w, h, v)
	r.drawProgress(frame, w, h, v.Progress)
	if v.Countdown > 0 {
		r.drawCountdown(frame, w, h, v.Countdown)
	}
	if v.Message != "" {
		r.drawBanner(frame, w, h, v.Message, !v.Aligned)
	}
}

// GuideEllipse returns the centre and half-axes of the head outline.
func (r *Renderer) GuideEllipse(w, h int) (center, axes image.Point) {
	center = image.Pt(w/2, h/2)
	axes = image.Pt(int(float64(w)*r.guide.FaceWidthRatio/2), int(float64(h)*r.guide.FaceHeightRatio/2))
	return center, axes
}

// ProgressRects returns the progress track and its filled part.
func ProgressRects(w, h int, progress float64) (track, fill image.Rectangle) {
	const margin, height = 20, 12
	progress = max(0, min(100, progress))

	track = image.Rect(margin, margin, w-margin, margin+height)
	fillWidth := int(float64(track.Dx()) * progress / 100)
	fill = image.Rect(track.Min.X, track.Min.Y, track.Min.X+fillWidth, track.Max.Y)
	return track, fill
}

// BannerRect returns the instruction banner box for text of the given size.
func BannerRect(w, h int, textSize image.Point) image.Rectangle {
	const padding, bannerHeight, bottomOffset = 20, 50, 80
	bw := textSize.X + padding*2
	x := (w - bw) / 2
	y := h - bottomOffset
	return image.Rect(x, y, x+bw, y+bannerHeight)
}

func (r *Renderer) drawGuide(frame *gocv.Mat, w, h int, aligned bool) {
	c := r.style.GuideColor
	if aligned {
		c = r.style.AlignedColor
	}

	center, axes := r.GuideEllipse(w, h)
	gocv.Ellipse(frame, center, axes, 0, 0, 360, c, r.style.Thickness)

	// Neck and shoulders below the head outline.
	chin := center.Y + axes.Y
	neckHalf := axes.X / 2
	shoulderY := min(h-1, chin+axes.Y/3)
	gocv.Line(frame, image.Pt(center.X-neckHalf, chin-axes.Y/8), image.Pt(center.X-neckHalf, shoulderY), c, r.style.Thickness)
	gocv.Line(frame, image.Pt(center.X+neckHalf, chin-axes.Y/8), image.Pt(center.X+neckHalf, shoulderY), c, r.style.Thickness)
	gocv.Ellipse(frame, image.Pt(center.X, shoulderY+axes.Y), image.Pt(axes.X*2, axes.Y), 0, 180, 360, c, r.style.Thickness)
}

func (r *Renderer) drawPupils(frame *gocv.Mat, w, h int, v View) {
	left, right, ok := geometry.IrisCenters(v.Landmarks, w, h)
	if !ok {
		return
	}
	lp := image.Pt(int(left.X), int(left.Y))
	rp := image.Pt(int(right.X), int(right.Y))

	gocv.Circle(frame, lp, 3, r.style.AlignedColor, -1)
	gocv.Circle(frame, rp, 3, r.style.AlignedColor, -1)
	gocv.Line(frame, lp, rp, r.style.AlignedColor, r.style.Thickness)

	if v.Result != nil {
		text := fmt.Sprintf("PD: %s (%s)", v.Result.PD, v.Result.Confidence)
		org := image.Pt((lp.X+rp.X)/2-60, min(lp.Y, rp.Y)-20)
		gocv.PutText(frame, text, org, gocv.FontHersheySimplex, 0.6, r.style.AlignedColor, r.style.Thickness)
	}
}

func (r *Renderer) drawProgress(frame *gocv.Mat, w, h int, progress float64) {
	track, fill := ProgressRects(w, h, progress)
	gocv.Rectangle(frame, track, r.style.GuideColor, 1)
	if fill.Dx() > 0 {
		gocv.Rectangle(frame, fill, r.style.AlignedColor, -1)
	}
}

func (r *Renderer) drawCountdown(frame *gocv.Mat, w, h int, n int) {
	text := fmt.Sprintf("%d", n)
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, 4, 8)
	org := image.Pt((w-size.X)/2, (h+size.Y)/2)
	gocv.PutText(frame, text, org, gocv.FontHersheySimplex, 4, r.style.TextColor, 8)
}

func (r *Renderer) drawBanner(frame *gocv.Mat, w, h int, text string, isError bool) {
	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, r.style.FontScale, r.style.Thickness)
	rect := BannerRect(w, h, size)

	// Blend a dark box under the text.
	overlay := frame.Clone()
	defer overlay.Close()
	gocv.Rectangle(&overlay, rect, r.style.BannerColor, -1)
	gocv.AddWeighted(overlay, 0.7, *frame, 0.3, 0, frame)

	border := r.style.TextColor
	if isError {
		border = r.style.ErrorColor
	}
	gocv.Rectangle(frame, rect, border, 1)

	org := image.Pt(rect.Min.X+(rect.Dx()-size.X)/2, rect.Min.Y+(rect.Dy()+size.Y)/2)
	// Outline first for readability on bright backgrounds.
	gocv.PutText(frame, text, org, gocv.FontHersheySimplex, r.style.FontScale, color.RGBA{A: 255}, r.style.Thickness+2)
	gocv.PutText(frame, text, org, gocv.FontHersheySimplex, r.style.FontScale, r.style.TextColor, r.style.Thickness)
}

// EncodeJPEG encodes a rendered frame for streaming.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close, so copy out.
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
