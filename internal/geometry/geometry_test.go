package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustfahassan/pd-calculator/internal/detector"
)

func TestToPixelSpace(t *testing.T) {
	p := ToPixelSpace(detector.Point3D{X: 0.25, Y: 0.5, Z: -0.1}, 640, 480)

	assert.InDelta(t, 160.0, p.X, 1e-9)
	assert.InDelta(t, 240.0, p.Y, 1e-9)
}

func TestMirrorX(t *testing.T) {
	t.Run("flips x only", func(t *testing.T) {
		m := MirrorX(detector.Point3D{X: 0.2, Y: 0.3, Z: 0.4})

		assert.InDelta(t, 0.8, m.X, 1e-12)
		assert.Equal(t, 0.3, m.Y)
		assert.Equal(t, 0.4, m.Z)
	})

	t.Run("is an involution", func(t *testing.T) {
		for _, p := range detector.CenteredFace(0.35).Points {
			assert.InDelta(t, p.X, MirrorX(MirrorX(p)).X, 1e-12)
			assert.Equal(t, p.Y, MirrorX(MirrorX(p)).Y)
			assert.Equal(t, p.Z, MirrorX(MirrorX(p)).Z)
		}
	})
}

func TestMirrorAll(t *testing.T) {
	src := []detector.Point3D{{X: 0.1}, {X: 0.9}}

	out := MirrorAll(src)

	require.Len(t, out, 2)
	assert.InDelta(t, 0.9, out[0].X, 1e-12)
	assert.InDelta(t, 0.1, out[1].X, 1e-12)
	assert.Equal(t, 0.1, src[0].X, "source must not be modified")
	assert.Nil(t, MirrorAll(nil))
}

func TestBoundingBox(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   Box
	}{
		{name: "empty", points: nil, want: Box{}},
		{name: "single", points: []Point{{X: 3, Y: 4}}, want: Box{Left: 3, Right: 3, Top: 4, Bottom: 4}},
		{
			name:   "spread",
			points: []Point{{X: 10, Y: 50}, {X: -2, Y: 7}, {X: 4, Y: 90}},
			want:   Box{Left: -2, Right: 10, Top: 7, Bottom: 90},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BoundingBox(tt.points))
		})
	}

	b := Box{Left: 100, Right: 300, Top: 50, Bottom: 250}
	assert.Equal(t, 200.0, b.Width())
	assert.Equal(t, 200.0, b.Height())
	assert.Equal(t, Point{X: 200, Y: 150}, b.Center())
}

func TestCentroid(t *testing.T) {
	assert.Equal(t, Point{}, Centroid(nil))

	c := Centroid([]Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}})
	assert.Equal(t, Point{X: 1, Y: 1}, c)
}

func TestIrisCenters(t *testing.T) {
	t.Run("rings average to the pupil", func(t *testing.T) {
		face := detector.SyntheticFace(0.5, 0.5, 0.4, 0.5)

		left, right, ok := IrisCenters(face.Points, 640, 480)

		require.True(t, ok)
		assert.Greater(t, left.X, right.X, "unmirrored left pupil is on the image right")
		assert.InDelta(t, left.Y, right.Y, 1e-9)
	})

	t.Run("mirroring swaps image sides", func(t *testing.T) {
		face := detector.SyntheticFace(0.5, 0.5, 0.4, 0.5)

		left, right, ok := IrisCenters(MirrorAll(face.Points), 640, 480)

		require.True(t, ok)
		assert.Less(t, left.X, right.X)
	})

	t.Run("mesh without iris", func(t *testing.T) {
		_, _, ok := IrisCenters(make([]detector.Point3D, 468), 640, 480)
		assert.False(t, ok)
	})
}
