package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/imaging"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
	green = color.RGBA{0, 255, 0, 255}
)

// testProfiles covers pure red and pure blue.
func testProfiles() config.Profiles {
	return config.Profiles{
		{Name: "Blue", Lower: config.HSV{H: 110, S: 100, V: 100}, Upper: config.HSV{H: 130, S: 255, V: 255}},
		{Name: "Red", Lower: config.HSV{H: 0, S: 100, V: 100}, Upper: config.HSV{H: 10, S: 255, V: 255}},
	}
}

// createTestImage creates a solid color test image.
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// fillRect paints r onto img.
func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func edgeSign(p, a, b image.Point) int {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// inTriangle reports whether p lies inside or on the triangle abc.
func inTriangle(p, a, b, c image.Point) bool {
	d1, d2, d3 := edgeSign(p, a, b), edgeSign(p, b, c), edgeSign(p, c, a)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// fillTriangle paints the triangle abc onto img.
func fillTriangle(img *image.RGBA, a, b, c image.Point, col color.Color) {
	r := img.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if inTriangle(image.Pt(x, y), a, b, c) {
				img.Set(x, y, col)
			}
		}
	}
}

// rectMask returns a mask with the given rectangles switched on.
func rectMask(width, height int, rects ...image.Rectangle) *imaging.Mask {
	m := imaging.NewMask(width, height)
	for _, r := range rects {
		m.Fill(r)
	}
	return m
}

// rectCandidate builds a Square candidate whose polygon is the w x h pixel
// rectangle at the origin.
func rectCandidate(w, h int) Candidate {
	poly := []image.Point{{0, 0}, {w - 1, 0}, {w - 1, h - 1}, {0, h - 1}}
	return Candidate{
		Shape:   Square,
		Color:   "Red",
		Bounds:  BoundingBox(poly),
		Polygon: toPoints(poly),
		Area:    PolygonArea(poly),
		Mask:    rectMask(w, h, image.Rect(0, 0, w, h)),
	}
}

// triangleCandidate builds a Triangle candidate from explicit vertices.
func triangleCandidate(pts ...image.Point) Candidate {
	return Candidate{
		Shape:   Triangle,
		Color:   "Blue",
		Bounds:  BoundingBox(pts),
		Polygon: toPoints(pts),
		Area:    PolygonArea(pts),
	}
}

func testLog(t *testing.T) logs.Log {
	return logs.NewTestingLog(t)
}
