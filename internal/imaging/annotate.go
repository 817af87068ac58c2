package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Overlay colors used for detection annotations.
var (
	BoxColor       = color.NRGBA{0, 255, 0, 255}
	LabelColor     = color.NRGBA{255, 255, 255, 255}
	LabelBackColor = color.NRGBA{0, 0, 0, 160}
)

// Canvas is a mutable copy of a frame that detection overlays are drawn onto.
type Canvas struct {
	*image.NRGBA
}

// NewCanvas copies img into a zero-origin NRGBA canvas. The source image is
// never modified.
func NewCanvas(img image.Image) *Canvas {
	return &Canvas{NRGBA: imaging.Clone(img)}
}

// DrawBox draws an unfilled rectangle outline of the given thickness just
// inside r. Parts of r outside the canvas are clipped.
func (c *Canvas) DrawBox(r image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	src := image.NewUniform(col)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness), // top
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y), // left
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		e = e.Intersect(c.Rect)
		if e.Empty() {
			continue
		}
		draw.Draw(c.NRGBA, e, src, image.Point{}, draw.Src)
	}
}

// DrawLabel draws text with its baseline-left corner at (x, y) over a
// translucent background strip. Labels that would start above the canvas are
// pushed down so they stay readable for boxes touching the top edge.
func (c *Canvas) DrawLabel(x, y int, text string, fg, bg color.Color) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	if y-ascent < c.Rect.Min.Y {
		y = c.Rect.Min.Y + ascent
	}
	if x < c.Rect.Min.X {
		x = c.Rect.Min.X
	}

	d := &font.Drawer{
		Dst:  c.NRGBA,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}

	width := d.MeasureString(text).Ceil()
	back := image.Rect(x-1, y-ascent-1, x+width+1, y+descent+1).Intersect(c.Rect)
	draw.Draw(c.NRGBA, back, image.NewUniform(bg), image.Point{}, draw.Over)

	d.DrawString(text)
}
