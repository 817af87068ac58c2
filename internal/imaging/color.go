package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSVImage holds a frame converted to 8-bit HSV.
//
// Pix stores three bytes per pixel (H, S, V) in row-major order, so the pixel
// at (x, y) starts at index (y*Width+x)*3.
type HSVImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// ToHSV converts an image to 8-bit HSV.
//
// The source is first normalized to a zero-origin *image.NRGBA so that images
// with non-zero bounds (sub-images, decoded crops) map to HSV coordinates
// starting at (0, 0).
func ToHSV(img image.Image) *HSVImage {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	out := &HSVImage{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*3),
	}

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		o := y * w * 3
		for x := 0; x < w; x++ {
			hh, ss, vv := RGBToHSV(row[x*4], row[x*4+1], row[x*4+2])
			out.Pix[o] = hh
			out.Pix[o+1] = ss
			out.Pix[o+2] = vv
			o += 3
		}
	}

	return out
}

// At returns the HSV triple at (x, y). Coordinates must be inside the image.
func (h *HSVImage) At(x, y int) (uint8, uint8, uint8) {
	i := (y*h.Width + x) * 3
	return h.Pix[i], h.Pix[i+1], h.Pix[i+2]
}

// RGBToHSV converts 8-bit RGB to 8-bit HSV (H 0-179, S 0-255, V 0-255).
//
// Hue is computed in degrees by go-colorful and halved, rounding to nearest.
// A hue that rounds up to 180 wraps back to 0.
func RGBToHSV(r, g, b uint8) (uint8, uint8, uint8) {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	hf, sf, vf := c.Hsv()

	h := int(math.Round(hf / 2))
	if h >= 180 {
		h -= 180
	}
	return uint8(h), uint8(math.Round(sf * 255)), uint8(math.Round(vf * 255))
}

// HSVToRGB converts 8-bit HSV back to an RGB color. It is used to render a
// representative swatch for a color profile.
func HSVToRGB(h, s, v int) colorful.Color {
	return colorful.Hsv(float64(h)*2, float64(s)/255.0, float64(v)/255.0).Clamped()
}

// HexSwatch returns the "#RRGGBB" form of the color halfway between two HSV
// bounds, which is what tuning UIs show as a preview of a profile.
func HexSwatch(lower, upper [3]int) string {
	mid := HSVToRGB(
		(lower[0]+upper[0])/2,
		(lower[1]+upper[1])/2,
		(lower[2]+upper[2])/2,
	)
	r, g, b := mid.RGB255()
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}
