package imaging

import (
	"image"
)

// Mask is a binary image with one byte per pixel: 255 is "on", 0 is "off".
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask returns an all-off mask of the given size.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Bounds returns the mask rectangle, always anchored at (0, 0).
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// On reports whether (x, y) is an on pixel. Out-of-range coordinates are off.
func (m *Mask) On(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Set switches the pixel at (x, y). Out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int, on bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	if on {
		m.Pix[y*m.Width+x] = 255
	} else {
		m.Pix[y*m.Width+x] = 0
	}
}

// Fill switches on every pixel of r (clipped to the mask).
func (m *Mask) Fill(r image.Rectangle) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[y*m.Width+x] = 255
		}
	}
}

// Count returns the number of on pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// CountRect returns the number of on pixels inside r, clipped to the mask.
func (m *Mask) CountRect(r image.Rectangle) int {
	r = r.Intersect(m.Bounds())
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.Width+r.Min.X : y*m.Width+r.Max.X]
		for _, v := range row {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

// Or merges the on pixels of other into m. Masks must be the same size.
func (m *Mask) Or(other *Mask) {
	for i, v := range other.Pix {
		if v != 0 {
			m.Pix[i] = 255
		}
	}
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{Width: m.Width, Height: m.Height, Pix: pix}
}

// Gray returns an *image.Gray view that shares the mask's pixels.
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   m.Bounds(),
	}
}

// MaskFromImage thresholds any image into a mask: a pixel is on when its red
// channel is at least half intensity. Gray and RGBA outputs of morphology
// operators carry the same value in every channel, so red is sufficient.
func MaskFromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < m.Height; y++ {
			row := src.Pix[(y+b.Min.Y-src.Rect.Min.Y)*src.Stride:]
			for x := 0; x < m.Width; x++ {
				if row[(x+b.Min.X-src.Rect.Min.X)*4] >= 128 {
					m.Pix[y*m.Width+x] = 255
				}
			}
		}
	default:
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				r, _, _, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
				if r>>8 >= 128 {
					m.Pix[y*m.Width+x] = 255
				}
			}
		}
	}

	return m
}

// InRange builds a mask of the pixels whose H, S and V all fall inside the
// inclusive [lower, upper] bounds.
func InRange(hsv *HSVImage, lower, upper [3]int) *Mask {
	m := NewMask(hsv.Width, hsv.Height)
	for i, o := 0, 0; i < len(m.Pix); i, o = i+1, o+3 {
		h, s, v := int(hsv.Pix[o]), int(hsv.Pix[o+1]), int(hsv.Pix[o+2])
		if h < lower[0] || h > upper[0] {
			continue
		}
		if s < lower[1] || s > upper[1] {
			continue
		}
		if v < lower[2] || v > upper[2] {
			continue
		}
		m.Pix[i] = 255
	}
	return m
}
