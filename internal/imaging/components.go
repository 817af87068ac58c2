package imaging

import (
	"image"
)

// Component describes one 8-connected region of on pixels in a mask.
type Component struct {
	// Label is the 1-based label assigned to the component's pixels in Labels.
	Label int32

	// Start is the first pixel of the component in raster order (topmost row,
	// then leftmost column). It is always on the component's outer boundary.
	Start image.Point

	// Area is the number of pixels in the component.
	Area int

	// Bounds is the pixel bounding box (Max exclusive).
	Bounds image.Rectangle
}

// Labels maps every pixel of a mask to its component label (0 = background).
type Labels struct {
	Width  int
	Height int
	L      []int32
}

// At returns the label at (x, y); coordinates outside the image read as 0.
func (l *Labels) At(x, y int) int32 {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0
	}
	return l.L[y*l.Width+x]
}

// LabelComponents finds the 8-connected components of a mask.
//
// Components are numbered in raster order of their Start pixel, so the output
// is deterministic for a given mask.
//
// # Algorithm
//
// Each unvisited on pixel seeds an iterative, stack-based flood fill (no
// recursion, so large blobs cannot overflow the goroutine stack). Every pixel
// reached is labelled and folded into the component's area and bounding box.
func LabelComponents(m *Mask) (*Labels, []Component) {
	labels := &Labels{
		Width:  m.Width,
		Height: m.Height,
		L:      make([]int32, m.Width*m.Height),
	}
	components := make([]Component, 0)

	var stack []image.Point
	next := int32(1)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			if m.Pix[i] == 0 || labels.L[i] != 0 {
				continue
			}

			comp := Component{
				Label:  next,
				Start:  image.Pt(x, y),
				Bounds: image.Rect(x, y, x+1, y+1),
			}
			labels.L[i] = next
			stack = append(stack[:0], image.Pt(x, y))

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				comp.Area++
				comp.Bounds = comp.Bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				// 8-connected neighbors
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= m.Width || ny >= m.Height {
							continue
						}
						j := ny*m.Width + nx
						if m.Pix[j] == 0 || labels.L[j] != 0 {
							continue
						}
						labels.L[j] = next
						stack = append(stack, image.Pt(nx, ny))
					}
				}
			}

			components = append(components, comp)
			next++
		}
	}

	return labels, components
}

// RemoveSmallComponents returns a copy of the mask without the components
// whose pixel area is below minArea. A minArea of 0 or less keeps everything.
func RemoveSmallComponents(m *Mask, minArea int) *Mask {
	if minArea <= 0 {
		return m.Clone()
	}

	labels, components := LabelComponents(m)
	keep := make([]bool, len(components)+1)
	for _, c := range components {
		keep[c.Label] = c.Area >= minArea
	}

	out := NewMask(m.Width, m.Height)
	for i, l := range labels.L {
		if l != 0 && keep[l] {
			out.Pix[i] = 255
		}
	}
	return out
}
