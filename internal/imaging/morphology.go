package imaging

import (
	"github.com/anthonynsimon/bild/effect"
)

// KernelRadius converts a morphological kernel size into the neighbourhood
// radius used by the bild operators (a radius R searches a 2R+1 window).
// Kernel sizes of 1 or less disable morphology and yield 0.
func KernelRadius(kernelSize int) int {
	if kernelSize <= 1 {
		return 0
	}
	return kernelSize / 2
}

// Close performs a morphological closing (dilate, then erode) on the mask.
//
// Closing fills gaps and pinholes narrower than the kernel while leaving the
// outer corners of solid regions in place, which matters for polygon vertex
// detection downstream. A radius of 0 returns an unmodified copy.
func Close(m *Mask, radius int) *Mask {
	if radius <= 0 {
		return m.Clone()
	}
	dilated := effect.Dilate(m.Gray(), float64(radius))
	eroded := effect.Erode(dilated, float64(radius))
	return MaskFromImage(eroded)
}
