package detection

import (
	"image"

	"github.com/ironsheep/markerctl/internal/imaging"
)

// mooreDirs lists the 8 neighbours clockwise starting from West.
var mooreDirs = [8]image.Point{
	{-1, 0},  // W
	{-1, -1}, // NW
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
	{0, 1},   // S
	{-1, 1},  // SW
}

func dirIndex(d image.Point) int {
	for i, m := range mooreDirs {
		if m == d {
			return i
		}
	}
	return 0
}

// TraceBoundary returns the outer boundary of a labelled component as an
// ordered, closed list of pixel coordinates (the first point is not repeated
// at the end). Holes are ignored.
//
// # Algorithm
//
// Moore-neighbour tracing. The component's Start pixel is its first pixel in
// raster order, so its West neighbour is guaranteed to be outside and serves
// as the initial backtrack. From each boundary pixel the 8 neighbours are
// scanned clockwise from the backtrack; the first pixel belonging to the
// component becomes the next boundary pixel. Tracing stops when the walk
// re-enters Start and steps to the same second pixel it took at the
// beginning (Jacob's criterion), which handles one-pixel-wide necks that
// visit Start twice.
func TraceBoundary(labels *imaging.Labels, comp imaging.Component) []image.Point {
	inside := func(p image.Point) bool {
		return labels.At(p.X, p.Y) == comp.Label
	}

	start := comp.Start
	contour := []image.Point{start}

	p := start
	b := start.Add(mooreDirs[0])

	// Every boundary pixel can be entered at most once per neighbour.
	limit := 8*comp.Area + 16

	for iter := 0; iter < limit; iter++ {
		d := dirIndex(b.Sub(p))

		prev := b
		next := p
		found := false
		for k := 1; k <= 8; k++ {
			q := p.Add(mooreDirs[(d+k)%8])
			if inside(q) {
				next = q
				found = true
				break
			}
			prev = q
		}
		if !found {
			// Isolated pixel.
			return contour
		}

		b, p = prev, next
		contour = append(contour, p)

		n := len(contour)
		if n >= 4 && contour[n-2] == contour[0] && contour[n-1] == contour[1] {
			return contour[:n-2]
		}
	}

	return contour
}
