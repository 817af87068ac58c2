package detection

import (
	"image"
	"math"
)

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// ArcLength returns the length of the polyline through pts, including the
// closing segment back to pts[0] when closed is true.
func ArcLength(pts []image.Point, closed bool) float64 {
	if len(pts) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += dist(pts[i-1], pts[i])
	}
	if closed {
		total += dist(pts[len(pts)-1], pts[0])
	}
	return total
}

// PolygonArea returns the unsigned shoelace area of a closed polygon.
func PolygonArea(pts []image.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	sum := 0
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(float64(sum)) / 2
}

// BoundingBox returns the pixel bounding box of pts. The box is inclusive of
// every point, so a polygon spanning x=10..49 has width 40.
func BoundingBox(pts []image.Point) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	b := Bounds{X1: pts[0].X, Y1: pts[0].Y, X2: pts[0].X, Y2: pts[0].Y}
	for _, p := range pts[1:] {
		b.X1 = min(b.X1, p.X)
		b.Y1 = min(b.Y1, p.Y)
		b.X2 = max(b.X2, p.X)
		b.Y2 = max(b.Y2, p.Y)
	}
	b.X2++
	b.Y2++
	return b
}

// segmentDistance is the distance from p to the segment a-b.
func segmentDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	if dx == 0 && dy == 0 {
		return dist(p, a)
	}
	t := (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	px := float64(a.X) + t*dx
	py := float64(a.Y) + t*dy
	return math.Hypot(float64(p.X)-px, float64(p.Y)-py)
}

// simplifyOpen runs Douglas-Peucker on an open chain and returns the indices
// of the kept points, endpoints included.
func simplifyOpen(chain []image.Point, eps float64) []int {
	n := len(chain)
	if n <= 2 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true

	type span struct{ lo, hi int }
	stack := []span{{0, n - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		maxD, at := -1.0, -1
		for i := s.lo + 1; i < s.hi; i++ {
			if d := segmentDistance(chain[i], chain[s.lo], chain[s.hi]); d > maxD {
				maxD, at = d, i
			}
		}
		if at >= 0 && maxD > eps {
			keep[at] = true
			stack = append(stack, span{s.lo, at}, span{at, s.hi})
		}
	}

	idx := make([]int, 0, n)
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	return idx
}

func farthestFrom(pts []image.Point, from image.Point) int {
	best, bestD := 0, -1.0
	for i, p := range pts {
		if d := dist(p, from); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// ApproxPolygon simplifies a closed contour to a polygon whose edges stay
// within eps of the contour.
//
// # Algorithm
//
// The contour is split at two mutually distant points (the point farthest
// from the first point, and the point farthest from that one), both of which
// are necessarily polygon vertices. Each half is simplified with
// Douglas-Peucker. Finally, vertices lying within eps of the chord joining
// their two neighbours are removed one at a time (weakest first), which
// drops spurious vertices left on a straight edge where the halves meet. The
// result never has fewer than 3 vertices when the contour has at least 3.
func ApproxPolygon(contour []image.Point, eps float64) []image.Point {
	n := len(contour)
	if n < 3 {
		return append([]image.Point(nil), contour...)
	}

	a := farthestFrom(contour, contour[0])
	b := farthestFrom(contour, contour[a])
	if a == b {
		return append([]image.Point(nil), contour...)
	}
	if a > b {
		a, b = b, a
	}

	first := contour[a : b+1]
	second := make([]image.Point, 0, n-(b-a)+1)
	second = append(second, contour[b:]...)
	second = append(second, contour[:a+1]...)

	poly := make([]image.Point, 0, 8)
	for _, i := range simplifyOpen(first, eps) {
		poly = append(poly, first[i])
	}
	secondIdx := simplifyOpen(second, eps)
	// Skip both endpoints: they are already in poly.
	for _, i := range secondIdx[1 : len(secondIdx)-1] {
		poly = append(poly, second[i])
	}

	return pruneCollinear(poly, eps)
}

// pruneCollinear repeatedly removes the vertex closest to the chord of its
// neighbours while that distance is below eps and more than 3 vertices
// remain.
func pruneCollinear(poly []image.Point, eps float64) []image.Point {
	for len(poly) > 3 {
		weakest, weakestD := -1, eps
		for i := range poly {
			prev := poly[(i+len(poly)-1)%len(poly)]
			next := poly[(i+1)%len(poly)]
			if d := segmentDistance(poly[i], prev, next); d < weakestD {
				weakest, weakestD = i, d
			}
		}
		if weakest < 0 {
			break
		}
		poly = append(poly[:weakest], poly[weakest+1:]...)
	}
	return poly
}
