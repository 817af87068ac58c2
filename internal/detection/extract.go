package detection

import (
	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/imaging"
)

// ShapeFor classifies a polygon by vertex count. Only triangles and
// quadrilaterals are recognised.
func ShapeFor(vertices int) (Shape, bool) {
	switch vertices {
	case 3:
		return Triangle, true
	case 4:
		return Square, true
	}
	return "", false
}

// Extract finds the outer contours in a color mask and returns the ones that
// approximate to a triangle or a quadrilateral, in raster order of their
// topmost-leftmost pixel.
//
// Contours enclosing less than t.DegenerateArea are dropped silently; they
// are single-pixel specks and lines that would otherwise reach scoring with
// an empty bounding box.
func Extract(cm ColorMask, t config.Tuning) []Candidate {
	labels, components := imaging.LabelComponents(cm.Mask)

	candidates := make([]Candidate, 0)
	for _, comp := range components {
		contour := TraceBoundary(labels, comp)
		if PolygonArea(contour) < t.DegenerateArea {
			continue
		}

		eps := t.ApproxEpsilon * ArcLength(contour, true)
		poly := ApproxPolygon(contour, eps)

		shape, ok := ShapeFor(len(poly))
		if !ok {
			continue
		}

		candidates = append(candidates, Candidate{
			Shape:   shape,
			Color:   cm.Color,
			Bounds:  BoundingBox(poly),
			Polygon: toPoints(poly),
			Area:    PolygonArea(poly),
			Contour: contour,
			Mask:    cm.Mask,
		})
	}
	return candidates
}
