package detection

import (
	"fmt"

	"github.com/ironsheep/markerctl/internal/config"
)

// Validate reports whether a candidate is geometrically plausible for its
// shape. Rejected candidates are not scored.
func Validate(c Candidate, t config.Tuning) bool {
	return Rejection(c, t) == ""
}

// Rejection returns why Validate rejects c, or "" when it is accepted.
//
// The rules are:
//   - every shape: polygon area at least t.MinPolygonArea
//   - Square: bounding-box aspect (w/h) inside [SquareAspectMin, SquareAspectMax], inclusive
//   - Triangle: exactly 3 vertices and area at least t.MinTriangleArea
func Rejection(c Candidate, t config.Tuning) string {
	if c.Area < t.MinPolygonArea {
		return fmt.Sprintf("area %.0f below %.0f", c.Area, t.MinPolygonArea)
	}
	switch c.Shape {
	case Square:
		ar := c.Aspect()
		if ar < t.SquareAspectMin || ar > t.SquareAspectMax {
			return fmt.Sprintf("aspect %.3f outside [%.2f, %.2f]", ar, t.SquareAspectMin, t.SquareAspectMax)
		}
		return ""
	case Triangle:
		if len(c.Polygon) != 3 {
			return fmt.Sprintf("triangle with %d vertices", len(c.Polygon))
		}
		if c.Area < t.MinTriangleArea {
			return fmt.Sprintf("triangle area %.0f below %.0f", c.Area, t.MinTriangleArea)
		}
		return ""
	}
	return fmt.Sprintf("unknown shape %q", c.Shape)
}
