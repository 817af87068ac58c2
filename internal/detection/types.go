package detection

import (
	"image"

	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/imaging"
)

// Shape is the kind of polygon a candidate was classified as.
type Shape string

const (
	Triangle Shape = config.ShapeTriangle
	Square   Shape = config.ShapeSquare
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Width is X2 - X1.
func (b Bounds) Width() int { return b.X2 - b.X1 }

// Height is Y2 - Y1.
func (b Bounds) Height() int { return b.Y2 - b.Y1 }

// Rect converts b to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

func toPoints(pts []image.Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: p.X, Y: p.Y}
	}
	return out
}

// Candidate is a polygon extracted from one color's mask and provisionally
// classified as a shape. Candidates live for a single frame.
type Candidate struct {
	Shape Shape  `json:"shape"`
	Color string `json:"color"`

	// Bounds is the bounding box of the approximated polygon.
	Bounds Bounds `json:"bounds"`

	// Polygon holds the approximated vertices in boundary order.
	Polygon []Point `json:"polygon"`

	// Area is the shoelace area of Polygon.
	Area float64 `json:"area"`

	// Contour is the traced outer boundary the polygon was fitted to.
	Contour []image.Point `json:"-"`

	// Mask is the color mask the candidate was found in. It is shared with
	// every other candidate of the same color and must not be modified.
	Mask *imaging.Mask `json:"-"`
}

// Aspect returns the bounding-box aspect ratio width/height, or 0 for an
// empty box.
func (c Candidate) Aspect() float64 {
	h := c.Bounds.Height()
	if h <= 0 {
		return 0
	}
	return float64(c.Bounds.Width()) / float64(h)
}

// ScoredCandidate is a validated candidate with its confidence score.
type ScoredCandidate struct {
	Candidate

	Score        float64 `json:"score"`
	ShapeScore   float64 `json:"shape_score"`
	DensityScore float64 `json:"density_score"`
}

// Detection is a scored candidate that cleared the confidence threshold and
// mapped to an action code.
type Detection struct {
	Code   string  `json:"code"`
	Color  string  `json:"color"`
	Shape  Shape   `json:"shape"`
	Score  float64 `json:"score"`
	Bounds Bounds  `json:"bounds"`
}
