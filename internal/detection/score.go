package detection

import (
	"math"

	"github.com/ironsheep/markerctl/internal/config"
)

// ShapeRegularity scores how well a candidate matches its ideal shape:
//   - Square: 1 - |1 - aspect|, clamped at 0 (1.0 for a perfect square)
//   - Triangle: 1.0 with exactly 3 vertices, otherwise 0.5
//   - anything else: 0.3
func ShapeRegularity(c Candidate) float64 {
	switch c.Shape {
	case Square:
		return math.Max(0, 1-math.Abs(1-c.Aspect()))
	case Triangle:
		if len(c.Polygon) == 3 {
			return 1.0
		}
		return 0.5
	}
	return 0.3
}

// FillDensity is the fraction of on pixels in the candidate's mask inside its
// bounding box. The +1 in the denominator keeps empty boxes finite.
func FillDensity(c Candidate) float64 {
	if c.Mask == nil {
		return 0
	}
	on := c.Mask.CountRect(c.Bounds.Rect())
	area := c.Bounds.Width()*c.Bounds.Height() + 1
	return float64(on) / float64(area)
}

// Score blends shape regularity and fill density with the tuned weights.
func Score(c Candidate, t config.Tuning) ScoredCandidate {
	shape := ShapeRegularity(c)
	density := FillDensity(c)
	return ScoredCandidate{
		Candidate:    c,
		Score:        t.ShapeWeight*shape + t.DensityWeight*density,
		ShapeScore:   shape,
		DensityScore: density,
	}
}
