package detection

import (
	"fmt"
	"image"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/imaging"
)

// Resolve maps scored candidates to action codes.
//
// A candidate is kept when its score is at least threshold (inclusive) and
// its (color, shape) pair has a code in the mapping. Unmapped pairs are a
// valid configuration and are only logged at debug level. Order is
// preserved and duplicates are kept: several markers of the same kind in one
// frame yield several detections.
func Resolve(scored []ScoredCandidate, mapping config.ActionMapping, threshold float64, log logs.Log) []Detection {
	detections := make([]Detection, 0, len(scored))
	for _, sc := range scored {
		if sc.Score < threshold {
			continue
		}
		code, ok := mapping.Lookup(sc.Color, string(sc.Shape))
		if !ok {
			log.Debugf("detection: no action for %s %s (score %.2f)", sc.Color, sc.Shape, sc.Score)
			continue
		}
		detections = append(detections, Detection{
			Code:   code,
			Color:  sc.Color,
			Shape:  sc.Shape,
			Score:  sc.Score,
			Bounds: sc.Bounds,
		})
	}
	return detections
}

// Codes returns the action codes of ds, in order.
func Codes(ds []Detection) []string {
	codes := make([]string, len(ds))
	for i, d := range ds {
		codes[i] = d.Code
	}
	return codes
}

// Primary reduces a frame's detections to one: the highest score wins and
// ties go to the earlier detection. ok is false when ds is empty.
func Primary(ds []Detection) (d Detection, ok bool) {
	for i, c := range ds {
		if i == 0 || c.Score > d.Score {
			d = c
		}
	}
	return d, len(ds) > 0
}

// Label formats the overlay text for a detection.
func Label(d Detection) string {
	return fmt.Sprintf("%s-%s (%.2f)", d.Color, d.Shape, d.Score)
}

// Annotate returns a copy of img with a box and label drawn for every
// detection. Detection bounds are relative to the frame's top-left corner,
// as produced by Segment. img itself is not modified.
func Annotate(img image.Image, ds []Detection) *image.NRGBA {
	canvas := imaging.NewCanvas(img)
	for _, d := range ds {
		r := d.Bounds.Rect()
		canvas.DrawBox(r, imaging.BoxColor, 2)
		canvas.DrawLabel(r.Min.X, r.Min.Y-4, Label(d), imaging.LabelColor, imaging.LabelBackColor)
	}
	return canvas.NRGBA
}
