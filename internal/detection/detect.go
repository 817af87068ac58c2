package detection

import (
	"image"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/markerctl/internal/config"
)

// Result is everything one detection pass produced for a frame.
type Result struct {
	// Masks holds the cleaned mask of every profile, in profile order.
	Masks []ColorMask `json:"-"`

	// Candidates are the candidates that passed validation, with scores.
	Candidates []ScoredCandidate `json:"candidates"`

	// Rejected counts candidates dropped by the validator.
	Rejected int `json:"rejected"`

	// Detections are the candidates that cleared the threshold and mapped to
	// a code.
	Detections []Detection `json:"detections"`
}

// Codes returns the detected action codes in order.
func (r *Result) Codes() []string {
	return Codes(r.Detections)
}

// Detect runs Segment, Extract, Validate, Score and Resolve on one frame.
// It holds no state: the same frame and configuration always produce the
// same result.
func Detect(img image.Image, profiles config.Profiles, mapping config.ActionMapping, t config.Tuning, log logs.Log) *Result {
	res := &Result{
		Masks:      Segment(img, profiles, t),
		Candidates: make([]ScoredCandidate, 0),
	}

	for _, cm := range res.Masks {
		for _, c := range Extract(cm, t) {
			if reason := Rejection(c, t); reason != "" {
				log.Debugf("detection: rejected %s %s at (%d,%d): %s", c.Color, c.Shape, c.Bounds.X1, c.Bounds.Y1, reason)
				res.Rejected++
				continue
			}
			res.Candidates = append(res.Candidates, Score(c, t))
		}
	}

	res.Detections = Resolve(res.Candidates, mapping, t.ConfidenceThreshold, log)
	return res
}
