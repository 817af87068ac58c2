package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Duration is a time.Duration that marshals to and from a duration string
// like "5s" or "750ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Tuning holds every runtime-adjustable pipeline parameter.
type Tuning struct {
	// Segmenter
	MinComponentArea int `json:"min_component_area"`
	KernelSize       int `json:"kernel_size"`

	// ShapeExtractor
	ApproxEpsilon  float64 `json:"approx_epsilon"`
	DegenerateArea float64 `json:"degenerate_area"`

	// Validator
	MinPolygonArea  float64 `json:"min_polygon_area"`
	MinTriangleArea float64 `json:"min_triangle_area"`
	SquareAspectMin float64 `json:"square_aspect_min"`
	SquareAspectMax float64 `json:"square_aspect_max"`

	// ConfidenceScorer and LabelResolver
	ShapeWeight         float64 `json:"shape_weight"`
	DensityWeight       float64 `json:"density_weight"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// Stabilizer
	WindowSize  int `json:"window_size"`
	StableCount int `json:"stable_count"`

	// Dispatcher
	Cooldown  Duration            `json:"cooldown"`
	Cooldowns map[string]Duration `json:"cooldowns,omitempty"`

	// Outputs
	Annotate   bool `json:"annotate"`
	DebugMasks bool `json:"debug_masks"`
}

// DefaultTuning returns the calibration the printed markers were tuned with.
func DefaultTuning() Tuning {
	return Tuning{
		MinComponentArea:    500,
		KernelSize:          2,
		ApproxEpsilon:       0.04,
		DegenerateArea:      1,
		MinPolygonArea:      1000,
		MinTriangleArea:     1500,
		SquareAspectMin:     0.8,
		SquareAspectMax:     1.2,
		ShapeWeight:         0.6,
		DensityWeight:       0.4,
		ConfidenceThreshold: 0.7,
		WindowSize:          5,
		StableCount:         3,
		Cooldown:            Duration(5 * time.Second),
		Annotate:            true,
	}
}

// Validate checks that the values are usable together.
func (t Tuning) Validate() error {
	if t.MinComponentArea < 0 {
		return fmt.Errorf("min_component_area must be non-negative, got %d", t.MinComponentArea)
	}
	if t.KernelSize < 0 {
		return fmt.Errorf("kernel_size must be non-negative, got %d", t.KernelSize)
	}
	if t.ApproxEpsilon <= 0 || t.ApproxEpsilon >= 1 {
		return fmt.Errorf("approx_epsilon must be between 0 and 1, got %f", t.ApproxEpsilon)
	}
	if t.DegenerateArea < 0 || t.MinPolygonArea < 0 || t.MinTriangleArea < 0 {
		return fmt.Errorf("area thresholds must be non-negative")
	}
	if t.SquareAspectMin <= 0 || t.SquareAspectMin > t.SquareAspectMax {
		return fmt.Errorf("square aspect band [%f, %f] is invalid", t.SquareAspectMin, t.SquareAspectMax)
	}
	if t.ShapeWeight < 0 || t.DensityWeight < 0 {
		return fmt.Errorf("score weights must be non-negative")
	}
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", t.ConfidenceThreshold)
	}
	if t.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1, got %d", t.WindowSize)
	}
	if t.StableCount < 1 || t.StableCount > t.WindowSize {
		return fmt.Errorf("stable_count must be between 1 and window_size (%d), got %d", t.WindowSize, t.StableCount)
	}
	if t.Cooldown < 0 {
		return fmt.Errorf("cooldown must be non-negative")
	}
	for code, d := range t.Cooldowns {
		if d < 0 {
			return fmt.Errorf("cooldown for %q must be non-negative", code)
		}
	}
	return nil
}

// CooldownFor returns the cooldown for an action code, falling back to the
// default when the code has no override.
func (t Tuning) CooldownFor(code string) time.Duration {
	if d, ok := t.Cooldowns[code]; ok {
		return d.Std()
	}
	return t.Cooldown.Std()
}

// Clone returns a deep copy.
func (t Tuning) Clone() Tuning {
	out := t
	if t.Cooldowns != nil {
		out.Cooldowns = make(map[string]Duration, len(t.Cooldowns))
		for k, v := range t.Cooldowns {
			out.Cooldowns[k] = v
		}
	}
	return out
}

// TuningPatch is a partial update. Nil fields leave the current value alone,
// so tuning files and interactive edits only need to name what they change.
type TuningPatch struct {
	MinComponentArea    *int                `json:"min_component_area,omitempty"`
	KernelSize          *int                `json:"kernel_size,omitempty"`
	ApproxEpsilon       *float64            `json:"approx_epsilon,omitempty"`
	DegenerateArea      *float64            `json:"degenerate_area,omitempty"`
	MinPolygonArea      *float64            `json:"min_polygon_area,omitempty"`
	MinTriangleArea     *float64            `json:"min_triangle_area,omitempty"`
	SquareAspectMin     *float64            `json:"square_aspect_min,omitempty"`
	SquareAspectMax     *float64            `json:"square_aspect_max,omitempty"`
	ShapeWeight         *float64            `json:"shape_weight,omitempty"`
	DensityWeight       *float64            `json:"density_weight,omitempty"`
	ConfidenceThreshold *float64            `json:"confidence_threshold,omitempty"`
	WindowSize          *int                `json:"window_size,omitempty"`
	StableCount         *int                `json:"stable_count,omitempty"`
	Cooldown            *Duration           `json:"cooldown,omitempty"`
	Cooldowns           map[string]Duration `json:"cooldowns,omitempty"`
	Annotate            *bool               `json:"annotate,omitempty"`
	DebugMasks          *bool               `json:"debug_masks,omitempty"`
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Apply returns t with the patch's non-nil fields applied. Cooldowns entries
// are merged into the existing overrides.
func (p TuningPatch) Apply(t Tuning) Tuning {
	out := t.Clone()
	setIf(&out.MinComponentArea, p.MinComponentArea)
	setIf(&out.KernelSize, p.KernelSize)
	setIf(&out.ApproxEpsilon, p.ApproxEpsilon)
	setIf(&out.DegenerateArea, p.DegenerateArea)
	setIf(&out.MinPolygonArea, p.MinPolygonArea)
	setIf(&out.MinTriangleArea, p.MinTriangleArea)
	setIf(&out.SquareAspectMin, p.SquareAspectMin)
	setIf(&out.SquareAspectMax, p.SquareAspectMax)
	setIf(&out.ShapeWeight, p.ShapeWeight)
	setIf(&out.DensityWeight, p.DensityWeight)
	setIf(&out.ConfidenceThreshold, p.ConfidenceThreshold)
	setIf(&out.WindowSize, p.WindowSize)
	setIf(&out.StableCount, p.StableCount)
	setIf(&out.Cooldown, p.Cooldown)
	setIf(&out.Annotate, p.Annotate)
	setIf(&out.DebugMasks, p.DebugMasks)
	if len(p.Cooldowns) > 0 {
		if out.Cooldowns == nil {
			out.Cooldowns = make(map[string]Duration, len(p.Cooldowns))
		}
		for k, v := range p.Cooldowns {
			out.Cooldowns[k] = v
		}
	}
	return out
}

// ParsePatch decodes a patch, rejecting unknown fields so typos in tuning
// files are reported instead of silently ignored.
func ParsePatch(data []byte) (TuningPatch, error) {
	var p TuningPatch
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return TuningPatch{}, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	return p, nil
}

// ParseTuning decodes a tuning document over DefaultTuning and validates the
// result.
func ParseTuning(data []byte) (Tuning, error) {
	p, err := ParsePatch(data)
	if err != nil {
		return Tuning{}, err
	}
	t := p.Apply(DefaultTuning())
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return t, nil
}

// maxTuningFileSize bounds tuning files.
const maxTuningFileSize = 1 * 1024 * 1024

// LoadTuning reads a tuning file. Fields omitted from the file keep their
// defaults, so partial files are safe.
func LoadTuning(path string) (Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Tuning{}, fmt.Errorf("tuning file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to stat tuning file: %w", err)
	}
	if fileInfo.Size() > maxTuningFileSize {
		return Tuning{}, fmt.Errorf("tuning file too large: %d bytes (max %d)", fileInfo.Size(), maxTuningFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to read tuning file: %w", err)
	}
	return ParseTuning(data)
}

// SaveTuning writes every tuning value to path atomically.
func SaveTuning(path string, t Tuning) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tuning: %w", err)
	}
	return writeFileAtomic(path, data)
}
