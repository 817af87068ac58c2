package detection

import (
	"image/color"
	"reflect"
	"testing"

	"github.com/ironsheep/markerctl/internal/config"
)

func scored(colorName string, shape Shape, score float64) ScoredCandidate {
	return ScoredCandidate{
		Candidate: Candidate{Color: colorName, Shape: shape, Bounds: Bounds{X1: 10, Y1: 10, X2: 40, Y2: 40}},
		Score:     score,
	}
}

func TestResolve_ThresholdBoundary(t *testing.T) {
	mapping := config.ActionMapping{{Color: "Red", Shape: "Square"}: "B"}

	tests := []struct {
		name  string
		score float64
		want  []string
	}{
		{"exactly at threshold", 0.7, []string{"B"}},
		{"above threshold", 0.95, []string{"B"}},
		{"0.01 below threshold", 0.69, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Resolve([]ScoredCandidate{scored("Red", Square, tt.score)}, mapping, 0.7, testLog(t))
			if got := Codes(ds); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_UnmappedAndDuplicates(t *testing.T) {
	mapping := config.DefaultMapping()
	in := []ScoredCandidate{
		scored("Red", Square, 0.9),
		scored("Green", Square, 0.99), // unmapped
		scored("Blue", Triangle, 0.8),
		scored("Red", Square, 0.75),
		scored("Red", Triangle, 0.2), // below threshold
	}

	ds := Resolve(in, mapping, 0.7, testLog(t))
	want := []string{"B", "C", "B"}
	if got := Codes(ds); !reflect.DeepEqual(got, want) {
		t.Fatalf("codes: got %v, want %v", got, want)
	}
	if ds[1].Color != "Blue" || ds[1].Shape != Triangle || ds[1].Score != 0.8 {
		t.Errorf("detection fields not carried over: %+v", ds[1])
	}
}

func TestPrimary(t *testing.T) {
	tests := []struct {
		name   string
		in     []Detection
		want   string
		wantOK bool
	}{
		{"empty", nil, "", false},
		{"single", []Detection{{Code: "A", Score: 0.8}}, "A", true},
		{"highest wins", []Detection{{Code: "A", Score: 0.8}, {Code: "C", Score: 0.9}}, "C", true},
		{"tie goes to first", []Detection{{Code: "D", Score: 0.9}, {Code: "B", Score: 0.9}}, "D", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Primary(tt.in)
			if ok != tt.wantOK || d.Code != tt.want {
				t.Errorf("got (%q, %v), want (%q, %v)", d.Code, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	img := createTestImage(100, 100, color.Black)
	ds := []Detection{{Code: "B", Color: "Red", Shape: Square, Score: 0.93, Bounds: Bounds{X1: 20, Y1: 30, X2: 60, Y2: 70}}}

	out := Annotate(img, ds)

	if got := out.NRGBAAt(40, 69); got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("box bottom edge: got %v, want green", got)
	}
	if got := out.NRGBAAt(40, 50); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("box interior changed: got %v", got)
	}
	if r, g, b, _ := img.At(40, 69).RGBA(); r != 0 || g != 0 || b != 0 {
		t.Error("Annotate modified its input")
	}
	if Label(ds[0]) != "Red-Square (0.93)" {
		t.Errorf("Label: got %q", Label(ds[0]))
	}
}
