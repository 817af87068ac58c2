package pipeline

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/markerctl/internal/actuator"
	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/dispatch"
	"github.com/ironsheep/markerctl/internal/timeutil"
)

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

func testProfiles() config.Profiles {
	return config.Profiles{
		{Name: "Blue", Lower: config.HSV{H: 110, S: 100, V: 100}, Upper: config.HSV{H: 130, S: 255, V: 255}},
		{Name: "Red", Lower: config.HSV{H: 0, S: 100, V: 100}, Upper: config.HSV{H: 10, S: 255, V: 255}},
	}
}

// squareFrame is a black frame with one filled square.
func squareFrame(c color.Color, side int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.Black)
		}
	}
	for y := 20; y < 20+side; y++ {
		for x := 20; x < 20+side; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func blankFrame() *image.RGBA {
	return squareFrame(color.Black, 0)
}

type fixture struct {
	p     *Pipeline
	act   *actuator.Logger
	clock *timeutil.MockClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logs.NewTestingLog(t)
	act := actuator.NewLogger(log)
	clock := timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	mapping := config.DefaultMapping()
	disp := dispatch.New(log, actuator.Actions(act, mapping.Codes()), 5*time.Second, dispatch.Options{Clock: clock})

	snap := Snapshot{Profiles: testProfiles(), Mapping: mapping, Tuning: config.DefaultTuning()}
	p, err := New(log, snap, disp, Options{
		Actions: func(codes []string) dispatch.Registry { return actuator.Actions(act, codes) },
	})
	require.NoError(t, err)
	return &fixture{p: p, act: act, clock: clock}
}
