package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/dispatch"
)

func TestProcess_RedSquareDispatchesB(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	frame := squareFrame(red, 45)

	var results []*FrameResult
	for i := 0; i < 5; i++ {
		res, err := f.p.Process(ctx, frame)
		require.NoError(t, err)
		results = append(results, res)
	}

	for i, res := range results {
		assert.Equal(t, []string{"B"}, res.Codes, "frame %d", i)
		assert.Equal(t, "B", res.Label)
		assert.NotNil(t, res.Annotated)
	}
	assert.Empty(t, results[0].Stabilized)
	assert.Empty(t, results[1].Stabilized)
	assert.Equal(t, "B", results[2].Stabilized)
	require.NotNil(t, results[2].Dispatch)
	assert.Equal(t, dispatch.Dispatched, results[2].Dispatch.Outcome)
	assert.Nil(t, results[3].Dispatch)
	assert.Nil(t, results[4].Dispatch)

	assert.Equal(t, []string{"B"}, f.act.Fired())
	assert.Equal(t, uint64(5), results[4].Seq)
}

func TestProcess_Deterministic(t *testing.T) {
	frames := []image.Image{
		squareFrame(red, 45), squareFrame(blue, 50), blankFrame(),
		squareFrame(red, 45), squareFrame(red, 45), squareFrame(red, 45),
	}

	run := func() []string {
		f := newFixture(t)
		var out []string
		for _, fr := range frames {
			res, err := f.p.Process(context.Background(), fr)
			require.NoError(t, err)
			out = append(out, res.Label+"/"+res.Stabilized)
		}
		return out
	}

	first := run()
	assert.Equal(t, first, run())
	assert.Equal(t, []string{"B/", "D/", "/", "B/", "B/B", "B/"}, first)
}

func TestDetect_NoStateChange(t *testing.T) {
	f := newFixture(t)
	frame := squareFrame(red, 45)

	a, err := f.p.Detect(frame)
	require.NoError(t, err)
	b, err := f.p.Detect(frame)
	require.NoError(t, err)
	assert.Equal(t, a.Detections, b.Detections)

	st := f.p.Status()
	assert.Zero(t, st.Frames)
	assert.Empty(t, st.History)
}

func TestProcess_NoFrame(t *testing.T) {
	f := newFixture(t)
	_, err := f.p.Process(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFrame)
	_, err = f.p.Process(context.Background(), image.NewRGBA(image.Rectangle{}))
	assert.ErrorIs(t, err, ErrNoFrame)
	_, err = f.p.Detect(nil)
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestSetTuning_AppliesAtNextFrame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tun := config.DefaultTuning()
	tun.ConfidenceThreshold = 1.0
	tun.WindowSize = 3
	tun.StableCount = 2
	tun.Annotate = false
	tun.DebugMasks = true
	require.NoError(t, f.p.SetTuning(tun))

	res, err := f.p.Process(ctx, squareFrame(red, 45))
	require.NoError(t, err)
	assert.Empty(t, res.Codes)
	assert.Nil(t, res.Annotated)
	assert.Len(t, res.Masks, 2)

	st := f.p.Status()
	assert.Equal(t, 3, st.WindowSize)
	assert.Equal(t, 2, st.StableCount)
}

func TestSetTuning_InvalidKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	bad := config.DefaultTuning()
	bad.StableCount = 9

	assert.Error(t, f.p.SetTuning(bad))
	assert.Equal(t, 3, f.p.Snapshot().Tuning.StableCount)
}

func TestSetProfiles_HotSwap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.p.SetProfiles(config.Profiles{testProfiles()[0]}))
	res, err := f.p.Process(ctx, squareFrame(red, 45))
	require.NoError(t, err)
	assert.Empty(t, res.Codes, "red profile removed")

	bad := config.Profiles{{Name: "Bad", Lower: config.HSV{H: 200}, Upper: config.HSV{H: 10}}}
	assert.Error(t, f.p.SetProfiles(bad))
	assert.Len(t, f.p.Snapshot().Profiles, 1)
}

func TestSetMapping_RebuildsRegistry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := config.ActionMapping{{Color: "Red", Shape: config.ShapeSquare}: "X"}
	require.NoError(t, f.p.SetMapping(m))

	var last *FrameResult
	for i := 0; i < 3; i++ {
		res, err := f.p.Process(ctx, squareFrame(red, 45))
		require.NoError(t, err)
		last = res
	}
	require.NotNil(t, last.Dispatch)
	assert.Equal(t, dispatch.Dispatched, last.Dispatch.Outcome)
	assert.Equal(t, []string{"X"}, f.act.Fired())
}

func TestSetters_Concurrent(t *testing.T) {
	f := newFixture(t)

	// Enough profiles that validation inside SetTuning takes a while.
	many := make(config.Profiles, 0, 200000)
	for i := 0; i < cap(many); i++ {
		many = append(many, config.ColorProfile{
			Name:  fmt.Sprintf("P%06d", i),
			Lower: config.HSV{H: 0, S: 100, V: 100},
			Upper: config.HSV{H: 10, S: 255, V: 255},
		})
	}
	require.NoError(t, f.p.SetProfiles(many))

	for trial := 0; trial < 5; trial++ {
		code := fmt.Sprintf("X%d", trial)
		threshold := 0.5 + float64(trial)/100

		tun := config.DefaultTuning()
		tun.ConfidenceThreshold = threshold
		m := config.ActionMapping{{Color: "Red", Shape: config.ShapeSquare}: code}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.p.SetTuning(tun))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.p.SetMapping(m))
		}()
		wg.Wait()

		snap := f.p.Snapshot()
		got, ok := snap.Mapping.Lookup("Red", config.ShapeSquare)
		assert.True(t, ok)
		assert.Equal(t, code, got, "trial %d: mapping update lost", trial)
		assert.Equal(t, threshold, snap.Tuning.ConfidenceThreshold, "trial %d: tuning update lost", trial)
		assert.Len(t, snap.Profiles, len(many))
	}

	// The dispatcher registry follows the stored mapping.
	assert.Equal(t, dispatch.Dispatched, f.p.Trigger(context.Background(), "X4").Outcome)
	assert.Equal(t, dispatch.Unknown, f.p.Trigger(context.Background(), "B").Outcome)
}

func TestCooldownAcrossTriggers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.clock.Now()

	assert.Equal(t, dispatch.Dispatched, f.p.Trigger(ctx, "A").Outcome)
	f.clock.Advance(2 * time.Second)
	assert.Equal(t, dispatch.Suppressed, f.p.Trigger(ctx, "A").Outcome)

	st := f.p.Status()
	assert.Equal(t, "3s", st.Cooldowns["A"])
	assert.Equal(t, start, st.LastDispatch["A"])

	f.clock.Advance(3 * time.Second)
	assert.Equal(t, dispatch.Dispatched, f.p.Trigger(ctx, "A").Outcome)
	assert.Equal(t, []string{"A", "A"}, f.act.Fired())
}

func TestPerCodeCooldownFromTuning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tun := config.DefaultTuning()
	tun.Cooldowns = map[string]config.Duration{"C": config.Duration(time.Minute)}
	require.NoError(t, f.p.SetTuning(tun))

	f.p.Trigger(ctx, "C")
	f.clock.Advance(10 * time.Second)
	assert.Equal(t, dispatch.Suppressed, f.p.Trigger(ctx, "C").Outcome)
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.p.Process(ctx, squareFrame(red, 45))
		require.NoError(t, err)
	}
	assert.Equal(t, "B", f.p.Status().LastEmitted)

	f.p.Reset()
	st := f.p.Status()
	assert.Empty(t, st.LastEmitted)
	assert.Empty(t, st.History)
	assert.Empty(t, st.Cooldowns)
	assert.Empty(t, st.LastDispatch)

	var res *FrameResult
	for i := 0; i < 3; i++ {
		var err error
		res, err = f.p.Process(ctx, squareFrame(red, 45))
		require.NoError(t, err)
	}
	assert.Equal(t, "B", res.Stabilized)
	assert.Equal(t, dispatch.Dispatched, res.Dispatch.Outcome)
}
