package timeutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClock_AdvanceAndSince(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	assert.Equal(t, start, c.Now())
	c.Advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, c.Since(start))

	c.Set(start)
	assert.Equal(t, time.Duration(0), c.Since(start))
}

func TestMockClock_After(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	got := <-c.After(time.Second)
	assert.Equal(t, start.Add(time.Second), got)
	assert.Equal(t, []time.Duration{time.Second}, c.Sleeps())
}

func TestSleep(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	require.NoError(t, Sleep(context.Background(), c, 7*time.Second))
	assert.Equal(t, []time.Duration{7 * time.Second}, c.Sleeps())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, RealClock{}, time.Hour), context.Canceled)
}

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	before := c.Now()
	<-c.After(time.Millisecond)
	assert.GreaterOrEqual(t, c.Since(before), time.Millisecond)
}
