package pipeline

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepSource hands out its frames one at a time, waiting for the previous
// frame to be processed before producing the next.
type stepSource struct {
	frames []image.Image
	next   int
	ack    chan struct{}
	end    error
}

func (s *stepSource) Next(ctx context.Context) (image.Image, error) {
	if s.next > 0 {
		select {
		case <-s.ack:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.next >= len(s.frames) {
		return nil, s.end
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *stepSource) Close() error { return nil }

func TestRunner_ProcessesUntilEOF(t *testing.T) {
	f := newFixture(t)
	src := &stepSource{ack: make(chan struct{}, 1), end: io.EOF}
	for i := 0; i < 4; i++ {
		src.frames = append(src.frames, squareFrame(red, 45))
	}

	var stabilized []string
	r := &Runner{
		Pipeline: f.p,
		Log:      logs.NewTestingLog(t),
		OnResult: func(res *FrameResult) {
			if res.Stabilized != "" {
				stabilized = append(stabilized, res.Stabilized)
			}
			src.ack <- struct{}{}
		},
	}

	require.NoError(t, r.Run(context.Background(), src))
	assert.Equal(t, []string{"B"}, stabilized)
	assert.Equal(t, uint64(4), f.p.Status().Frames)
	assert.Equal(t, []string{"B"}, f.act.Fired())
}

func TestRunner_SourceError(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("camera unplugged")
	src := &stepSource{ack: make(chan struct{}, 1), end: boom, frames: []image.Image{blankFrame()}}

	r := &Runner{
		Pipeline: f.p,
		Log:      logs.NewTestingLog(t),
		OnResult: func(*FrameResult) { src.ack <- struct{}{} },
	}
	assert.ErrorIs(t, r.Run(context.Background(), src), boom)
}

func TestRunner_Cancel(t *testing.T) {
	f := newFixture(t)
	// Never acknowledged, so the source blocks after the first frame.
	src := &stepSource{ack: make(chan struct{}), end: io.EOF, frames: []image.Image{blankFrame(), blankFrame()}}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		Pipeline: f.p,
		Log:      logs.NewTestingLog(t),
		OnResult: func(*FrameResult) { cancel() },
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, src) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
