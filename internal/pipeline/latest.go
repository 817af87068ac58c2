package pipeline

import (
	"context"
	"image"
	"sync"
)

// LatestFrame is a single-slot buffer. Put overwrites whatever is waiting,
// so a slow consumer always sees the newest frame and never a backlog.
type LatestFrame struct {
	mu      sync.Mutex
	frame   image.Image
	ready   chan struct{}
	dropped uint64
}

// NewLatestFrame returns an empty slot.
func NewLatestFrame() *LatestFrame {
	return &LatestFrame{ready: make(chan struct{}, 1)}
}

// Put stores frame, replacing any frame not yet taken.
func (l *LatestFrame) Put(frame image.Image) {
	l.mu.Lock()
	if l.frame != nil {
		l.dropped++
	}
	l.frame = frame
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

// Wait blocks until a frame is available and takes it.
func (l *LatestFrame) Wait(ctx context.Context) (image.Image, error) {
	for {
		if f := l.take(); f != nil {
			return f, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-l.ready:
		}
	}
}

func (l *LatestFrame) take() image.Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	f := l.frame
	l.frame = nil
	return f
}

// Dropped counts frames overwritten before they were taken.
func (l *LatestFrame) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}
