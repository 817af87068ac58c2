package pipeline

import (
	"context"
	"errors"
	"image"
	"io"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/markerctl/internal/capture"
)

// Runner feeds frames from a source into a Pipeline. Acquisition runs on its
// own goroutine and writes into a LatestFrame; processing drains it, so a
// slow frame drops stale input instead of queueing it.
type Runner struct {
	Pipeline *Pipeline
	Log      logs.Log

	// OnResult, if set, is called on the processing goroutine after every
	// frame.
	OnResult func(*FrameResult)
}

// Run processes frames until ctx is cancelled or the source fails. A source
// that ends with io.EOF finishes the run cleanly.
func (r *Runner) Run(ctx context.Context, src capture.Source) error {
	slot := NewLatestFrame()

	acqCtx, stopAcq := context.WithCancel(ctx)
	defer stopAcq()
	waitCtx, stopWait := context.WithCancel(ctx)
	defer stopWait()

	done := make(chan error, 1)
	go func() {
		done <- acquire(acqCtx, src, slot)
		stopWait()
	}()

	for {
		frame, err := slot.Wait(waitCtx)
		if err != nil {
			break
		}
		r.process(ctx, frame)
	}

	if ctx.Err() != nil {
		stopAcq()
		<-done
		return ctx.Err()
	}

	// The source ended; the final frame may still be in the slot.
	if frame := slot.take(); frame != nil {
		r.process(ctx, frame)
	}
	err := <-done
	if errors.Is(err, io.EOF) {
		r.Log.Infof("pipeline: source finished, %d frames dropped", slot.Dropped())
		return nil
	}
	return err
}

func acquire(ctx context.Context, src capture.Source, slot *LatestFrame) error {
	for {
		frame, err := src.Next(ctx)
		if err != nil {
			return err
		}
		slot.Put(frame)
	}
}

func (r *Runner) process(ctx context.Context, frame image.Image) {
	res, err := r.Pipeline.Process(ctx, frame)
	if err != nil {
		r.Log.Warnf("pipeline: skipping frame: %v", err)
		return
	}
	if r.OnResult != nil {
		r.OnResult(res)
	}
}
