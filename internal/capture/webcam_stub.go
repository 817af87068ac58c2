//go:build !gocv

package capture

import (
	"context"
	"image"
)

// Webcam is unavailable in this build.
type Webcam struct{}

// OpenWebcam always fails without the gocv build tag.
func OpenWebcam(id int) (*Webcam, error) {
	return nil, ErrNoWebcam
}

func (w *Webcam) Next(ctx context.Context) (image.Image, error) {
	return nil, ErrNoWebcam
}

func (w *Webcam) Close() error { return nil }
