//go:build gocv

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Webcam reads frames from a video capture device.
type Webcam struct {
	cap *gocv.VideoCapture
	mat gocv.Mat
}

// OpenWebcam opens capture device id.
func OpenWebcam(id int) (*Webcam, error) {
	c, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("opening webcam %d: %w", id, err)
	}
	return &Webcam{cap: c, mat: gocv.NewMat()}, nil
}

// Next blocks until the device delivers a frame.
func (w *Webcam) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := w.cap.Read(&w.mat); !ok {
		return nil, errors.New("webcam read failed")
	}
	if w.mat.Empty() {
		return nil, errors.New("webcam returned an empty frame")
	}
	return w.mat.ToImage()
}

func (w *Webcam) Close() error {
	w.mat.Close()
	return w.cap.Close()
}
