package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// EncodedImage contains an image encoded as base64 PNG for transport to
// tuning clients.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG. When maxWidth is positive and the
// image is wider, it is first downscaled (preserving aspect ratio) with
// nearest-neighbour sampling so mask edges stay crisp.
func EncodePNG(img image.Image, maxWidth int) (*EncodedImage, error) {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop extracts a rectangular region from an image.
func Crop(img image.Image, r image.Rectangle) (image.Image, error) {
	bounds := img.Bounds()
	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: must be non-empty", r)
	}
	return imaging.Crop(img, r), nil
}
