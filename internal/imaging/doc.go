// Package imaging provides the pixel-level operations used by the marker pipeline.
//
// This package converts frames to HSV, thresholds them into binary masks, cleans
// those masks with morphology and connected-component filtering, and draws the
// observability overlays (bounding boxes and labels) onto annotated frame copies.
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # HSV Convention
//
// HSV values follow the 8-bit convention most camera tuning tools use:
//   - H: 0-179 (degrees halved, so 0=red, 60=green, 120=blue)
//   - S: 0-255
//   - V: 0-255
//
// Color profiles recorded with OpenCV-based tuning tools can therefore be used
// without rescaling.
//
// # Masks
//
// A Mask stores one byte per pixel: 255 for "on" and 0 for "off". Masks can be
// viewed as *image.Gray without copying, which is how they are handed to the
// bild morphology operators and to PNG encoders for debug output.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless; a Mask or HSVImage must not be mutated while another goroutine
// reads it.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Regions outside image bounds
//   - File I/O errors during image loading
//   - Encoding errors during image output
package imaging
