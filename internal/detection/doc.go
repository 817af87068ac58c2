// Package detection finds colored triangle and square markers in a frame and
// resolves them to action codes.
//
// A frame passes through five stages, each a plain function so that tuning
// tools can run them one at a time:
//
//  1. Segment: HSV threshold per color profile, morphological close, and
//     removal of components below the minimum area
//  2. Extract: outer contour tracing and polygon approximation; 3 vertices
//     make a Triangle, 4 a Square, anything else is dropped
//  3. Validate: minimum polygon area, square aspect band, stricter triangle
//     area floor
//  4. Score: weighted blend of shape regularity and mask fill density
//  5. Resolve: confidence threshold and (color, shape) lookup in the
//     action mapping
//
// Detect chains all five. Nothing in this package keeps state between
// frames; debouncing and cooldowns live in the stabilize and dispatch
// packages.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at the frame's top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// # Confidence Scores
//
// Scores are nominally in [0, 1]:
//
//	score = ShapeWeight*shape + DensityWeight*density
//
// where shape is 1 - |1 - aspect| for squares and 1.0 for three-vertex
// triangles, and density is the fraction of mask pixels that are on inside
// the bounding box. Both weights and the acceptance threshold come from
// config.Tuning.
package detection
