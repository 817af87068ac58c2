// Package config loads, validates and persists the marker pipeline's
// configuration: color profiles, the (color, shape) to action code mapping,
// and the tunable thresholds.
//
// All three live in JSON files. The colors file keeps the layout used by
// existing tuning tools:
//
//	{
//	  "Red":  [[0, 6, 185], [18, 255, 255]],
//	  "Blue": [[90, 85, 196], [116, 217, 255]]
//	}
//
// Entries that cannot be used (inverted bounds, missing channels, values out
// of range) are skipped with a warning at load time, so a bad color never
// reaches the segmenter.
//
// A Watcher reports changes to these files so callers can rebuild their
// configuration snapshot between frames.
package config
