// Package imagesafety moderates still images. Animated GIF input is reduced
// to its first frame before classification, oversized payloads are downscaled,
// and severity-tagged categories are checked against a strictness threshold.
package imagesafety
