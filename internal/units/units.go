// Package units converts between pixel space (DPI-relative) and physical
// page space in millimetres, and computes aspect-preserving fits.
package units

import (
	"errors"
	"math"
)

const mmPerInch = 25.4

// ErrInvalidArgument reports a violated precondition, such as a
// non-positive DPI. Callers are expected to substitute a sane default
// (96 dpi) before reaching these functions.
var ErrInvalidArgument = errors.New("invalid argument")

// PixelsToMM converts a pixel count to millimetres at the given resolution.
func PixelsToMM(pixels int, dpi float64) (float64, error) {
	if dpi <= 0 {
		return 0, ErrInvalidArgument
	}
	return float64(pixels) * mmPerInch / dpi, nil
}

// MMToPixels is the inverse of PixelsToMM, rounded to the nearest pixel.
func MMToPixels(mm, dpi float64) (int, error) {
	if dpi <= 0 {
		return 0, ErrInvalidArgument
	}
	return int(math.Round(mm * dpi / mmPerInch)), nil
}

// ScaleToFit shrinks or grows (srcW, srcH) uniformly so it fits inside
// (maxW, maxH), preserving the aspect ratio exactly. A non-positive source
// dimension yields the degenerate (1, 1): the descriptor was malformed and
// should have been rejected upstream.
func ScaleToFit(srcW, srcH, maxW, maxH float64) (float64, float64) {
	if srcW <= 0 || srcH <= 0 {
		return 1, 1
	}
	scale := math.Min(maxW/srcW, maxH/srcH)
	return srcW * scale, srcH * scale
}
