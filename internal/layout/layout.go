// Package layout plans and renders one PDF page per input image.
//
// Planning is pure geometry over image descriptors; rendering binds the
// plan to a PDF backend and serializes the whole document in one pass.
package layout

import (
	"errors"
	"fmt"
	"io"
	"math"

	"img2pdf/backend/internal/units"
)

var (
	// ErrNoImages reports an empty input batch.
	ErrNoImages = errors.New("no images to lay out")
	// ErrInvalidImage reports a descriptor with non-positive pixel dimensions.
	ErrInvalidImage = errors.New("invalid image descriptor")
	// ErrRenderFailure reports that page emission or serialization failed,
	// including the fallback attempt.
	ErrRenderFailure = errors.New("render failure")
)

// DefaultDPI is assumed when an image carries no usable resolution metadata.
const DefaultDPI = 96.0

// A4 paper in millimetres, portrait.
const (
	a4WidthMM  = 210.0
	a4HeightMM = 297.0
)

// PaintHandle is an opaque reference to already-rasterized, normalized
// image content (JPEG). It stays valid for the duration of one Render call.
type PaintHandle interface {
	Open() (io.ReadCloser, error)
}

// ImageDescriptor describes one decoded, orientation-corrected input image.
type ImageDescriptor struct {
	PixelWidth  int
	PixelHeight int
	SourceDPI   float64
	Paint       PaintHandle
}

// Orientation selects the page aspect. Unrecognized values collapse to
// portrait.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// ParseOrientation maps a form value onto an Orientation.
func ParseOrientation(s string) Orientation {
	if s == string(Landscape) {
		return Landscape
	}
	return Portrait
}

// MarginPreset names a fixed physical margin. Unrecognized values collapse
// to no margin.
type MarginPreset string

const (
	MarginNone  MarginPreset = "none"
	MarginSmall MarginPreset = "small"
	MarginBig   MarginPreset = "big"
)

var marginMM = map[MarginPreset]float64{
	MarginNone:  0,
	MarginSmall: 10,
	MarginBig:   20,
}

// ParseMarginPreset maps a form value onto a MarginPreset.
func ParseMarginPreset(s string) MarginPreset {
	if _, ok := marginMM[MarginPreset(s)]; ok {
		return MarginPreset(s)
	}
	return MarginNone
}

// MM returns the preset's margin in millimetres.
func (m MarginPreset) MM() float64 {
	return marginMM[m]
}

// Config holds the parameters of one conversion request.
type Config struct {
	Orientation  Orientation
	FitToImage   bool
	MarginPreset MarginPreset
}

// PageSpec is the computed geometry of one page: its physical size and the
// placement of the image drawn on it, all in millimetres.
type PageSpec struct {
	WidthMM       float64
	HeightMM      float64
	DrawOffsetXMM float64
	DrawOffsetYMM float64
	DrawWidthMM   float64
	DrawHeightMM  float64
}

// orientSwap normalizes a (width, height) pair so its aspect matches the
// requested orientation. This is the single normalization point; every
// sizing branch goes through it.
func orientSwap(o Orientation, w, h float64) (float64, float64) {
	if o == Landscape && h > w {
		return h, w
	}
	if o == Portrait && w > h {
		return h, w
	}
	return w, h
}

// physicalMM returns the image's physical size in millimetres at its
// source resolution.
func physicalMM(im ImageDescriptor) (float64, float64, error) {
	w, err := units.PixelsToMM(im.PixelWidth, im.SourceDPI)
	if err != nil {
		return 0, 0, err
	}
	h, err := units.PixelsToMM(im.PixelHeight, im.SourceDPI)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// PlanPages computes per-page geometry for the whole batch without touching
// any paint handle. Pages come out in input order, one per image.
//
// When FitToImage is set and the batch has more than one image, a single
// shared page size is negotiated: the element-wise maximum of all image
// sizes, so every page can contain the largest width and largest height in
// the batch. Smaller images get extra whitespace; the document stays
// visually uniform.
func PlanPages(images []ImageDescriptor, cfg Config) ([]PageSpec, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	for i, im := range images {
		if im.PixelWidth <= 0 || im.PixelHeight <= 0 {
			return nil, fmt.Errorf("%w: image %d has dimensions %dx%d",
				ErrInvalidImage, i, im.PixelWidth, im.PixelHeight)
		}
	}

	margin := cfg.MarginPreset.MM()

	var sharedW, sharedH float64
	shared := cfg.FitToImage && len(images) > 1
	if shared {
		for _, im := range images {
			w, h, err := physicalMM(im)
			if err != nil {
				return nil, err
			}
			sharedW = math.Max(sharedW, w)
			sharedH = math.Max(sharedH, h)
		}
		sharedW, sharedH = orientSwap(cfg.Orientation, sharedW, sharedH)
	}

	specs := make([]PageSpec, 0, len(images))
	for _, im := range images {
		imgW, imgH, err := physicalMM(im)
		if err != nil {
			return nil, err
		}

		var pageW, pageH float64
		switch {
		case shared:
			pageW, pageH = sharedW, sharedH
		case cfg.FitToImage:
			pageW, pageH = orientSwap(cfg.Orientation, imgW, imgH)
		default:
			pageW, pageH = orientSwap(cfg.Orientation, a4WidthMM, a4HeightMM)
		}

		// Oversized margins degrade to a 1mm drawable strip instead of
		// failing the request.
		drawableW := math.Max(1, pageW-2*margin)
		drawableH := math.Max(1, pageH-2*margin)

		drawW, drawH := units.ScaleToFit(imgW, imgH, drawableW, drawableH)

		specs = append(specs, PageSpec{
			WidthMM:       pageW,
			HeightMM:      pageH,
			DrawOffsetXMM: (pageW - drawW) / 2,
			DrawOffsetYMM: (pageH - drawH) / 2,
			DrawWidthMM:   drawW,
			DrawHeightMM:  drawH,
		})
	}
	return specs, nil
}
