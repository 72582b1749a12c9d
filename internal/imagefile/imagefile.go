// Package imagefile turns uploaded JPEG/PNG bytes into normalized temporary
// files plus the metadata the layout planner needs. Every upload becomes an
// orientation-corrected JPEG on disk whose lifetime is bound to a TempImage;
// Close removes it regardless of how the request ends.
package imagefile

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"img2pdf/backend/internal/layout"
)

const jpegQuality = 95

// TempImage is a normalized image persisted to a temporary file. It
// implements layout.PaintHandle; the handle stays valid until Close.
type TempImage struct {
	path string
	desc layout.ImageDescriptor
}

// Save reads one upload, corrects its EXIF orientation, re-encodes it as
// JPEG and writes it to a uniquely named file under dir. The caller owns
// the returned TempImage and must Close it on every exit path.
func Save(r io.Reader, dir string) (*TempImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	// Resolution and orientation live in the original bytes; both are gone
	// after re-encoding.
	dpi := DetectDPI(data)
	orientation := jpegOrientation(data)

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	img := transpose(src, orientation)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create temp image: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("encode temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close temp image: %w", err)
	}

	if dpi <= 0 {
		dpi = layout.DefaultDPI
	}
	bounds := img.Bounds()
	t := &TempImage{
		path: path,
		desc: layout.ImageDescriptor{
			PixelWidth:  bounds.Dx(),
			PixelHeight: bounds.Dy(),
			SourceDPI:   dpi,
		},
	}
	t.desc.Paint = t
	return t, nil
}

// Descriptor returns the planner-facing metadata for this image.
func (t *TempImage) Descriptor() layout.ImageDescriptor {
	return t.desc
}

// Open hands out the normalized JPEG content.
func (t *TempImage) Open() (io.ReadCloser, error) {
	return os.Open(t.path)
}

// Close removes the temporary file. Safe to call more than once.
func (t *TempImage) Close() error {
	err := os.Remove(t.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// transpose applies the transform implied by an EXIF orientation value
// (1–8). Anything outside that range is left untouched.
func transpose(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
