package layout

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Render lays out the batch and serializes it to a single PDF byte buffer.
// The primary backend places each image at its planned offset and size on a
// page of the planned dimensions. If it fails, one fallback attempt renders
// a conservative full-bleed document instead; only when both fail does the
// call surface ErrRenderFailure. No partial output is ever returned.
func Render(images []ImageDescriptor, cfg Config) ([]byte, error) {
	specs, err := PlanPages(images, cfg)
	if err != nil {
		return nil, err
	}

	out, primaryErr := renderPlanned(images, specs)
	if primaryErr == nil {
		return out, nil
	}

	out, fallbackErr := renderFullBleed(images)
	if fallbackErr != nil {
		return nil, fmt.Errorf("%w: primary: %v; fallback: %v",
			ErrRenderFailure, primaryErr, fallbackErr)
	}
	return out, nil
}

// renderPlanned emits one page per spec with fpdf, in input order.
func renderPlanned(images []ImageDescriptor, specs []PageSpec) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "mm",
		Size:    fpdf.SizeType{Wd: specs[0].WidthMM, Ht: specs[0].HeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, spec := range specs {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: spec.WidthMM, Ht: spec.HeightMM})

		rc, err := images[i].Paint.Open()
		if err != nil {
			return nil, fmt.Errorf("open image %d: %w", i, err)
		}
		name := fmt.Sprintf("page-%d", i)
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "JPEG"}, rc)
		rc.Close()

		pdf.ImageOptions(name,
			spec.DrawOffsetXMM, spec.DrawOffsetYMM,
			spec.DrawWidthMM, spec.DrawHeightMM,
			false, fpdf.ImageOptions{ImageType: "JPEG"}, 0, "")
	}

	if pdf.Err() {
		return nil, fmt.Errorf("compose pages: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return buf.Bytes(), nil
}

// renderFullBleed converts each image to a single-page PDF sized by pdfcpu
// and merges the segments into one document. Margins and the negotiated
// page size are ignored; this path only has to produce a valid document.
func renderFullBleed(images []ImageDescriptor) ([]byte, error) {
	conf := model.NewDefaultConfiguration()

	segments := make([]io.ReadSeeker, 0, len(images))
	for i, im := range images {
		rc, err := im.Paint.Open()
		if err != nil {
			return nil, fmt.Errorf("open image %d: %w", i, err)
		}
		var seg bytes.Buffer
		err = pdfapi.ImportImages(nil, &seg, []io.Reader{rc}, nil, conf)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("import image %d: %w", i, err)
		}
		segments = append(segments, bytes.NewReader(seg.Bytes()))
	}

	if len(segments) == 1 {
		data, err := io.ReadAll(segments[0])
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	var out bytes.Buffer
	if err := pdfapi.MergeRaw(segments, &out, false, conf); err != nil {
		return nil, fmt.Errorf("merge pages: %w", err)
	}
	return out.Bytes(), nil
}
