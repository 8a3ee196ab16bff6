package render

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"git.home.luguber.info/inful/texpreview/internal/logfields"
)

// FitzRenderer rasterizes page one of a PDF artifact via MuPDF at a fixed DPI.
// The artifact is validated with pdfcpu first so a truncated or corrupt file
// fails with a useful message instead of a decoder panic deep in the stack.
type FitzRenderer struct {
	dpi float64
}

// NewFitzRenderer creates a renderer targeting the given DPI (150 when <= 0).
func NewFitzRenderer(dpi float64) *FitzRenderer {
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzRenderer{dpi: dpi}
}

func (r *FitzRenderer) FirstPage(artifactPath string) (*Page, error) {
	pages, err := api.PageCountFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("render: artifact validation: %w", err)
	}
	if pages < 1 {
		return nil, fmt.Errorf("render: artifact has no pages: %s", artifactPath)
	}

	doc, err := fitz.New(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("render: open artifact: %w", err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			slog.Warn("Failed to close artifact", logfields.Path(artifactPath), logfields.Error(cerr))
		}
	}()

	img, err := doc.ImageDPI(0, r.dpi)
	if err != nil {
		return nil, fmt.Errorf("render: rasterize page 1: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}

	bounds := img.Bounds()
	return &Page{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		PNG:    buf.Bytes(),
	}, nil
}
