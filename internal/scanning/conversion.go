package scanning

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

const defaultDPI = 150

// PageImager renders the first page of a PDF as PNG for vision models
type PageImager interface {
	FirstPage(pdfData []byte) ([]byte, error)
}

// FitzImager rasterizes pages with MuPDF
type FitzImager struct {
	// DPI defaults to 150 when zero
	DPI float64
}

// FirstPage implements PageImager
func (f FitzImager) FirstPage(pdfData []byte) ([]byte, error) {
	dpi := f.DPI
	if dpi <= 0 {
		dpi = defaultDPI
	}

	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// The header with the order number and client is always on page one.
	img, err := doc.ImageDPI(0, dpi)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
