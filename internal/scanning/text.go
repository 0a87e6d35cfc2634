package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

// TextSource pulls the plain text out of a PDF, one entry per page in order.
type TextSource interface {
	Pages(pdfData []byte) ([]string, error)
}

// FitzText reads page text with MuPDF
type FitzText struct{}

// Pages implements TextSource
func (FitzText) Pages(pdfData []byte) ([]string, error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, fmt.Errorf("%w: password protected", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%w: opening PDF: %v", ErrInvalidDocument, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n < 1 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidDocument)
	}

	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("%w: reading page %d: %v", ErrInvalidDocument, i+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// NativeText reads page text with a pure Go parser, row by row.
// Words on the same baseline are joined with a single space.
type NativeText struct{}

// Pages implements TextSource
func (NativeText) Pages(pdfData []byte) (pages []string, err error) {
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed PDF: %v", ErrInvalidDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, fmt.Errorf("%w: password protected", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%w: opening PDF: %v", ErrInvalidDocument, err)
	}

	n := reader.NumPage()
	if n < 1 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidDocument)
	}

	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("%w: reading page %d: %v", ErrInvalidDocument, i, err)
		}
		var b strings.Builder
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			b.WriteString(strings.Join(words, " "))
			b.WriteString("\n")
		}
		pages = append(pages, b.String())
	}
	return pages, nil
}

// fullText reads every page and joins them with page-boundary newlines
func fullText(src TextSource, pdfData []byte) (string, error) {
	pages, err := src.Pages(pdfData)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"), nil
}
