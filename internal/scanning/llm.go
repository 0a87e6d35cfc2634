package scanning

import (
	"context"
	"log/slog"
)

// CompletionRequest is one prompt sent to a language model
type CompletionRequest struct {
	Prompt string
	// Image is an optional PNG of the first page for vision models.
	Image []byte
}

// Completer defines the interface for language model backends
type Completer interface {
	// Complete sends the prompt and returns the raw text reply
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Close closes the completer and releases resources
	Close() error
}

// LLMExtractor reads receipts by asking a language model for the order JSON.
// Failures are reported once and never retried, so callers can fall back to the
// regex path on purpose.
type LLMExtractor struct {
	text      TextSource
	completer Completer
	imager    PageImager
}

// NewLLMExtractor creates an LLMExtractor. When imager is not nil the first page
// is rendered to PNG and sent along with the text.
func NewLLMExtractor(text TextSource, completer Completer, imager PageImager) *LLMExtractor {
	if text == nil {
		text = FitzText{}
	}
	return &LLMExtractor{
		text:      text,
		completer: completer,
		imager:    imager,
	}
}

// Extract implements Extractor
func (l *LLMExtractor) Extract(ctx context.Context, pdfData []byte) (*ExtractedOrder, error) {
	text, err := fullText(l.text, pdfData)
	if err != nil {
		return nil, err
	}

	var image []byte
	if l.imager != nil {
		image, err = l.imager.FirstPage(pdfData)
		if err != nil {
			slog.Warn("Failed to render page for vision model, sending text only", "error", err)
			image = nil
		}
	}

	reply, err := l.completer.Complete(ctx, CompletionRequest{
		Prompt: buildPrompt(text),
		Image:  image,
	})
	if err != nil {
		return nil, &RemoteExtractionError{Stage: "request", Err: err}
	}

	order, err := parseOrderJSON(reply)
	if err != nil {
		slog.Error("Failed to parse model reply",
			"reply_bytes", len(reply),
			"error", err,
		)
		return nil, err
	}
	return order, nil
}

// Close closes the underlying completer
func (l *LLMExtractor) Close() error {
	return l.completer.Close()
}
