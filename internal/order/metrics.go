package order

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zombor/orderdesk/internal/scanning"
)

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_extractions_total",
		Help: "Uploaded PDFs processed, by strategy and result.",
	}, []string{"strategy", "result"})

	extractedLineItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderdesk_extracted_line_items",
		Help:    "Line items found per successful extraction.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_renders_total",
		Help: "Order PDFs rendered, by result.",
	}, []string{"result"})
)

// extractionResult classifies an extraction for the metrics label
func extractionResult(order *scanning.ExtractedOrder, err error) string {
	switch {
	case errors.Is(err, scanning.ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, scanning.ErrRemoteExtraction):
		return "remote_failed"
	case err != nil:
		return "error"
	case order == nil || order.NeedsManualEntry:
		return "manual"
	default:
		return "ok"
	}
}

func observeExtraction(strategy string, order *scanning.ExtractedOrder, err error) {
	extractionsTotal.WithLabelValues(strategy, extractionResult(order, err)).Inc()
	if err == nil && order != nil {
		extractedLineItems.Observe(float64(len(order.LineItems)))
	}
}

func observeRender(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	rendersTotal.WithLabelValues(result).Inc()
}
