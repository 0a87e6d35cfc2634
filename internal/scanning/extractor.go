package scanning

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// RegexExtractor reads receipts with label patterns and row shapes.
// It holds no per-call state and is safe for concurrent use.
type RegexExtractor struct {
	text    TextSource
	catalog *Catalog
}

// NewRegexExtractor creates a RegexExtractor. A nil text source defaults to FitzText.
// The catalog may be nil, in which case receipts without readable rows come back
// with no items and NeedsManualEntry set.
func NewRegexExtractor(text TextSource, catalog *Catalog) *RegexExtractor {
	if text == nil {
		text = FitzText{}
	}
	return &RegexExtractor{
		text:    text,
		catalog: catalog,
	}
}

// Extract implements Extractor
func (r *RegexExtractor) Extract(ctx context.Context, pdfData []byte) (*ExtractedOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := fullText(r.text, pdfData)
	if err != nil {
		return nil, err
	}

	return r.ExtractText(text), nil
}

// ExtractText runs field and row extraction over already acquired text
func (r *RegexExtractor) ExtractText(text string) *ExtractedOrder {
	order := &ExtractedOrder{}
	extractFields(text, order)

	order.LineItems = extractItems(text)
	if len(order.LineItems) == 0 && r.catalog.Len() > 0 {
		order.LineItems = r.catalog.Match(text)
		if len(order.LineItems) > 0 {
			slog.Warn("No product rows found, using catalog matches",
				"items", len(order.LineItems),
			)
		}
	}
	if order.LineItems == nil {
		order.LineItems = []LineItem{}
	}

	finishOrder(order)
	return order
}

// finishOrder fills the order total from the items when the receipt had none
// and flags orders that still need items entered by hand.
func finishOrder(order *ExtractedOrder) {
	if order.Team.VendorName == "" {
		order.Team.VendorName = order.Order.VendorName
	}
	if order.Order.VendorName == "" {
		order.Order.VendorName = order.Team.VendorName
	}

	if order.Order.TotalValue == 0 && len(order.LineItems) > 0 {
		sum := decimal.Zero
		for _, item := range order.LineItems {
			sum = sum.Add(decimal.NewFromFloat(item.LineTotal))
		}
		order.Order.TotalValue = sum.Round(2).InexactFloat64()
	}

	order.NeedsManualEntry = len(order.LineItems) == 0
}
