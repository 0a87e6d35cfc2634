package scanning

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidDocument is returned when the input does not parse as a PDF,
// has no pages, or is password protected.
var ErrInvalidDocument = errors.New("invalid document")

// ErrRemoteExtraction matches any *RemoteExtractionError via errors.Is.
var ErrRemoteExtraction = errors.New("remote extraction failed")

// RemoteExtractionError reports a failure of the language model path.
// Stage is one of "request", "response" or "schema".
type RemoteExtractionError struct {
	Stage string
	Err   error
}

func (e *RemoteExtractionError) Error() string {
	return fmt.Sprintf("remote extraction failed (%s): %v", e.Stage, e.Err)
}

func (e *RemoteExtractionError) Unwrap() error {
	return e.Err
}

func (e *RemoteExtractionError) Is(target error) bool {
	return target == ErrRemoteExtraction
}

// Client holds the customer fields found on a receipt
type Client struct {
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// OrderInfo holds the order metadata found on a receipt
type OrderInfo struct {
	Number        string  `json:"number"`
	Date          string  `json:"date"`
	PaymentMethod string  `json:"paymentMethod"`
	VendorName    string  `json:"vendorName"`
	TotalValue    float64 `json:"totalValue"`
}

// LineItem is one product or service row
type LineItem struct {
	Description     string  `json:"description"`
	Code            string  `json:"code"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	LineTotal       float64 `json:"lineTotal"`
	// Inferred is set on items added by the catalog fallback rather than read from a row.
	Inferred bool `json:"inferred,omitempty"`
}

// Vehicle holds the vehicle fields found on a receipt
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
	Plate string `json:"plate"`
	Color string `json:"color"`
}

// Team holds the people assigned to the order
type Team struct {
	InstallerName string `json:"installerName"`
	VendorName    string `json:"vendorName"`
}

// ExtractedOrder is the structured result of reading one receipt
type ExtractedOrder struct {
	Client    Client     `json:"client"`
	Order     OrderInfo  `json:"order"`
	LineItems []LineItem `json:"lineItems"`
	Vehicle   Vehicle    `json:"vehicle"`
	Team      Team       `json:"team"`
	Notes     string     `json:"notes"`
	// NeedsManualEntry is true when no line items could be read.
	NeedsManualEntry bool `json:"needsManualEntry"`
}

// Extractor defines the interface for turning receipt PDFs into orders
type Extractor interface {
	// Extract reads a PDF and returns the fields it could find.
	// Missing fields are empty; only unreadable documents and remote failures are errors.
	Extract(ctx context.Context, pdfData []byte) (*ExtractedOrder, error)
}
