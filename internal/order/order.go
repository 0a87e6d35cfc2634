package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/orderdesk/internal/scanning"
)

var (
	// ErrNotFound is returned when an order or staff member does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateOrder is returned when another order already uses the same number
	ErrDuplicateOrder = errors.New("order number already exists")

	// ErrInvalidOrder is returned when an order fails validation
	ErrInvalidOrder = errors.New("invalid order")

	// ErrUnknownStrategy is returned for an extraction strategy that is not configured
	ErrUnknownStrategy = errors.New("unknown extraction strategy")
)

// Item is a line item with the installer assigned to it
type Item struct {
	scanning.LineItem
	Installer string `json:"installer"`
}

// Order is a confirmed order with its generated PDF
type Order struct {
	ID            string           `json:"id"`
	Number        string           `json:"number"`
	Date          string           `json:"date"`       // as printed on the receipt
	OrderDate     time.Time        `json:"order_date"` // parsed Date, or the creation time
	Client        scanning.Client  `json:"client"`
	Vehicle       scanning.Vehicle `json:"vehicle"`
	Team          scanning.Team    `json:"team"`
	PaymentMethod string           `json:"payment_method"`
	VendorName    string           `json:"vendor_name"`
	Notes         string           `json:"notes"`
	Items         []Item           `json:"items"`
	Total         int64            `json:"total"` // Total in cents
	Currency      string           `json:"currency"`
	SourceFile    string           `json:"source_file,omitempty"`
	PDFFile       string           `json:"pdf_file"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Input is an edited draft submitted for confirmation or preview.
// Its JSON shape matches scanning.ExtractedOrder plus an installer per item.
type Input struct {
	Client     scanning.Client    `json:"client"`
	Order      scanning.OrderInfo `json:"order"`
	Items      []Item             `json:"lineItems"`
	Vehicle    scanning.Vehicle   `json:"vehicle"`
	Team       scanning.Team      `json:"team"`
	Notes      string             `json:"notes"`
	SourceFile string             `json:"sourceFile,omitempty"`
}

// Draft is the result of extracting an uploaded PDF, to be reviewed before confirmation
type Draft struct {
	UploadID   string                   `json:"uploadId"`
	SourceFile string                   `json:"sourceFile"`
	Strategy   string                   `json:"strategy"`
	Order      *scanning.ExtractedOrder `json:"order"`
}

// Role is the job of a staff member
type Role string

const (
	RoleVendor    Role = "vendor"
	RoleInstaller Role = "installer"
)

// Staff is a vendor or installer who earns commission
type Staff struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Role              Role            `json:"role"`
	CommissionPercent decimal.Decimal `json:"commission_percent"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
