package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/orderdesk/internal/rendering"
	"github.com/zombor/orderdesk/internal/scanning"
)

// IDGenerator generates unique IDs for orders, uploads and staff
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Renderer produces the order PDF
type Renderer interface {
	Render(ctx context.Context, doc rendering.Document) ([]byte, error)
}

// Config holds the collaborators and settings of a Service
type Config struct {
	// Extractors by strategy name, e.g. "regex" and "llm"
	Extractors      map[string]scanning.Extractor
	DefaultStrategy string
	Renderer        Renderer
	Company         rendering.Company
	Currency        string        // ISO 4217, defaults to BRL
	ExtractTimeout  time.Duration // zero means no limit
}

// Service handles order operations
type Service struct {
	db              DB
	storage         Storage
	extractors      map[string]scanning.Extractor
	defaultStrategy string
	renderer        Renderer
	company         rendering.Company
	currency        string
	extractTimeout  time.Duration
	idGenerator     IDGenerator
	timeSource      TimeSource
}

// NewService creates a new Service with uuid IDs and the wall clock
func NewService(db DB, storage Storage, cfg Config) *Service {
	return NewServiceWithDeps(db, storage, cfg, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, cfg Config, idGen IDGenerator, timeSrc TimeSource) *Service {
	currency := strings.ToUpper(cfg.Currency)
	if currency == "" {
		currency = money.BRL
	}
	return &Service{
		db:              db,
		storage:         storage,
		extractors:      cfg.Extractors,
		defaultStrategy: cfg.DefaultStrategy,
		renderer:        cfg.Renderer,
		company:         cfg.Company,
		currency:        currency,
		extractTimeout:  cfg.ExtractTimeout,
		idGenerator:     idGen,
		timeSource:      timeSrc,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename keeps letters, digits, hyphens and underscores, joins words
// with underscores and truncates long names
func sanitizeFilename(filename, fallback string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaces.ReplaceAllString(strings.TrimSpace(base), "_")

	if runes := []rune(base); len(runes) > 50 {
		base = string(runes[:50])
	}
	if base == "" {
		base = fallback
	}
	if ext == "." {
		ext = ""
	}
	return base + ext
}

// Strategies returns the configured extraction strategy names
func (s *Service) Strategies() []string {
	names := make([]string, 0, len(s.extractors))
	for name := range s.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProcessUpload stores an uploaded PDF and extracts a draft order from it.
// An empty strategy selects the default one.
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte, strategy string) (*Draft, error) {
	if strategy == "" {
		strategy = s.defaultStrategy
	}
	extractor, ok := s.extractors[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	id := s.idGenerator.Generate()
	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename, "recibo")), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	if s.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.extractTimeout)
		defer cancel()
	}

	extracted, err := extractor.Extract(ctx, data)
	observeExtraction(strategy, extracted, err)
	if err != nil {
		slog.Error("Failed to extract order",
			"filename", filename,
			"strategy", strategy,
			"file_size", len(data),
			"error", err,
		)
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete upload", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("extracting order: %w", err)
	}

	if extracted == nil {
		extracted = &scanning.ExtractedOrder{LineItems: []scanning.LineItem{}, NeedsManualEntry: true}
	}
	if err := s.db.SaveUpload(savedPath); err != nil {
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to delete upload", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("recording upload: %w", err)
	}

	if extracted.NeedsManualEntry {
		slog.Info("No line items found, manual entry needed", "filename", filename, "strategy", strategy)
	}

	return &Draft{
		UploadID:   id,
		SourceFile: savedPath,
		Strategy:   strategy,
		Order:      extracted,
	}, nil
}

// validate checks the fields a confirmed order must have
func validate(in Input) error {
	if strings.TrimSpace(in.Order.Number) == "" {
		return fmt.Errorf("%w: order number is required", ErrInvalidOrder)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one line item is required", ErrInvalidOrder)
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d has no description", ErrInvalidOrder, i+1)
		}
	}
	return nil
}

// CreateOrder validates an edited draft, renders its PDF and saves it
func (s *Service) CreateOrder(ctx context.Context, in Input) (*Order, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	number := strings.TrimSpace(in.Order.Number)
	if _, err := s.db.FindOrderByNumber(number); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateOrder, number)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("checking order number: %w", err)
	}

	now := s.timeSource.Now()
	order, err := s.buildOrder(in, now)
	if err != nil {
		return nil, err
	}
	order.ID = s.idGenerator.Generate()
	order.CreatedAt = now
	order.UpdatedAt = now

	// Only an upload issued by ProcessUpload and not yet owned by an order may be attached.
	if order.SourceFile != "" {
		if err := s.db.ClaimUpload(order.SourceFile); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown or already used upload %q", ErrInvalidOrder, order.SourceFile)
			}
			return nil, fmt.Errorf("claiming upload: %w", err)
		}
	}

	pdf, err := s.render(ctx, order)
	if err != nil {
		s.releaseUpload(order.SourceFile)
		return nil, err
	}

	pdfPath, err := s.storage.Save(fmt.Sprintf("%s_pedido_%s.pdf", order.ID, sanitizeFilename(number, "sem_numero")), pdf)
	if err != nil {
		s.releaseUpload(order.SourceFile)
		return nil, fmt.Errorf("saving PDF: %w", err)
	}
	order.PDFFile = pdfPath

	if err := s.db.SaveOrder(order); err != nil {
		if delErr := s.storage.Delete(pdfPath); delErr != nil {
			slog.Warn("Failed to delete PDF", "filename", pdfPath, "error", delErr)
		}
		s.releaseUpload(order.SourceFile)
		return nil, fmt.Errorf("saving order to database: %w", err)
	}

	slog.Info("Order created", "id", order.ID, "number", order.Number, "items", len(order.Items))
	return order, nil
}

// releaseUpload makes a claimed upload available again after a failed create
func (s *Service) releaseUpload(name string) {
	if name == "" {
		return
	}
	if err := s.db.SaveUpload(name); err != nil {
		slog.Warn("Failed to release upload", "filename", name, "error", err)
	}
}

// RenderPreview renders an edited draft without validating or saving it
func (s *Service) RenderPreview(ctx context.Context, in Input) ([]byte, error) {
	order, err := s.buildOrder(in, s.timeSource.Now())
	if err != nil {
		return nil, err
	}
	return s.render(ctx, order)
}

func (s *Service) render(ctx context.Context, order *Order) ([]byte, error) {
	pdf, err := s.renderer.Render(ctx, s.document(order))
	observeRender(err)
	if err != nil {
		return nil, fmt.Errorf("rendering order: %w", err)
	}
	return pdf, nil
}

// buildOrder normalizes the submitted fields into an unsaved Order
func (s *Service) buildOrder(in Input, now time.Time) (*Order, error) {
	items := make([]Item, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, Item{
			LineItem:  scanning.NormalizeLineItem(item.LineItem),
			Installer: strings.TrimSpace(item.Installer),
		})
	}

	total, err := orderTotal(items, s.currency)
	if err != nil {
		return nil, err
	}

	vendor := strings.TrimSpace(in.Order.VendorName)
	if vendor == "" {
		vendor = strings.TrimSpace(in.Team.VendorName)
	}
	team := in.Team
	if team.VendorName == "" {
		team.VendorName = vendor
	}

	return &Order{
		Number:        strings.TrimSpace(in.Order.Number),
		Date:          strings.TrimSpace(in.Order.Date),
		OrderDate:     parseOrderDate(in.Order.Date, now),
		Client:        in.Client,
		Vehicle:       in.Vehicle,
		Team:          team,
		PaymentMethod: strings.TrimSpace(in.Order.PaymentMethod),
		VendorName:    vendor,
		Notes:         strings.TrimSpace(in.Notes),
		Items:         items,
		Total:         total,
		Currency:      s.currency,
		SourceFile:    strings.TrimSpace(in.SourceFile),
	}, nil
}

// orderTotal sums the line totals in minor units of the currency
func orderTotal(items []Item, currency string) (int64, error) {
	total := money.New(0, currency)
	for _, item := range items {
		line := money.New(toCents(item.LineTotal), currency)
		sum, err := total.Add(line)
		if err != nil {
			return 0, fmt.Errorf("summing order total: %w", err)
		}
		total = sum
	}
	return total.Amount(), nil
}

func toCents(v float64) int64 {
	return decimal.NewFromFloat(v).Shift(2).Round(0).IntPart()
}

func fromCents(c int64) float64 {
	return decimal.New(c, -2).InexactFloat64()
}

var dateLayouts = []string{"02/01/2006", "2/1/2006", "02/01/06", "02-01-2006", "02.01.2006", "2006-01-02"}

// parseOrderDate reads the printed date, falling back to the given time
func parseOrderDate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

// document maps an order onto the renderer's input
func (s *Service) document(o *Order) rendering.Document {
	items := make([]rendering.Item, 0, len(o.Items))
	for _, item := range o.Items {
		installer := item.Installer
		if installer == "" {
			installer = o.Team.InstallerName
		}
		items = append(items, rendering.Item{
			Description:     item.Description,
			Code:            item.Code,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			LineTotal:       item.LineTotal,
			Installer:       installer,
		})
	}

	return rendering.Document{
		Company: s.company,
		Client: rendering.Client{
			Name:    o.Client.Name,
			TaxID:   o.Client.TaxID,
			Address: o.Client.Address,
			Phone:   o.Client.Phone,
			Email:   o.Client.Email,
		},
		Order: rendering.OrderInfo{
			Number:        o.Number,
			Date:          o.Date,
			PaymentMethod: o.PaymentMethod,
			VendorName:    o.VendorName,
			Total:         fromCents(o.Total),
		},
		Items: items,
		Vehicle: rendering.Vehicle{
			Make:  o.Vehicle.Make,
			Model: o.Vehicle.Model,
			Year:  o.Vehicle.Year,
			Plate: o.Vehicle.Plate,
			Color: o.Vehicle.Color,
		},
		Team: rendering.Team{
			InstallerName: o.Team.InstallerName,
			VendorName:    o.Team.VendorName,
		},
		Notes: o.Notes,
	}
}

// GetOrder retrieves an order by ID
func (s *Service) GetOrder(id string) (*Order, error) {
	order, err := s.db.GetOrder(id)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return order, nil
}

// ListOrders returns all orders, newest order date first
func (s *Service) ListOrders() ([]*Order, error) {
	orders, err := s.db.ListOrders()
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.After(orders[j].OrderDate)
		}
		return orders[i].Number > orders[j].Number
	})
	return orders, nil
}

// DeleteOrder removes an order with its PDF and source upload
func (s *Service) DeleteOrder(id string) error {
	order, err := s.db.GetOrder(id)
	if err != nil {
		return fmt.Errorf("getting order for deletion: %w", err)
	}

	for _, name := range []string{order.PDFFile, order.SourceFile} {
		if name == "" {
			continue
		}
		if err := s.storage.Delete(name); err != nil {
			slog.Warn("Failed to delete file", "filename", name, "error", err)
		}
	}

	if err := s.db.DeleteOrder(id); err != nil {
		return fmt.Errorf("deleting order from database: %w", err)
	}
	return nil
}

// GetOrderPDF returns the stored PDF of an order
func (s *Service) GetOrderPDF(id string) ([]byte, *Order, error) {
	order, err := s.db.GetOrder(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting order: %w", err)
	}
	data, err := s.storage.Get(order.PDFFile)
	if err != nil {
		return nil, nil, fmt.Errorf("getting order PDF: %w", err)
	}
	return data, order, nil
}

// SaveStaff creates or updates a staff member
func (s *Service) SaveStaff(staff Staff) (*Staff, error) {
	staff.Name = strings.TrimSpace(staff.Name)
	if staff.Name == "" {
		return nil, fmt.Errorf("%w: staff name is required", ErrInvalidOrder)
	}
	if staff.Role != RoleVendor && staff.Role != RoleInstaller {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrInvalidOrder, RoleVendor, RoleInstaller)
	}
	if staff.CommissionPercent.IsNegative() || staff.CommissionPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: commission percent must be between 0 and 100", ErrInvalidOrder)
	}

	now := s.timeSource.Now()
	if staff.ID == "" {
		staff.ID = s.idGenerator.Generate()
		staff.CreatedAt = now
	} else if existing, err := s.db.GetStaff(staff.ID); err == nil {
		staff.CreatedAt = existing.CreatedAt
	} else if errors.Is(err, ErrNotFound) {
		staff.CreatedAt = now
	} else {
		return nil, fmt.Errorf("getting staff: %w", err)
	}
	staff.UpdatedAt = now

	if err := s.db.SaveStaff(&staff); err != nil {
		return nil, fmt.Errorf("saving staff: %w", err)
	}
	return &staff, nil
}

// ListStaff returns all staff members sorted by name
func (s *Service) ListStaff() ([]*Staff, error) {
	members, err := s.db.ListStaff()
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
	})
	return members, nil
}

// DeleteStaff removes a staff member
func (s *Service) DeleteStaff(id string) error {
	if err := s.db.DeleteStaff(id); err != nil {
		return fmt.Errorf("deleting staff: %w", err)
	}
	return nil
}
