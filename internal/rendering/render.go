package rendering

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth    = 595.0
	pageHeight   = 842.0
	margin       = 40.0
	contentWidth = pageWidth - 2*margin

	lineHeight = 13.0
	rowHeight  = 16.0
	logoHeight = 50.0
	logoMaxW   = 140.0
)

// fixedDate is stamped as creation and modification date so equal input gives equal bytes.
var fixedDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// column is one fixed-width column of the items table
type column struct {
	title string
	width float64
	align string
	value func(symbol string, item Item) string
}

var columns = []column{
	{"Produto", 165, "L", func(_ string, it Item) string { return it.Description }},
	{"Código", 60, "L", func(_ string, it Item) string { return it.Code }},
	{"Qtd", 35, "C", func(_ string, it Item) string { return strconv.Itoa(it.Quantity) }},
	{"Unitário", 70, "R", func(s string, it Item) string { return formatMoney(s, it.UnitPrice) }},
	{"Desc.", 45, "R", func(_ string, it Item) string { return formatPercent(it.DiscountPercent) }},
	{"Total", 70, "R", func(s string, it Item) string { return formatMoney(s, it.LineTotal) }},
	{"Instalador", 70, "L", func(_ string, it Item) string { return it.Installer }},
}

// Renderer produces the shop's single order template. It keeps no state
// between calls and is safe for concurrent use.
type Renderer struct {
	logo   AssetLoader
	symbol string
}

// Option configures a Renderer
type Option func(*Renderer)

// WithLogo sets the header logo source
func WithLogo(loader AssetLoader) Option {
	return func(r *Renderer) {
		r.logo = loader
	}
}

// WithCurrency sets the ISO 4217 currency used for amounts
func WithCurrency(code string) Option {
	return func(r *Renderer) {
		r.symbol = currencySymbol(code)
	}
}

// New creates a Renderer; amounts default to BRL
func New(opts ...Option) *Renderer {
	r := &Renderer{symbol: currencySymbol("BRL")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render lays out doc and returns the PDF bytes. A logo that cannot be loaded
// is logged as ErrAssetUnavailable and left out.
func (r *Renderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	logo := r.loadLogo(ctx)

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetCreationDate(fixedDate)
	pdf.SetModificationDate(fixedDate)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Pedido "+doc.Order.Number, true)
	pdf.SetCreator(doc.Company.Name, true)

	l := &layout{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		symbol: r.symbol,
		y:      margin,
	}
	pdf.AddPage()

	l.header(doc.Company, doc.Order.Number, logo)
	l.clientBlock(doc.Client)
	l.orderBlock(doc.Order)
	l.itemsTable(doc.Items)
	l.totals(doc.Order.Total, doc.Items)
	l.footer(doc.Vehicle, doc.Team)
	l.notes(doc.Notes)

	if pdf.Err() {
		return nil, fmt.Errorf("rendering PDF: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// loadLogo fetches and normalizes the logo, returning nil when it is unusable
func (r *Renderer) loadLogo(ctx context.Context) []byte {
	if r.logo == nil {
		return nil
	}
	data, err := r.logo.Load(ctx)
	if err != nil {
		slog.Warn("Rendering without logo", "error", fmt.Errorf("%w: %v", ErrAssetUnavailable, err))
		return nil
	}
	png, _, err := normalizeImage(data)
	if err != nil {
		slog.Warn("Rendering without logo", "error", fmt.Errorf("%w: %v", ErrAssetUnavailable, err))
		return nil
	}
	return png
}

// layout is the state of one Render call: the document and its vertical cursor.
type layout struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	symbol string
	y      float64
}

// ensure starts a new page when h more points would not fit; it reports whether it did
func (l *layout) ensure(h float64) bool {
	if l.y+h <= pageHeight-margin {
		return false
	}
	l.pdf.AddPage()
	l.y = margin
	return true
}

// fit translates s to the page encoding and truncates it to width w
func (l *layout) fit(s string, w float64) string {
	s = l.tr(s)
	limit := w - 4
	if l.pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && l.pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func (l *layout) text(x, w float64, s, align string) {
	l.pdf.SetXY(x, l.y)
	l.pdf.CellFormat(w, lineHeight, l.fit(s, w), "", 0, align, false, 0, "")
}

func (l *layout) header(c Company, number string, logo []byte) {
	x := margin
	if logo != nil {
		if w, ok := l.drawLogo(logo); ok {
			x = margin + w + 12
		}
	}
	width := pageWidth - margin - x - 150

	l.pdf.SetFont("Helvetica", "B", 14)
	l.text(x, width, c.Name, "L")
	l.pdf.SetFont("Helvetica", "", 9)
	lines := []string{}
	if c.TaxID != "" {
		lines = append(lines, "CNPJ: "+c.TaxID)
	}
	if c.Address != "" {
		lines = append(lines, c.Address)
	}
	contact := c.Phone
	if c.Email != "" {
		if contact != "" {
			contact += "  |  "
		}
		contact += c.Email
	}
	if contact != "" {
		lines = append(lines, contact)
	}

	top := l.y
	l.y += 16
	for _, line := range lines {
		l.text(x, width, line, "L")
		l.y += lineHeight - 2
	}

	// Document title on the right, level with the company name
	bottom := l.y
	l.y = top
	l.pdf.SetFont("Helvetica", "B", 12)
	l.text(pageWidth-margin-150, 150, "PEDIDO DE VENDA", "R")
	l.y += 16
	l.pdf.SetFont("Helvetica", "", 10)
	l.text(pageWidth-margin-150, 150, "Nº "+number, "R")

	l.y = max(bottom, top+16+lineHeight)
	if logo != nil {
		l.y = max(l.y, top+logoHeight)
	}
	l.y += 8
	l.pdf.SetLineWidth(0.8)
	l.pdf.Line(margin, l.y, pageWidth-margin, l.y)
	l.y += 12
}

// drawLogo embeds the logo at the cursor and returns its drawn width
func (l *layout) drawLogo(png []byte) (float64, bool) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := l.pdf.RegisterImageOptionsReader("logo", opts, bytes.NewReader(png))
	if l.pdf.Err() || info == nil {
		slog.Warn("Rendering without logo", "error", fmt.Errorf("%w: %v", ErrAssetUnavailable, l.pdf.Error()))
		l.pdf.ClearError()
		return 0, false
	}
	w, h := info.Width(), info.Height()
	if w <= 0 || h <= 0 {
		return 0, false
	}
	drawW := logoHeight * w / h
	drawH := logoHeight
	if drawW > logoMaxW {
		drawW = logoMaxW
		drawH = logoMaxW * h / w
	}
	l.pdf.ImageOptions("logo", margin, l.y, drawW, drawH, false, opts, 0, "")
	return drawW, true
}

func (l *layout) sectionTitle(title string) {
	l.ensure(lineHeight * 2)
	l.pdf.SetFont("Helvetica", "B", 11)
	l.text(margin, contentWidth, title, "L")
	l.y += lineHeight + 2
	l.pdf.SetFont("Helvetica", "", 10)
}

// pair prints "Label: value" in a fixed label column
func (l *layout) pair(x, w float64, label, value string) {
	l.pdf.SetFont("Helvetica", "B", 10)
	l.text(x, 95, label+":", "L")
	l.pdf.SetFont("Helvetica", "", 10)
	l.text(x+95, w-95, value, "L")
}

func (l *layout) clientBlock(c Client) {
	l.sectionTitle("Cliente")
	for _, p := range [][2]string{
		{"Nome", c.Name},
		{"CPF/CNPJ", c.TaxID},
		{"Endereço", c.Address},
		{"Telefone", c.Phone},
		{"E-mail", c.Email},
	} {
		if p[1] == "" {
			continue
		}
		l.ensure(lineHeight)
		l.pair(margin, contentWidth, p[0], p[1])
		l.y += lineHeight
	}
	l.y += 8
}

func (l *layout) orderBlock(o OrderInfo) {
	l.sectionTitle("Dados do pedido")
	half := contentWidth / 2
	l.ensure(lineHeight * 2)
	l.pair(margin, half, "Pedido", o.Number)
	l.pair(margin+half, half, "Data", o.Date)
	l.y += lineHeight
	l.pair(margin, half, "Pagamento", o.PaymentMethod)
	l.pair(margin+half, half, "Vendedor", o.VendorName)
	l.y += lineHeight + 10
}

func (l *layout) tableHeader() {
	l.pdf.SetFont("Helvetica", "B", 9)
	l.pdf.SetFillColor(220, 220, 220)
	x := margin
	for _, col := range columns {
		l.pdf.SetXY(x, l.y)
		l.pdf.CellFormat(col.width, rowHeight, l.fit(col.title, col.width), "1", 0, "C", true, 0, "")
		x += col.width
	}
	l.y += rowHeight
}

func (l *layout) itemsTable(items []Item) {
	l.sectionTitle("Produtos e serviços")
	l.ensure(rowHeight * 2)
	l.tableHeader()

	for _, item := range items {
		if l.ensure(rowHeight) {
			l.tableHeader()
		}
		l.pdf.SetFont("Helvetica", "", 9)
		x := margin
		for _, col := range columns {
			l.pdf.SetXY(x, l.y)
			l.pdf.CellFormat(col.width, rowHeight, l.fit(col.value(l.symbol, item), col.width), "1", 0, col.align, false, 0, "")
			x += col.width
		}
		l.y += rowHeight
	}
	l.y += 6
}

func (l *layout) totals(total float64, items []Item) {
	if total == 0 {
		total = itemsTotal(items)
	}
	l.ensure(lineHeight + 4)
	l.pdf.SetFont("Helvetica", "B", 11)
	l.text(margin, contentWidth, "Total: "+formatMoney(l.symbol, total), "R")
	l.y += lineHeight + 14
}

func (l *layout) footer(v Vehicle, t Team) {
	half := contentWidth / 2

	l.sectionTitle("Veículo")
	rows := [][4]string{
		{"Marca", v.Make, "Modelo", v.Model},
		{"Ano", v.Year, "Placa", v.Plate},
		{"Cor", v.Color, "", ""},
	}
	for _, row := range rows {
		l.ensure(lineHeight)
		l.pair(margin, half, row[0], row[1])
		if row[2] != "" {
			l.pair(margin+half, half, row[2], row[3])
		}
		l.y += lineHeight
	}
	l.y += 8

	l.sectionTitle("Equipe")
	l.ensure(lineHeight)
	l.pair(margin, half, "Instalador", t.InstallerName)
	l.pair(margin+half, half, "Vendedor", t.VendorName)
	l.y += lineHeight + 8
}

func (l *layout) notes(notes string) {
	if notes == "" {
		return
	}
	l.sectionTitle("Observações")
	l.pdf.SetFont("Helvetica", "", 10)
	for _, line := range l.pdf.SplitText(l.tr(notes), contentWidth-4) {
		l.ensure(lineHeight)
		l.pdf.SetXY(margin, l.y)
		l.pdf.CellFormat(contentWidth, lineHeight, line, "", 0, "L", false, 0, "")
		l.y += lineHeight
	}
}
