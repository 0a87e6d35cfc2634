package scanning

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencySymbols = []string{"R$", "US$", "$", "€", "£"}
	dotDecimal      = regexp.MustCompile(`^\d+\.\d{2}$`)
)

// parseNumber reads a Brazilian formatted amount such as "R$ 1.234,56".
// Currency symbols, spaces and thousands separators are dropped and the
// comma is the decimal separator. A plain "123.45" is accepted as well.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return decimal.Zero, false
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else if !dotDecimal.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseAmount is parseNumber returning a float rounded to cents, 0 when unreadable
func parseAmount(s string) float64 {
	d, ok := parseNumber(s)
	if !ok {
		return 0
	}
	return d.Round(2).InexactFloat64()
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// NormalizeLineItem enforces quantity >= 1 and fills whichever of unit price
// and line total is missing from the other.
func NormalizeLineItem(item LineItem) LineItem {
	item.Description = strings.Trim(collapseSpaces(item.Description), " :-|;")
	item.Code = strings.TrimSpace(item.Code)
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if item.UnitPrice < 0 {
		item.UnitPrice = 0
	}
	if item.LineTotal < 0 {
		item.LineTotal = 0
	}
	if item.DiscountPercent < 0 {
		item.DiscountPercent = 0
	}
	if item.DiscountPercent > 100 {
		item.DiscountPercent = 100
	}

	qty := decimal.NewFromInt(int64(item.Quantity))
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(item.DiscountPercent).Div(decimal.NewFromInt(100)))

	switch {
	case item.UnitPrice > 0 && item.LineTotal == 0:
		total := decimal.NewFromFloat(item.UnitPrice).Mul(qty)
		if item.DiscountPercent > 0 {
			total = total.Mul(factor)
		}
		item.LineTotal = total.Round(2).InexactFloat64()
	case item.LineTotal > 0 && item.UnitPrice == 0:
		unit := decimal.NewFromFloat(item.LineTotal)
		if item.DiscountPercent > 0 && factor.IsPositive() {
			unit = unit.Div(factor)
		}
		item.UnitPrice = unit.Div(qty).Round(2).InexactFloat64()
	}

	item.UnitPrice = round2(item.UnitPrice)
	item.LineTotal = round2(item.LineTotal)
	item.DiscountPercent = round2(item.DiscountPercent)
	return item
}

var spaces = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
