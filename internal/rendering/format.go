package rendering

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// currencySymbol returns the display symbol for an ISO 4217 code, or the code itself
func currencySymbol(code string) string {
	c := money.GetCurrency(strings.ToUpper(code))
	if c == nil || c.Grapheme == "" {
		return code
	}
	return c.Grapheme
}

// formatMoney renders "R$ 1234,50": two decimals, comma separator, no grouping
func formatMoney(symbol string, v float64) string {
	value := strings.Replace(decimal.NewFromFloat(v).StringFixed(2), ".", ",", 1)
	if symbol == "" {
		return value
	}
	return symbol + " " + value
}

// formatPercent renders "10%" or "12,5%"
func formatPercent(v float64) string {
	return strings.Replace(decimal.NewFromFloat(v).Round(2).String(), ".", ",", 1) + "%"
}

// itemsTotal sums the line totals
func itemsTotal(items []Item) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.LineTotal))
	}
	return sum.Round(2).InexactFloat64()
}
