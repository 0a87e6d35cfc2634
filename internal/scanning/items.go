package scanning

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// rowShape is one way a product row can be laid out on a receipt.
// Shapes are tried in order and the first one that matches a line wins.
type rowShape struct {
	name    string
	pattern *regexp.Regexp
	build   func(m []string) LineItem
}

const (
	amount = `(?:R\$[ \t]*)?(\d[\d.]*,\d{2}|\d+\.\d{2})`
	qty    = `(\d{1,4})`
	// a dash only separates when surrounded by spaces, so codes like "H-4" stay intact
	separator = `(?:[ \t]*[|;][ \t]*|[ \t]+-[ \t]+)`
)

var rowShapes = []rowShape{
	{
		// Película G5 PEL-001 2 R$ 150,00 10% R$ 270,00
		name: "full",
		pattern: regexp.MustCompile(`^(.+?)[ \t]+([A-Z0-9][A-Z0-9.\-]*\d[A-Z0-9.\-]*)[ \t]+` + qty +
			`[ \t]+` + amount + `[ \t]+(\d+(?:[.,]\d+)?)[ \t]*%[ \t]+` + amount + `$`),
		build: func(m []string) LineItem {
			return LineItem{
				Description:     m[1],
				Code:            m[2],
				Quantity:        atoi(m[3]),
				UnitPrice:       parseAmount(m[4]),
				DiscountPercent: parseAmount(m[5]),
				LineTotal:       parseAmount(m[6]),
			}
		},
	},
	{
		// Insulfilm Quantidade: 2 Unitário: R$ 100,00 Total: R$ 200,00
		name: "labeled",
		pattern: regexp.MustCompile(`(?i)^(.*?)[ \t]*(?:quantidade|qtde?|qnt)\.?[ \t]*:?[ \t]*` + qty +
			`[ \t]+(?:valor[ \t]+|pre[çc]o[ \t]+)?unit(?:[áa]rio|\.)?[ \t]*:?[ \t]*` + amount +
			`(?:[ \t]+(?:desc(?:onto)?\.?)[ \t]*:?[ \t]*(\d+(?:[.,]\d+)?)[ \t]*%)?` +
			`(?:[ \t]+(?:valor[ \t]+)?total[ \t]*:?[ \t]*` + amount + `)?[ \t]*$`),
		build: func(m []string) LineItem {
			return LineItem{
				Description:     strings.Trim(m[1], " \t-|:"),
				Quantity:        atoi(m[2]),
				UnitPrice:       parseAmount(m[3]),
				DiscountPercent: parseAmount(m[4]),
				LineTotal:       parseAmount(m[5]),
			}
		},
	},
	{
		// Alarme Positron | 1 | 450,00
		name:    "separated",
		pattern: regexp.MustCompile(`(?i)^(.+?)` + separator + qty + `[ \t]*(?:x|un\.?|und\.?|p[çc]s?\.?)?` + separator + amount + `[ \t]*$`),
		build: func(m []string) LineItem {
			return LineItem{
				Description: m[1],
				Quantity:    atoi(m[2]),
				LineTotal:   parseAmount(m[3]),
			}
		},
	},
	{
		// Sensor de estacionamento 4 x R$ 80,00
		name:    "priced",
		pattern: regexp.MustCompile(`(?i)^(.+?)[ \t]+` + qty + `[ \t]*(?:x|un\.?|und\.?|p[çc]s?\.?)?[ \t]+R\$[ \t]*(\d[\d.]*,\d{2})[ \t]*$`),
		build: func(m []string) LineItem {
			return LineItem{
				Description: m[1],
				Quantity:    atoi(m[2]),
				UnitPrice:   parseAmount(m[3]),
			}
		},
	},
	{
		// Instalação de multimídia 350,00
		name:    "keyword",
		pattern: regexp.MustCompile(`(?i)^((?:pel[íi]cula|insulfilm|alarme|multim[íi]dia|central|sensor|c[âa]mera|trava|kit|instala[çc][ãa]o|servi[çc]o|som|m[óo]dulo|alto[- ]?falante)\b.*?)[ \t]+` + amount + `[ \t]*$`),
		build: func(m []string) LineItem {
			return LineItem{
				Description: m[1],
				Quantity:    1,
				LineTotal:   parseAmount(m[2]),
			}
		},
	},
}

// summaryRow matches totals and payment lines that look like rows but are not products.
var summaryRow = regexp.MustCompile(`(?i)^(?:sub[ \t-]?total|total|desconto|troco|valor|acr[ée]scimo|frete|pago|saldo|parcela)\b`)

// matchRow runs the shapes against one line and returns the first match
func matchRow(line string) (LineItem, string, bool) {
	for _, shape := range rowShapes {
		m := shape.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := shape.build(m)
		if summaryRow.MatchString(strings.TrimSpace(item.Description)) {
			return LineItem{}, "", false
		}
		return NormalizeLineItem(item), shape.name, true
	}
	return LineItem{}, "", false
}

// extractItems scans the text line by line for product rows
func extractItems(text string) []LineItem {
	items := make([]LineItem, 0)
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if item, _, ok := matchRow(line); ok {
			items = append(items, item)
		}
	}
	return items
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
