package scanning

import (
	"regexp"
	"strings"
)

// field is one scalar target and the label patterns tried for it, in priority order.
type field struct {
	name     string
	patterns []*regexp.Regexp
	set      func(o *ExtractedOrder, value string)
}

// labelStart keeps "Modelo" from matching inside "Ano/Modelo" or "Fone" inside "Telefone".
const labelStart = `(?:^|[^/\p{L}\p{N}])`

// labeled matches "<label>: value" up to the end of the line.
func labeled(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)` + labelStart + `(?:` + label + `)[ \t]*:[ \t]*([^\n]+)`)
}

// labeledValue matches "<label>[:] value" where value has its own shape.
func labeledValue(label, value string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)` + labelStart + `(?:` + label + `)[ \t]*:?[ \t]*(` + value + `)`)
}

const (
	dateValue   = `\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}`
	numberValue = `[A-Za-z]{0,4}[\-/]?\d[A-Za-z0-9\-/.]*`
	moneyValue  = `(?:R\$)?[ \t]*\d[\d.]*,\d{2}`
)

var fields = []field{
	{
		name: "client.name",
		patterns: []*regexp.Regexp{
			labeled(`nome[ \t]+do[ \t]+cliente`),
			labeled(`nome`),
			// "Cliente:" only as a line label, so "Cód. Cliente:" or "Tipo de Cliente:" never match
			regexp.MustCompile(`(?im)^[ \t]*cliente[ \t]*:[ \t]*([^\n]+)`),
			labeled(`raz[ãa]o[ \t]+social`),
		},
		set: func(o *ExtractedOrder, v string) { o.Client.Name = v },
	},
	{
		name: "client.taxId",
		patterns: []*regexp.Regexp{
			labeledValue(`cpf[ \t]*/[ \t]*cnpj|cnpj[ \t]*/[ \t]*cpf`, `\d[\d./\-]*\d`),
			labeledValue(`cpf|cnpj`, `\d[\d./\-]*\d`),
			labeledValue(`documento`, `\d[\d./\-]*\d`),
		},
		set: func(o *ExtractedOrder, v string) { o.Client.TaxID = v },
	},
	{
		name: "client.address",
		patterns: []*regexp.Regexp{
			labeled(`endere[çc]o`),
		},
		set: func(o *ExtractedOrder, v string) { o.Client.Address = v },
	},
	{
		name: "client.phone",
		patterns: []*regexp.Regexp{
			labeledValue(`telefone|celular|whatsapp`, `\+?\(?\d[\d() \t.\-]*\d`),
			labeledValue(`fone|tel\.?`, `\+?\(?\d[\d() \t.\-]*\d`),
		},
		set: func(o *ExtractedOrder, v string) { o.Client.Phone = v },
	},
	{
		name: "client.email",
		patterns: []*regexp.Regexp{
			labeledValue(`e-?mail`, `[\w.+\-]+@[\w\-]+(?:\.[\w\-]+)+`),
		},
		set: func(o *ExtractedOrder, v string) { o.Client.Email = v },
	},
	{
		name: "order.number",
		patterns: []*regexp.Regexp{
			labeledValue(`n[º°o]\.?[ \t]*(?:do[ \t]+)?pedido`, numberValue),
			labeledValue(`pedido[ \t]*(?:n[º°o]\.?|n[úu]mero|#)?`, numberValue),
			labeledValue(`or[çc]amento[ \t]*(?:n[º°o]\.?|n[úu]mero|#)?`, numberValue),
			labeledValue(`venda[ \t]*(?:n[º°o]\.?|#)`, numberValue),
		},
		set: func(o *ExtractedOrder, v string) { o.Order.Number = v },
	},
	{
		name: "order.date",
		patterns: []*regexp.Regexp{
			labeledValue(`data(?:[ \t]+(?:do[ \t]+pedido|da[ \t]+venda|de[ \t]+emiss[ãa]o))?`, dateValue),
			labeledValue(`emiss[ãa]o`, dateValue),
			regexp.MustCompile(`\b(` + dateValue + `)\b`),
		},
		set: func(o *ExtractedOrder, v string) { o.Order.Date = v },
	},
	{
		name: "order.paymentMethod",
		patterns: []*regexp.Regexp{
			labeled(`forma[ \t]+de[ \t]+pagamento`),
			labeled(`condi[çc][ãa]o[ \t]+de[ \t]+pagamento`),
			labeled(`pagamento`),
		},
		set: func(o *ExtractedOrder, v string) { o.Order.PaymentMethod = v },
	},
	{
		name: "order.vendorName",
		patterns: []*regexp.Regexp{
			labeled(`vendedora?`),
			labeled(`consultora?`),
			labeled(`atendente`),
		},
		set: func(o *ExtractedOrder, v string) {
			o.Order.VendorName = v
			o.Team.VendorName = v
		},
	},
	{
		name: "order.totalValue",
		patterns: []*regexp.Regexp{
			labeledValue(`total[ \t]+geral`, moneyValue),
			labeledValue(`valor[ \t]+total`, moneyValue),
			labeledValue(`total[ \t]+a[ \t]+pagar`, moneyValue),
			regexp.MustCompile(`(?im)^[ \t]*total[ \t]*:?[ \t]*(` + moneyValue + `)[ \t]*$`),
		},
		set: func(o *ExtractedOrder, v string) { o.Order.TotalValue = parseAmount(v) },
	},
	{
		name: "vehicle.make",
		patterns: []*regexp.Regexp{
			labeled(`marca`),
			labeled(`montadora`),
		},
		set: func(o *ExtractedOrder, v string) { o.Vehicle.Make = v },
	},
	{
		name: "vehicle.model",
		patterns: []*regexp.Regexp{
			labeled(`modelo`),
			labeled(`ve[íi]culo`),
		},
		set: func(o *ExtractedOrder, v string) { o.Vehicle.Model = v },
	},
	{
		name: "vehicle.plate",
		patterns: []*regexp.Regexp{
			labeledValue(`placa`, `[A-Za-z]{3}[ \-]?\d[A-Za-z0-9]\d{2}`),
			labeled(`placa`),
		},
		set: func(o *ExtractedOrder, v string) { o.Vehicle.Plate = strings.ToUpper(v) },
	},
	{
		name: "vehicle.year",
		patterns: []*regexp.Regexp{
			labeledValue(`ano(?:[ \t]*/[ \t]*modelo)?`, `\d{4}(?:[ \t]*/[ \t]*\d{4})?`),
		},
		set: func(o *ExtractedOrder, v string) { o.Vehicle.Year = v },
	},
	{
		name: "vehicle.color",
		patterns: []*regexp.Regexp{
			labeled(`cor`),
		},
		set: func(o *ExtractedOrder, v string) { o.Vehicle.Color = v },
	},
	{
		name: "team.installerName",
		patterns: []*regexp.Regexp{
			labeled(`instalador(?:es)?`),
			labeled(`t[ée]cnico`),
		},
		set: func(o *ExtractedOrder, v string) { o.Team.InstallerName = v },
	},
	{
		name: "notes",
		patterns: []*regexp.Regexp{
			labeled(`observa[çc](?:[õo]es|[ãa]o)`),
			labeled(`obs\.?`),
		},
		set: func(o *ExtractedOrder, v string) { o.Notes = v },
	},
}

// nextLabel finds a second "Label:" sharing the line, separated by a wide gap.
var nextLabel = regexp.MustCompile(`(?:[ \t]{2,}|\t)[\p{L}][\p{L}º°./ ]{0,30}:`)

// firstMatch returns the first non-empty capture of the first matching pattern
func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			value := m[1]
			if loc := nextLabel.FindStringIndex(value); loc != nil {
				value = value[:loc[0]]
			}
			value = collapseSpaces(value)
			if value != "" {
				return value
			}
		}
	}
	return ""
}

// extractFields fills every scalar field it can find; absent fields stay empty
func extractFields(text string, order *ExtractedOrder) {
	for _, f := range fields {
		if v := firstMatch(text, f.patterns); v != "" {
			f.set(order, v)
		}
	}
}
