package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("matchRow", func() {
	DescribeTable("row shapes",
		func(line, shape string, expected LineItem) {
			item, name, ok := matchRow(line)
			Expect(ok).To(BeTrue())
			Expect(name).To(Equal(shape))
			Expect(item).To(Equal(expected))
		},
		Entry("full row with code and discount",
			"Película G5 PEL-001 2 R$ 150,00 10% R$ 270,00", "full",
			LineItem{Description: "Película G5", Code: "PEL-001", Quantity: 2, UnitPrice: 150, DiscountPercent: 10, LineTotal: 270}),
		Entry("labeled quantity, unit price and total",
			"Quantidade: 2  Unitário: R$ 100,00 Total: R$ 200,00", "labeled",
			LineItem{Quantity: 2, UnitPrice: 100, LineTotal: 200}),
		Entry("labeled row with description and no total",
			"Insulfilm G20 Qtd: 3 Unitário: R$ 90,00", "labeled",
			LineItem{Description: "Insulfilm G20", Quantity: 3, UnitPrice: 90, LineTotal: 270}),
		Entry("pipe separated row",
			"Alarme Positron | 1 | 450,00", "separated",
			LineItem{Description: "Alarme Positron", Quantity: 1, UnitPrice: 450, LineTotal: 450}),
		Entry("dash separated row keeps codes with dashes",
			"Lâmpada H-4 - 2 - R$ 60,00", "separated",
			LineItem{Description: "Lâmpada H-4", Quantity: 2, UnitPrice: 30, LineTotal: 60}),
		Entry("priced row with unit price",
			"Sensor de estacionamento 4 x R$ 80,00", "priced",
			LineItem{Description: "Sensor de estacionamento", Quantity: 4, UnitPrice: 80, LineTotal: 320}),
		Entry("keyword row",
			"Instalação de multimídia 350,00", "keyword",
			LineItem{Description: "Instalação de multimídia", Quantity: 1, UnitPrice: 350, LineTotal: 350}),
		Entry("dot decimal amount",
			"Trava elétrica | 1 | 199.90", "separated",
			LineItem{Description: "Trava elétrica", Quantity: 1, UnitPrice: 199.9, LineTotal: 199.9}),
		Entry("thousands separator",
			"Central multimídia | 1 | R$ 1.299,00", "separated",
			LineItem{Description: "Central multimídia", Quantity: 1, UnitPrice: 1299, LineTotal: 1299}),
	)

	DescribeTable("lines that are not products",
		func(line string) {
			_, _, ok := matchRow(line)
			Expect(ok).To(BeFalse())
		},
		Entry("total", "Total | 1 | 450,00"),
		Entry("subtotal", "Subtotal: 2 x R$ 10,00"),
		Entry("discount", "Desconto - 1 - 50,00"),
		Entry("plain text", "Obrigado pela preferência"),
		Entry("label line", "Telefone: (11) 99999-9999"),
	)
})

var _ = Describe("extractItems", func() {
	It("should return every product row in order", func() {
		items := extractItems(`PRODUTOS
Película G5 PEL-001 2 R$ 150,00 10% R$ 270,00
Alarme Positron | 1 | 450,00

Total: R$ 720,00`)
		Expect(items).To(HaveLen(2))
		Expect(items[0].Description).To(Equal("Película G5"))
		Expect(items[1].Description).To(Equal("Alarme Positron"))
	})

	It("should return an empty, non-nil slice when nothing matches", func() {
		items := extractItems("Obrigado pela preferência")
		Expect(items).NotTo(BeNil())
		Expect(items).To(BeEmpty())
	})
})
