package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseAmount", func() {
	DescribeTable("Brazilian amounts",
		func(input string, expected float64) {
			Expect(parseAmount(input)).To(Equal(expected))
		},
		Entry("with currency and thousands", "R$ 1.234,56", 1234.56),
		Entry("comma decimal", "99,90", 99.9),
		Entry("dot decimal with two places", "123.45", 123.45),
		Entry("dot thousands without decimals", "1.500", 1500.0),
		Entry("non-breaking space", "R$\u00a0350,00", 350.0),
		Entry("percent", "12,5%", 12.5),
		Entry("rounds to cents", "10,005", 10.01),
		Entry("empty", "", 0.0),
		Entry("garbage", "abc", 0.0),
	)
})

var _ = Describe("NormalizeLineItem", func() {
	It("should derive the line total from unit price and quantity", func() {
		item := NormalizeLineItem(LineItem{Description: "Película", Quantity: 3, UnitPrice: 33.33})
		Expect(item.LineTotal).To(Equal(99.99))
	})

	It("should derive the unit price from line total and quantity", func() {
		item := NormalizeLineItem(LineItem{Description: "Sensor", Quantity: 3, LineTotal: 100})
		Expect(item.UnitPrice).To(Equal(33.33))
	})

	It("should apply the discount when deriving the total", func() {
		item := NormalizeLineItem(LineItem{Description: "Som", Quantity: 2, UnitPrice: 150, DiscountPercent: 10})
		Expect(item.LineTotal).To(Equal(270.0))
	})

	It("should undo the discount when deriving the unit price", func() {
		item := NormalizeLineItem(LineItem{Description: "Som", Quantity: 2, LineTotal: 270, DiscountPercent: 10})
		Expect(item.UnitPrice).To(Equal(150.0))
	})

	It("should cap discounts at one hundred percent", func() {
		item := NormalizeLineItem(LineItem{Description: "Kit", Quantity: 1, UnitPrice: 100, DiscountPercent: 150})
		Expect(item.DiscountPercent).To(Equal(100.0))
		Expect(item.LineTotal).To(BeZero())
	})

	It("should never derive a negative total from a printed row", func() {
		item, shape, ok := matchRow("Kit som KIT-1 1 R$ 100,00 150% R$ 0,00")
		Expect(ok).To(BeTrue())
		Expect(shape).To(Equal("full"))
		Expect(item.LineTotal).To(BeNumerically(">=", 0))
		Expect(item.DiscountPercent).To(Equal(100.0))
	})

	It("should raise quantities below one to one", func() {
		item := NormalizeLineItem(LineItem{Description: "Kit", Quantity: 0, UnitPrice: 10})
		Expect(item.Quantity).To(Equal(1))
		Expect(item.LineTotal).To(Equal(10.0))
	})

	It("should clamp negative amounts to zero", func() {
		item := NormalizeLineItem(LineItem{Description: "Kit", Quantity: 1, UnitPrice: -5, LineTotal: -5})
		Expect(item.UnitPrice).To(BeZero())
		Expect(item.LineTotal).To(BeZero())
	})

	It("should keep both amounts when both are present", func() {
		item := NormalizeLineItem(LineItem{Description: "Kit", Quantity: 2, UnitPrice: 10, LineTotal: 15})
		Expect(item.UnitPrice).To(Equal(10.0))
		Expect(item.LineTotal).To(Equal(15.0))
	})

	It("should tidy the description", func() {
		item := NormalizeLineItem(LineItem{Description: "  - Alarme   Positron | ", Quantity: 1})
		Expect(item.Description).To(Equal("Alarme Positron"))
	})
})
