package order

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/orderdesk/internal/scanning"
)

var _ = Describe("extractionResult", func() {
	DescribeTable("labels",
		func(order *scanning.ExtractedOrder, err error, expected string) {
			Expect(extractionResult(order, err)).To(Equal(expected))
		},
		Entry("invalid document", nil, fmt.Errorf("%w: no pages", scanning.ErrInvalidDocument), "invalid_document"),
		Entry("remote failure", nil, &scanning.RemoteExtractionError{Stage: "schema", Err: errors.New("bad")}, "remote_failed"),
		Entry("other error", nil, errors.New("boom"), "error"),
		Entry("no order and no error", nil, nil, "manual"),
		Entry("needs manual entry", &scanning.ExtractedOrder{NeedsManualEntry: true}, nil, "manual"),
		Entry("items found", &scanning.ExtractedOrder{LineItems: []scanning.LineItem{{Description: "Kit"}}}, nil, "ok"),
	)

	It("should not panic when an extractor returns nothing", func() {
		Expect(func() { observeExtraction("regex", nil, nil) }).NotTo(Panic())
	})
})
