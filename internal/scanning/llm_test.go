package scanning

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeImager struct {
	png []byte
	err error
}

func (f fakeImager) FirstPage(pdfData []byte) ([]byte, error) {
	return f.png, f.err
}

type mockCompleter struct {
	reply    string
	err      error
	requests []CompletionRequest
	closed   bool
}

func (m *mockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.requests = append(m.requests, req)
	return m.reply, m.err
}

func (m *mockCompleter) Close() error {
	m.closed = true
	return nil
}

var _ = Describe("LLMExtractor", func() {
	var (
		completer *mockCompleter
		extractor *LLMExtractor
		imager    PageImager
		input     []byte
		order     *ExtractedOrder
		err       error
	)

	BeforeEach(func() {
		completer = &mockCompleter{
			reply: `{"client": {"name": "Maria Souza"}, "order": {"number": "5521"}, "lineItems": [{"description": "Alarme Positron", "quantity": 1, "lineTotal": 450}]}`,
		}
		imager = nil
		input = textPDF(false, "Pedido: 5521", "Cliente: Maria Souza")
	})

	JustBeforeEach(func() {
		extractor = NewLLMExtractor(NativeText{}, completer, imager)
		order, err = extractor.Extract(context.Background(), input)
	})

	It("should send the receipt text in the prompt", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(completer.requests).To(HaveLen(1))
		Expect(completer.requests[0].Prompt).To(ContainSubstring("Pedido: 5521"))
		Expect(completer.requests[0].Prompt).To(HavePrefix(orderScanPrompt))
		Expect(completer.requests[0].Image).To(BeNil())
	})

	It("should return the parsed order", func() {
		Expect(err).NotTo(HaveOccurred())
		Expect(order.Client.Name).To(Equal("Maria Souza"))
		Expect(order.LineItems).To(HaveLen(1))
		Expect(order.LineItems[0].UnitPrice).To(Equal(450.0))
		Expect(order.Order.TotalValue).To(Equal(450.0))
	})

	When("a page imager is configured", func() {
		BeforeEach(func() {
			imager = fakeImager{png: []byte("\x89PNG")}
		})

		It("should send the page image with the text", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.requests[0].Image).To(Equal([]byte("\x89PNG")))
			Expect(completer.requests[0].Prompt).To(ContainSubstring("Cliente: Maria Souza"))
		})
	})

	When("the page cannot be rendered", func() {
		BeforeEach(func() {
			imager = fakeImager{err: errors.New("no mupdf")}
		})

		It("should send the text alone", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(completer.requests[0].Image).To(BeNil())
			Expect(order.Order.Number).To(Equal("5521"))
		})
	})

	When("the model call fails", func() {
		BeforeEach(func() {
			completer.err = errors.New("connection refused")
		})

		It("should report a request failure once", func() {
			Expect(err).To(MatchError(ErrRemoteExtraction))
			var remote *RemoteExtractionError
			Expect(errors.As(err, &remote)).To(BeTrue())
			Expect(remote.Stage).To(Equal("request"))
			Expect(err).To(MatchError(ContainSubstring("connection refused")))
			Expect(completer.requests).To(HaveLen(1))
			Expect(order).To(BeNil())
		})
	})

	When("the model replies with something else", func() {
		BeforeEach(func() {
			completer.reply = "Sorry, I cannot help with that."
		})

		It("should report a response failure", func() {
			var remote *RemoteExtractionError
			Expect(errors.As(err, &remote)).To(BeTrue())
			Expect(remote.Stage).To(Equal("response"))
		})
	})

	When("the document is unreadable", func() {
		BeforeEach(func() {
			input = []byte("garbage")
		})

		It("should not call the model", func() {
			Expect(err).To(MatchError(ErrInvalidDocument))
			Expect(err).NotTo(MatchError(ErrRemoteExtraction))
			Expect(completer.requests).To(BeEmpty())
		})
	})

	It("should close the completer", func() {
		Expect(extractor.Close()).To(Succeed())
		Expect(completer.closed).To(BeTrue())
	})
})

var _ = Describe("buildPrompt", func() {
	It("should quote the trimmed receipt text after the instructions", func() {
		prompt := buildPrompt("  Pedido: 1\n")
		Expect(prompt).To(HavePrefix(orderScanPrompt))
		Expect(prompt).To(HaveSuffix("Receipt text:\n\"\"\"\nPedido: 1\n\"\"\""))
	})
})
