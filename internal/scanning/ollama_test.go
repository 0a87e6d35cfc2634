package scanning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server *ghttp.Server
		ollama *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		ollama, err = NewOllama(server.URL()+"/", "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should post the prompt to the chat API", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
			ghttp.VerifyContentType("application/json"),
			ghttp.VerifyJSONRepresenting(ollamaChatRequest{
				Model:  "llava",
				Stream: false,
				Format: "json",
				Messages: []ollamaMessage{
					{Role: "system", Content: systemInstruction},
					{Role: "user", Content: "read this", Images: []string{base64.StdEncoding.EncodeToString([]byte("png"))}},
				},
			}),
			ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: `{"client": {}}`},
				Done:    true,
			}),
		))

		reply, err := ollama.Complete(context.Background(), CompletionRequest{Prompt: "read this", Image: []byte("png")})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal(`{"client": {}}`))
	})

	It("should omit images when none are given", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
			func(w http.ResponseWriter, r *http.Request) {
				var body ollamaChatRequest
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body.Messages[1].Images).To(BeEmpty())
			},
			ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{Message: ollamaMessage{Content: "{}"}}),
		))

		_, err := ollama.Complete(context.Background(), CompletionRequest{Prompt: "read this"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should fail on a non-200 status", func() {
		server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))

		_, err := ollama.Complete(context.Background(), CompletionRequest{Prompt: "read this"})
		Expect(err).To(MatchError(ContainSubstring("status 500")))
		Expect(err).To(MatchError(ContainSubstring("model not loaded")))
	})

	It("should default the address and model", func() {
		o, err := NewOllama("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(o.baseURL).To(Equal("http://localhost:11434"))
		Expect(o.model).To(Equal("llama3.1"))
	})
})
