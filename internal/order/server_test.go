package order

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/orderdesk/internal/scanning"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		renderer    *mockRenderer
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		renderer = &mockRenderer{}
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service = NewServiceWithDeps(db, storage, Config{
			Extractors:      map[string]scanning.Extractor{"regex": extractor, "llm": extractor},
			DefaultStrategy: "regex",
			Renderer:        renderer,
		}, &mockIDGenerator{ids: []string{"id-1", "id-2"}}, &mockTimeSource{})
		server = NewServerWithMux(service, auth, http.NewServeMux())

		ghttpServer = ghttp.NewServer()
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions} {
			ghttpServer.RouteToHandler(method, regexp.MustCompile(".*"), server.ServeHTTP)
		}
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	upload := func(path, filename string, data []byte) *http.Response {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghttpServer.URL()+path, writer.FormDataContentType(), &b)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	postJSON := func(path string, v any) *http.Response {
		body, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		resp, err := http.Post(ghttpServer.URL()+path, "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, v)).To(Succeed())
	}

	Describe("POST /api/extract", func() {
		When("extraction succeeds", func() {
			It("should return the draft", func() {
				resp := upload("/api/extract", "recibo.pdf", []byte("%PDF-1.4"))
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var draft Draft
				decode(resp, &draft)
				Expect(draft.Strategy).To(Equal("regex"))
				Expect(draft.Order.Order.Number).To(Equal("1234"))
			})

			It("should honor the strategy parameter", func() {
				resp := upload("/api/extract?strategy=llm", "recibo.pdf", []byte("%PDF-1.4"))
				var draft Draft
				decode(resp, &draft)
				Expect(draft.Strategy).To(Equal("llm"))
			})
		})

		When("no file is provided", func() {
			It("should return Bad Request", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				writer.Close()
				resp, err := http.Post(ghttpServer.URL()+"/api/extract", writer.FormDataContentType(), &b)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the file is larger than the cap", func() {
			It("should be rejected", func() {
				var b bytes.Buffer
				writer := multipart.NewWriter(&b)
				part, err := writer.CreateFormFile("file", "big.pdf")
				Expect(err).NotTo(HaveOccurred())
				_, err = part.Write(bytes.Repeat([]byte("a"), maxUploadSize+(2<<20)))
				Expect(err).NotTo(HaveOccurred())
				Expect(writer.Close()).To(Succeed())

				req := httptest.NewRequest(http.MethodPost, "/api/extract", &b)
				req.Header.Set("Content-Type", writer.FormDataContentType())
				rec := httptest.NewRecorder()
				server.ServeHTTP(rec, req)

				Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
				Expect(extractor.calls).To(Equal(0))
			})
		})

		When("the document is invalid", func() {
			BeforeEach(func() {
				extractor.err = fmt.Errorf("%w: no pages", scanning.ErrInvalidDocument)
			})

			It("should return Bad Request", func() {
				resp := upload("/api/extract", "recibo.pdf", []byte("junk"))
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				var body map[string]string
				decode(resp, &body)
				Expect(body["error"]).To(ContainSubstring("invalid document"))
				Expect(body).NotTo(HaveKey("fallback"))
			})
		})

		When("the remote extraction fails", func() {
			BeforeEach(func() {
				extractor.err = &scanning.RemoteExtractionError{Stage: "schema", Err: errors.New("missing lineItems")}
			})

			It("should return Bad Gateway with a regex fallback hint", func() {
				resp := upload("/api/extract?strategy=llm", "recibo.pdf", []byte("%PDF-1.4"))
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
				var body map[string]string
				decode(resp, &body)
				Expect(body["fallback"]).To(Equal("regex"))
			})
		})

		When("the remote extraction times out", func() {
			BeforeEach(func() {
				extractor.err = &scanning.RemoteExtractionError{Stage: "request", Err: fmt.Errorf("generating content: %w", context.DeadlineExceeded)}
			})

			It("should return Gateway Timeout with a regex fallback hint", func() {
				resp := upload("/api/extract?strategy=llm", "recibo.pdf", []byte("%PDF-1.4"))
				Expect(resp.StatusCode).To(Equal(http.StatusGatewayTimeout))
				var body map[string]string
				decode(resp, &body)
				Expect(body["fallback"]).To(Equal("regex"))
			})
		})

		When("the strategy is unknown", func() {
			It("should return Bad Request", func() {
				resp := upload("/api/extract?strategy=ocr", "recibo.pdf", []byte("%PDF-1.4"))
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("POST /api/orders", func() {
		When("the input is valid", func() {
			It("should return Created with the order", func() {
				resp := postJSON("/api/orders", sampleInput())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				var order Order
				decode(resp, &order)
				Expect(order.ID).To(Equal("id-1"))
				Expect(order.Total).To(Equal(int64(65050)))
			})
		})

		When("the number is already used", func() {
			BeforeEach(func() {
				db.orders["other"] = &Order{ID: "other", Number: "1234"}
				db.numbers["1234"] = "other"
			})

			It("should return Conflict", func() {
				resp := postJSON("/api/orders", sampleInput())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			})
		})

		When("validation fails", func() {
			It("should return Bad Request", func() {
				input := sampleInput()
				input.Items = nil
				resp := postJSON("/api/orders", input)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the body is not JSON", func() {
			It("should return Bad Request", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/orders", "application/json", strings.NewReader("{"))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("POST /api/render", func() {
		It("should return a PDF", func() {
			resp := postJSON("/api/render", sampleInput())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(HavePrefix("%PDF"))
		})
	})

	Describe("orders by id", func() {
		BeforeEach(func() {
			db.orders["a"] = &Order{ID: "a", Number: "77", PDFFile: "a.pdf"}
			db.numbers["77"] = "a"
			storage.files["a.pdf"] = []byte("%PDF-1.3 a")
		})

		It("should list orders", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/orders")
			Expect(err).NotTo(HaveOccurred())
			var orders []*Order
			decode(resp, &orders)
			Expect(orders).To(HaveLen(1))
		})

		It("should get an order", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/orders/a")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var order Order
			decode(resp, &order)
			Expect(order.Number).To(Equal("77"))
		})

		It("should return Not Found for unknown orders", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/orders/missing")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should serve the PDF", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/orders/a/pdf")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("pedido_77.pdf"))
		})

		It("should delete the order", func() {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/orders/a", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.orders).To(BeEmpty())
		})
	})

	Describe("staff", func() {
		It("should create and list staff", func() {
			resp := postJSON("/api/staff", map[string]any{"name": "Pedro", "role": "installer", "commission_percent": "10"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			resp.Body.Close()

			resp, err := http.Get(ghttpServer.URL() + "/api/staff")
			Expect(err).NotTo(HaveOccurred())
			var members []*Staff
			decode(resp, &members)
			Expect(members).To(HaveLen(1))
			Expect(members[0].CommissionPercent.String()).To(Equal("10"))
		})

		It("should reject an unknown role", func() {
			resp := postJSON("/api/staff", map[string]any{"name": "Ana", "role": "manager"})
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should return Not Found when deleting unknown staff", func() {
			req, err := http.NewRequest(http.MethodDelete, ghttpServer.URL()+"/api/staff/missing", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("reports", func() {
		It("should return the commission report", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/reports/commissions?from=2024-03-01&to=2024-03-31")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var report CommissionReport
			decode(resp, &report)
			Expect(report.From).To(Equal("2024-03-01"))
		})

		It("should reject malformed dates", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/reports/commissions?from=01/03/2024")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should export a workbook", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/reports/export.xlsx")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("spreadsheetml"))
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(HavePrefix("PK"))
		})
	})

	Describe("operational endpoints", func() {
		It("should report health", func() {
			resp, err := http.Get(ghttpServer.URL() + "/healthz")
			Expect(err).NotTo(HaveOccurred())
			var body map[string]string
			decode(resp, &body)
			Expect(body["status"]).To(Equal("ok"))
		})

		It("should expose metrics", func() {
			upload("/api/extract", "recibo.pdf", []byte("%PDF-1.4")).Body.Close()

			resp, err := http.Get(ghttpServer.URL() + "/metrics")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("orderdesk_extractions_total"))
		})

		It("should answer preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/orders", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "loja", Password: "segredo"}
		})

		get := func(path, credentials string) *http.Response {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+path, nil)
			Expect(err).NotTo(HaveOccurred())
			if credentials != "" {
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))
			}
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			return resp
		}

		It("should reject requests without credentials", func() {
			resp := get("/api/orders", "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should reject wrong credentials", func() {
			Expect(get("/api/orders", "loja:errado").StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should accept valid credentials", func() {
			Expect(get("/api/orders", "loja:segredo").StatusCode).To(Equal(http.StatusOK))
		})

		It("should leave the health check open", func() {
			Expect(get("/healthz", "").StatusCode).To(Equal(http.StatusOK))
		})
	})
})
