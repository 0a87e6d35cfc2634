package main

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/orderdesk/internal/order"
	"github.com/zombor/orderdesk/internal/rendering"
	"github.com/zombor/orderdesk/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A .env file is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	fs := ff.NewFlagSet("orderdesk")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "orderdesk.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./pedidos", "Storage directory for uploads and generated PDFs")
		strategy       = fs.StringLong("strategy", "regex", "Default extraction strategy: 'regex' or 'llm'")
		llmProvider    = fs.StringLong("llm", "", "LLM provider for the 'llm' strategy: 'gemini' or 'ollama' (empty disables it)")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llama3.1", "Ollama model name (e.g., llama3.1, qwen2.5, llava)")
		pdfEngine      = fs.StringLong("pdf-engine", "fitz", "PDF text engine: 'fitz' (MuPDF) or 'native' (pure Go)")
		vision         = fs.BoolLong("vision", "Send the first page image to the LLM (vision models only)")
		catalogPath    = fs.StringLong("catalog", "", "Product catalog JSON used when no line items are found (optional)")
		currency       = fs.StringLong("currency", "BRL", "ISO 4217 currency for amounts")
		companyName    = fs.StringLong("company-name", "", "Shop name printed on orders")
		companyTaxID   = fs.StringLong("company-tax-id", "", "Shop CNPJ printed on orders")
		companyAddress = fs.StringLong("company-address", "", "Shop address printed on orders")
		companyPhone   = fs.StringLong("company-phone", "", "Shop phone printed on orders")
		companyEmail   = fs.StringLong("company-email", "", "Shop e-mail printed on orders")
		logo           = fs.StringLong("logo", "", "Logo file path or http(s) URL (PNG, JPEG, GIF or HEIC)")
		extractTimeout = fs.DurationLong("extract-timeout", 2*time.Minute, "Maximum time for one extraction")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("ORDERDESK"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := order.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Text engine shared by both extractors
	var text scanning.TextSource
	switch *pdfEngine {
	case "fitz":
		text = scanning.FitzText{}
	case "native":
		text = scanning.NativeText{}
	default:
		slog.Error("Invalid PDF engine", "engine", *pdfEngine, "valid", "fitz or native")
		os.Exit(1)
	}

	var catalog *scanning.Catalog
	if *catalogPath != "" {
		catalog, err = scanning.LoadCatalog(*catalogPath)
		if err != nil {
			slog.Error("Failed to load catalog", "path", *catalogPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Catalog loaded", "entries", catalog.Len())
	}

	extractors := map[string]scanning.Extractor{
		"regex": scanning.NewRegexExtractor(text, catalog),
	}

	// Initialize the LLM completer based on provider
	var completer scanning.Completer
	switch *llmProvider {
	case "":
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini...", "model", *geminiModel)
		completer, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama...", "url", *ollamaURL, "model", *ollamaModel)
		completer, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid LLM provider", "provider", *llmProvider, "valid", "gemini or ollama")
		os.Exit(1)
	}
	if completer != nil {
		var imager scanning.PageImager
		if *vision {
			imager = scanning.FitzImager{}
		}
		llm := scanning.NewLLMExtractor(text, completer, imager)
		defer llm.Close()
		extractors["llm"] = llm
	}

	if _, ok := extractors[*strategy]; !ok {
		slog.Error("Default strategy is not available", "strategy", *strategy, "hint", "set --llm to enable 'llm'")
		os.Exit(1)
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := order.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	renderOpts := []rendering.Option{rendering.WithCurrency(*currency)}
	switch {
	case strings.HasPrefix(*logo, "http://"), strings.HasPrefix(*logo, "https://"):
		renderOpts = append(renderOpts, rendering.WithLogo(rendering.NewHTTPAsset(*logo)))
	case *logo != "":
		renderOpts = append(renderOpts, rendering.WithLogo(rendering.FileAsset{Path: *logo}))
	}

	orderService := order.NewService(db, store, order.Config{
		Extractors:      extractors,
		DefaultStrategy: *strategy,
		Renderer:        rendering.New(renderOpts...),
		Company: rendering.Company{
			Name:    *companyName,
			TaxID:   *companyTaxID,
			Address: *companyAddress,
			Phone:   *companyPhone,
			Email:   *companyEmail,
		},
		Currency:       *currency,
		ExtractTimeout: *extractTimeout,
	})

	basicAuth := order.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := order.NewServer(orderService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started",
		"address", fmt.Sprintf("http://localhost%s", addr),
		"strategies", orderService.Strategies(),
		"default_strategy", *strategy,
	)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
