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

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/livestock-receipts/internal/pipeline"
	"github.com/zombor/livestock-receipts/internal/receipt"
	"github.com/zombor/livestock-receipts/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type providerConfig struct {
	geminiKey    string
	geminiModel  string
	ollamaURL    string
	ollamaModel  string
	maxDimension int
}

// newProvider builds the provider for one slot. "none", or a provider
// missing its credentials, leaves the slot empty and the pipeline skips it.
func newProvider(kind string, cfg providerConfig) (scanning.Provider, error) {
	var (
		provider scanning.Provider
		err      error
	)
	switch kind {
	case "none", "":
		return nil, nil
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini provider...", "model", cfg.geminiModel)
		var g *scanning.Gemini
		if g, err = scanning.NewGemini(apiKey, cfg.geminiModel, cfg.maxDimension); err == nil {
			provider = g
		}
	case "ollama":
		slog.Info("Initializing Ollama provider...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		var o *scanning.Ollama
		if o, err = scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel, cfg.maxDimension); err == nil {
			provider = o
		}
	default:
		return nil, fmt.Errorf("invalid provider %q: want gemini, ollama or none", kind)
	}

	if errors.Is(err, scanning.ErrProviderUnavailable) {
		slog.Warn("Provider not configured, skipping", "provider", kind, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	fs := ff.NewFlagSet("receipt-scanner")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "livestock-receipts.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./receipts", "Storage directory path")
		primaryKind  = fs.StringLong("primary", "gemini", "Primary provider: 'gemini', 'ollama' or 'none'")
		fallbackKind = fs.StringLong("fallback", "ollama", "Fallback provider: 'gemini', 'ollama' or 'none'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		maxDimension = fs.IntLong("max-dimension", scanning.DefaultMaxDimension, "Longest image side sent to vision models")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		debug        = fs.BoolLong("debug", "Log each pipeline stage")
		_            = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("LIVESTOCK_RECEIPTS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	cfg := providerConfig{
		geminiKey:    *geminiKey,
		geminiModel:  *geminiModel,
		ollamaURL:    *ollamaURL,
		ollamaModel:  *ollamaModel,
		maxDimension: *maxDimension,
	}
	primary, err := newProvider(*primaryKind, cfg)
	if err != nil {
		slog.Error("Failed to initialize primary provider", "provider", *primaryKind, "error", err)
		os.Exit(1)
	}
	fallback, err := newProvider(*fallbackKind, cfg)
	if err != nil {
		slog.Error("Failed to initialize fallback provider", "provider", *fallbackKind, "error", err)
		os.Exit(1)
	}
	for _, p := range []scanning.Provider{primary, fallback} {
		if p != nil {
			defer p.Close()
		}
	}
	if primary == nil && fallback == nil {
		slog.Warn("No providers configured, receipts will be read by the heuristic parser only")
	}

	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	orchestrator := pipeline.NewOrchestrator(primary, fallback, store, db)
	scanService := receipt.NewService(db, orchestrator, store)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(scanService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
