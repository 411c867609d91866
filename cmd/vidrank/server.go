package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ametel/vidrank/internal/api"
	"github.com/ametel/vidrank/internal/category"
	"github.com/ametel/vidrank/internal/config"
	"github.com/ametel/vidrank/internal/feedback"
	"github.com/ametel/vidrank/internal/gemini"
	"github.com/ametel/vidrank/internal/llm"
	"github.com/ametel/vidrank/internal/ollama"
	"github.com/ametel/vidrank/internal/recommend"
	"github.com/ametel/vidrank/internal/rerank"
	"github.com/ametel/vidrank/internal/suggest"
	"github.com/ametel/vidrank/internal/vectorstore"
	"github.com/ametel/vidrank/internal/youtube"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vidrank server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running vidrank server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vidrank system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "vidrank.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// newProvider picks the generation/embedding backend: Gemini when an API key
// is configured, local Ollama otherwise.
func newProvider(cfg config.Config) llm.Provider {
	if cfg.UseGemini() {
		return gemini.New(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.GenModel, cfg.Gemini.EmbedModel)
	}
	return ollama.New(cfg.Ollama.BaseURL, cfg.Ollama.GenModel, cfg.Ollama.EmbedModel)
}

func newIndex(ctx context.Context, cfg config.Config, provider llm.Provider) (vectorstore.Index, func() error, error) {
	switch cfg.Storage.Backend {
	case "chroma":
		idx, err := vectorstore.NewChromaIndex(ctx, vectorstore.ChromaConfig{
			URL:        cfg.Storage.ChromaURL,
			Collection: cfg.Storage.ChromaCollection,
		}, provider)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to chroma: %w", err)
		}
		return idx, func() error { return nil }, nil
	default:
		idx, err := vectorstore.Open(cfg.Storage.DataDir, provider)
		if err != nil {
			return nil, nil, fmt.Errorf("opening vector store: %w", err)
		}
		return idx, idx.Close, nil
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "vidrank version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure an API token exists. An ephemeral one is generated when none is
	// configured, so local clients must read it from the log.
	token := cfg.Server.APIToken
	if token == "" {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generating API token: %w", err)
		}
		token = hex.EncodeToString(buf)
		slog.Warn("VIDRANK_API_TOKEN not set, generated ephemeral token", "token", token)
	}

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("vidrank is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("vidrank is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pick the generation/embedding backend and check readiness.
	provider := newProvider(cfg)
	if !provider.IsRunning(ctx) {
		printWarning("generation backend is not reachable; requests will fail until it is")
	}

	// Open the vector index.
	index, closeIndex, err := newIndex(ctx, cfg, provider)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeIndex(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing vector store: %v\n", err)
		}
	}()

	// Build the recommendation core.
	recorder := feedback.NewRecorder(index)
	classifier := category.NewClassifier(provider)
	suggester := suggest.NewEngine(provider, index, classifier, provider)
	reranker := rerank.NewReranker(provider, index, provider)
	recommender := recommend.NewAggregator(index, classifier, provider)
	videos := youtube.New(cfg.YouTube.BaseURL, cfg.YouTube.APIKey)

	deps := api.Deps{
		Recorder:    recorder,
		Suggester:   suggester,
		Reranker:    reranker,
		Recommender: recommender,
		Videos:      videos,
		Token:       token,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
	}

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Recorder:    recorder,
		Suggester:   suggester,
		Reranker:    reranker,
		Recommender: recommender,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "vidrank listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printWarning("vidrank does not appear to be running")
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		removePIDFile(pidPath)
		printWarning("stale PID file removed")
		return nil
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(pidPath)
		printWarning("process %d not running, stale PID file removed", pid)
		return nil
	}

	printSuccess("sent shutdown signal to vidrank (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, colorize(colorBold, "vidrank status"))

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		printStatus("server", "running on port %d", cfg.Server.Port)
	} else {
		printStatus("server", "not running")
	}

	if cfg.UseGemini() {
		printStatus("backend", "gemini (%s / %s)", cfg.Gemini.GenModel, cfg.Gemini.EmbedModel)
	} else {
		printStatus("backend", "ollama at %s (%s / %s)", cfg.Ollama.BaseURL, cfg.Ollama.GenModel, cfg.Ollama.EmbedModel)
		client := ollama.New(cfg.Ollama.BaseURL, cfg.Ollama.GenModel, cfg.Ollama.EmbedModel)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if client.IsRunning(ctx) {
			printStatus("ollama", "reachable")
			if !client.HasModel(ctx, cfg.Ollama.GenModel) {
				printWarning("model %s is not pulled", cfg.Ollama.GenModel)
			}
			if !client.HasModel(ctx, cfg.Ollama.EmbedModel) {
				printWarning("model %s is not pulled", cfg.Ollama.EmbedModel)
			}
		} else {
			printStatus("ollama", "not reachable")
		}
	}

	printStatus("storage", "%s", cfg.Storage.Backend)
	if cfg.Storage.Backend == "sqlite" {
		printStatus("data dir", "%s", cfg.Storage.DataDir)
	} else {
		printStatus("chroma", "%s (%s)", cfg.Storage.ChromaURL, cfg.Storage.ChromaCollection)
	}

	return nil
}
