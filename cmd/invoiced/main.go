package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/events"
	"github.com/invoicelens/invoice-extractor/internal/export"
	"github.com/invoicelens/invoice-extractor/internal/extract"
	"github.com/invoicelens/invoice-extractor/internal/llm"
	"github.com/invoicelens/invoice-extractor/internal/llm/gemini"
	"github.com/invoicelens/invoice-extractor/internal/orchestrator"
	"github.com/invoicelens/invoice-extractor/internal/repository"
	"github.com/invoicelens/invoice-extractor/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger()
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	repo := repository.NewInvoiceRepository(db, logger)

	bus := events.NewBroadcaster(logger)

	extractor := extract.NewExtractor(extract.Config{
		Tesseract:     cfg.Extract.Tesseract,
		TesseractLang: cfg.Extract.TesseractLang,
		DPI:           cfg.Extract.DPI,
		MaxOCRPages:   cfg.Extract.MaxOCRPages,
	}, logger)

	client := gemini.NewClient(gemini.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Timeout: cfg.LLM.Timeout,
	}, logger)
	chain := llm.NewChain(client, llm.ChainConfig{
		Candidates: cfg.LLM.Candidates,
		Options: llm.Options{
			Temperature:     cfg.LLM.Temperature,
			TopP:            cfg.LLM.TopP,
			TopK:            cfg.LLM.TopK,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		},
		RetryDelay: cfg.LLM.RetryDelay,
	}, logger)

	orc := orchestrator.New(extractor, chain, repo, bus, logger)
	queue := orchestrator.NewQueue(orc, logger,
		orchestrator.WithWorkers(cfg.Jobs.Workers),
		orchestrator.WithQueueSize(cfg.Jobs.QueueSize),
		orchestrator.WithJobTimeout(cfg.Jobs.JobTimeout),
	)

	srv := server.New(cfg.Server, repo, queue, bus, export.NewService(logger), logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http.serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
