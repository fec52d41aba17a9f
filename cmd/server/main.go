package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/exporter"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/parser"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/adapters/source"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/cache"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/core/services"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/domain"
	applog "github.com/zAcherttp/facebook-conversation-folder-viewer/internal/log"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/pkg/config"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/ports"
	"github.com/zAcherttp/facebook-conversation-folder-viewer/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// В терминале читабельнее текстовый формат; JSON остается для
	// запуска под супервизором.
	format := cfg.Logging.Format
	if term.IsTerminal(int(os.Stdout.Fd())) {
		format = "text"
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := applog.NewMaskedLogger(handler)
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Инициализация зависимостей
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	archiveStore := server.NewArchiveStore()
	archiveStore.StartCleanupTicker(appCtx, time.Hour)
	cacheStore := cache.NewCacheStore()
	cacheStore.StartCleanupTicker(appCtx, config.DefaultCacheCleanup)

	parserSvc := parser.NewJSONParser()
	validatorSvc := services.NewFolderValidationService()
	extractorSvc := services.NewParticipantExtractionService()
	searchSvc := services.NewSearchService(services.WithResultLimit(cfg.Search.ResultLimit))

	chunkSize := cfg.ChunkSize()
	aggregatorSvc := services.NewMessageAggregationService(
		parserSvc,
		services.NewRecordEnrichmentService(),
		services.WithSourceOpener(func(file domain.ArchiveFile) ports.DataSource {
			return source.NewChunkSource(file.AbsolutePath, chunkSize)
		}),
	)
	// Демо-архив идет тем же конвейером, но без починки кодировки.
	demoSvc := services.NewMessageAggregationService(
		parserSvc,
		services.NewRecordEnrichmentService(services.WithRepairer(nil)),
		services.WithSourceOpener(func(domain.ArchiveFile) ports.DataSource {
			return source.NewDemoSource()
		}),
	)

	// 5. Создание HTTP-сервера
	srv, err := server.New(cfg, server.Deps{
		Store:      archiveStore,
		CacheStore: cacheStore,
		Validator:  validatorSvc,
		Aggregator: aggregatorSvc,
		Demo:       demoSvc,
		Extractor:  extractorSvc,
		Search:     searchSvc,
		Excel:      exporter.NewExcelExporter(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 6. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address())
		if err := srv.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")

	// Сначала отменяем контекст приложения, чтобы остановить фоновые
	// тикеры и незавершённые загрузки архивов
	appCancel()

	// Затем останавливаем HTTP-сервер
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := srv.HTTPServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("Application exited gracefully")
	return nil
}
