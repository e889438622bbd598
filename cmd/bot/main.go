// Package main is the entry point of the Momentum Growth Bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/momentum-growth-bot/internal/alert"
	"github.com/your-org/momentum-growth-bot/internal/closer"
	"github.com/your-org/momentum-growth-bot/internal/config"
	"github.com/your-org/momentum-growth-bot/internal/engine"
	"github.com/your-org/momentum-growth-bot/internal/exchange/binance"
	"github.com/your-org/momentum-growth-bot/internal/http/handler"
	"github.com/your-org/momentum-growth-bot/internal/monitor"
	"github.com/your-org/momentum-growth-bot/internal/position"
	"github.com/your-org/momentum-growth-bot/internal/pricecache"
	"github.com/your-org/momentum-growth-bot/internal/store"
	"github.com/your-org/momentum-growth-bot/pkg/logger"
)

// paperBalance is the virtual quote balance used when no exchange
// credentials are configured.
const paperBalance = 10000.0

func main() {
	// --- Configuration ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	migrationsDir := flag.String("migrations", "db/migrations", "Path to the schema migrations")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger.SetGlobalLogLevel(cfg.LogLevel)
	defer logger.Sync()
	logger.Info("Momentum Growth Bot starting...")
	logger.Infof("Loaded configuration from: %s", *configPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Persistence ---
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; the bot cannot run without durable position state")
	}
	if err := store.Migrate(cfg.DatabaseURL, *migrationsDir, logger.Zap()); err != nil {
		logger.Fatalf("Failed to apply migrations: %v", err)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	gateway := store.NewPGStore(pool, logger.Zap())

	// --- Registry recovery ---
	registry := position.NewRegistry(cfg.Risk.MaxOpenPositions)
	recovered, err := store.Recover(ctx, gateway, registry)
	if err != nil {
		logger.Fatalf("Failed to recover active positions: %v", err)
	}
	logger.Infof("Recovered %d active position(s) from storage", recovered)

	// --- Market data ---
	prices := pricecache.NewCache()
	stream := binance.NewTickerStream(cfg.QuoteAsset, prices.Set)
	go stream.Run(ctx)

	// --- Execution engine ---
	sizer := engine.NewSizer(cfg.Risk.RiskPerTradePct)
	var exec engine.ExecutionEngine
	if cfg.APIKey != "" && cfg.APISecret != "" {
		client := binance.NewClient(cfg.APIKey, cfg.APISecret)
		exec = engine.NewLiveExecutionEngine(client, sizer, cfg.QuoteAsset)
		logger.Info("Live execution engine initialized")
	} else {
		exec = engine.NewPaperExecutionEngine(sizer, prices.Get, paperBalance)
		logger.Info("No exchange credentials found, using paper execution engine")
	}

	// --- Notifications ---
	var notifier alert.Notifier = alert.NewNoOpNotifier()
	if bool(cfg.Alert.Enabled) && cfg.TelegramToken != "" && cfg.TelegramChat != "" {
		notifier = alert.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChat)
		logger.Info("Telegram notifications enabled")
	}
	alerts := alert.NewDispatcher(notifier, cfg.Alert.BufferSize)
	defer alerts.Close()

	// --- Closure coordinator and monitor ---
	coordinator := closer.NewCoordinator(registry, gateway, exec, alerts, cfg.Order.Timeout(), cfg.Order.MaxConcurrentClosures)

	var trailing *monitor.TrailingController
	if bool(cfg.Trailing.Enabled) {
		trailing = monitor.NewTrailingController(registry, gateway, alerts,
			cfg.Trailing.ActivationPct, cfg.Trailing.DistancePct, cfg.Trailing.PersistCooldown())
		logger.Infof("Trailing stops enabled: activation=%.2f%% distance=%.2f%%",
			cfg.Trailing.ActivationPct*100, cfg.Trailing.DistancePct*100)
	}

	mon := monitor.New(registry, prices, trailing, coordinator, cfg.Monitor.Interval(), cfg.Monitor.MaxPriceAge())
	go mon.Run(ctx)

	// --- HTTP API ---
	router := chi.NewRouter()
	router.Get("/health", handler.HealthCheckHandler)
	posHandler := handler.NewPositionHandler(registry, gateway, exec, coordinator, prices, alerts,
		cfg.LiveToggle, cfg.Risk.MaxOpenPositions, cfg.Risk.ReinforceMinConfidence)
	posHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}
	go func() {
		logger.Infof("HTTP server starting on :%d", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	// Let in-flight closures finish so no fill goes unrecorded.
	coordinator.Wait()
	logger.Info("Momentum Growth Bot stopped")
}
