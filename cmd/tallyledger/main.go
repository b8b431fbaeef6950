package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tallyledger/tallyledger/internal/app"
	"github.com/tallyledger/tallyledger/internal/audit"
	"github.com/tallyledger/tallyledger/internal/gst"
	"github.com/tallyledger/tallyledger/internal/inventory"
	"github.com/tallyledger/tallyledger/internal/ledger"
	"github.com/tallyledger/tallyledger/internal/observability"
	"github.com/tallyledger/tallyledger/internal/platform/cache"
	"github.com/tallyledger/tallyledger/internal/platform/db"
	"github.com/tallyledger/tallyledger/internal/reports"
	"github.com/tallyledger/tallyledger/internal/rules"
	"github.com/tallyledger/tallyledger/internal/shared"
	"github.com/tallyledger/tallyledger/internal/vouchers"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	ledgerRepo := ledger.NewRepository(dbpool)
	inventoryRepo := inventory.NewRepository(dbpool)
	gstRepo := gst.NewRepository(dbpool)
	auditRepo := audit.NewRepository()
	auditLogger := audit.NewLogger(dbpool)

	locker := shared.NewAdvisoryLocker(redisClient, cfg.CloseLockTTL)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger, locker, logger)
	ledgerService.WithMetrics(metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	ruleEngine := rules.NewEngine(rules.NewRepository(dbpool))

	voucherStore := vouchers.NewPgStore(dbpool, ledgerRepo, inventoryRepo, gstRepo, auditRepo)
	voucherService := vouchers.NewService(voucherStore, ruleEngine, logger)
	voucherService.WithMetrics(metrics)
	voucherHandler := vouchers.NewHandler(logger, voucherService)

	reportRepo := reports.NewRepository(dbpool)
	reportService := reports.NewService(reportRepo, logger)
	reportHandler := reports.NewHandler(logger, reportService)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		VoucherHandler: voucherHandler,
		ReportHandler:  reportHandler,
		LedgerHandler:  ledgerHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
