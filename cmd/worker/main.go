package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tallyledger/tallyledger/internal/app"
	"github.com/tallyledger/tallyledger/internal/audit"
	jobmetrics "github.com/tallyledger/tallyledger/internal/jobs"
	"github.com/tallyledger/tallyledger/internal/ledger"
	"github.com/tallyledger/tallyledger/internal/platform/cache"
	"github.com/tallyledger/tallyledger/internal/platform/db"
	"github.com/tallyledger/tallyledger/internal/shared"
	"github.com/tallyledger/tallyledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	locker := shared.NewAdvisoryLocker(redisClient, cfg.CloseLockTTL)
	ledgerService := ledger.NewService(ledger.NewRepository(pool), audit.NewLogger(pool), locker, logger)

	metrics := jobmetrics.NewMetrics(nil)
	tasks := jobs.NewTasks(pool, ledgerService, logger, metrics)

	now := time.Now().UTC()
	ledgerScan, err := jobs.NewLedgerIntegrityTask(now)
	if err != nil {
		logger.Error("build ledger scan task", slog.Any("error", err))
		os.Exit(1)
	}
	stockScan, err := jobs.NewStockIntegrityTask(now)
	if err != nil {
		logger.Error("build stock scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Tasks:     tasks,
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: ledgerScan, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: stockScan, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
