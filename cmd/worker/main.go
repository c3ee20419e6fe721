package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/pharmapos/pharmapos/internal/app"
	"github.com/pharmapos/pharmapos/internal/catalog"
	"github.com/pharmapos/pharmapos/internal/payments"
	"github.com/pharmapos/pharmapos/internal/platform/cache"
	"github.com/pharmapos/pharmapos/internal/platform/db"
	"github.com/pharmapos/pharmapos/internal/reports"
	"github.com/pharmapos/pharmapos/internal/shared"
	"github.com/pharmapos/pharmapos/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
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

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	refresh := shared.NewRefreshBroadcaster(redisClient)
	activityLogger := shared.NewActivityLogger(dbpool)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, activityLogger, refresh)

	jobsClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	gateway := payments.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey)
	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(logger, paymentsRepo, gateway, jobsClient, activityLogger)

	reportsRepo := reports.NewRepository(dbpool)
	reportsService := reports.NewService(logger, reportsRepo, redisClient, refresh)

	// Writes to sales or invoices bump the refresh channel; refresh the
	// cached dashboard shortly after instead of waiting for the morning cron.
	refresh.Subscribe(ctx, func(domain string) {
		if domain != "sales" && domain != "invoices" {
			return
		}
		if err := jobsClient.EnqueueWarmup(ctx); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Warn("dashboard warmup enqueue", slog.Any("error", err))
		}
	})

	pollJob := jobs.NewPaymentPollJob(paymentsService, logger)
	scanJob := jobs.NewStockScanJob(catalogService, activityLogger, logger, cfg.LowStockThreshold)
	warmupJob := jobs.NewReportsWarmupJob(reportsService, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPaymentPoll, Handler: pollJob.Handle},
			{Type: jobs.TaskStockScan, Handler: scanJob.Handle},
			{Type: jobs.TaskReportsWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 7 * * *", Task: jobs.NewStockScanTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
			{Spec: "0 6 * * *", Task: jobs.NewReportsWarmupTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("queue", jobs.QueueDefault))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
