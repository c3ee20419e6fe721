package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pharmapos/pharmapos/internal/activity"
	"github.com/pharmapos/pharmapos/internal/app"
	"github.com/pharmapos/pharmapos/internal/auth"
	"github.com/pharmapos/pharmapos/internal/catalog"
	"github.com/pharmapos/pharmapos/internal/creditnote"
	"github.com/pharmapos/pharmapos/internal/invoice"
	"github.com/pharmapos/pharmapos/internal/observability"
	"github.com/pharmapos/pharmapos/internal/payments"
	"github.com/pharmapos/pharmapos/internal/platform/cache"
	"github.com/pharmapos/pharmapos/internal/platform/db"
	"github.com/pharmapos/pharmapos/internal/reports"
	"github.com/pharmapos/pharmapos/internal/sales"
	"github.com/pharmapos/pharmapos/internal/shared"
	"github.com/pharmapos/pharmapos/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "pharmapos_session", cfg.SessionTTL, cfg.IsProduction())
	refresh := shared.NewRefreshBroadcaster(redisClient)
	activityLogger := shared.NewActivityLogger(dbpool)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(logger, authRepo, activityLogger)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, activityLogger, refresh)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	gateway := payments.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey)
	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(logger, paymentsRepo, gateway, jobsClient, activityLogger)
	paymentsHandler := payments.NewHandler(logger, paymentsService)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(logger, salesRepo, catalogRepo, paymentsService, activityLogger, refresh)
	salesHandler := sales.NewHandler(logger, salesService)

	invoiceRepo := invoice.NewRepository(dbpool)
	invoiceService := invoice.NewService(logger, invoiceRepo, catalogRepo, activityLogger, refresh)
	invoiceHandler := invoice.NewHandler(logger, invoiceService)

	creditRepo := creditnote.NewRepository(dbpool)
	creditService := creditnote.NewService(logger, creditRepo, catalogRepo, activityLogger, refresh)
	creditHandler := creditnote.NewHandler(logger, creditService)

	reportsRepo := reports.NewRepository(dbpool)
	reportsService := reports.NewService(logger, reportsRepo, redisClient, refresh)
	reportsHandler := reports.NewHandler(logger, reportsService, reportsRepo)

	activityService := activity.NewService(dbpool)
	activityHandler := activity.NewHandler(logger, activityService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()
	salesService.SetMetrics(metrics)
	invoiceService.SetMetrics(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		CatalogHandler:    catalogHandler,
		SalesHandler:      salesHandler,
		InvoiceHandler:    invoiceHandler,
		CreditNoteHandler: creditHandler,
		PaymentsHandler:   paymentsHandler,
		ReportsHandler:    reportsHandler,
		ActivityHandler:   activityHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
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
