package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/barberdesk/barberdesk/internal/app"
	"github.com/barberdesk/barberdesk/internal/appointments"
	"github.com/barberdesk/barberdesk/internal/barbers"
	"github.com/barberdesk/barberdesk/internal/platform/cache"
	"github.com/barberdesk/barberdesk/internal/platform/db"
	"github.com/barberdesk/barberdesk/internal/reporting"
	"github.com/barberdesk/barberdesk/internal/sales"
	"github.com/barberdesk/barberdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	location, err := cfg.Location()
	if err != nil {
		logger.Error("load shop timezone", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
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

	barberRepo := barbers.NewRepository(pool)
	saleRepo := sales.NewRepository(pool, cfg.ShopTimezone)
	appointmentRepo := appointments.NewRepository(pool, cfg.ShopTimezone)

	reportCache := reporting.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	reportService := reporting.NewService(barberRepo, saleRepo, appointmentRepo, reportCache, reporting.ServiceConfig{
		Location:        location,
		SourceTimeout:   cfg.SourceTimeout,
		AvailabilityTTL: cfg.AvailabilityTTL,
	}, logger)

	compositor := reporting.NewCompositor(reportService, reportService, reporting.CompositorConfig{
		Location:     location,
		MaxInFlight:  cfg.ComposeMaxInFlight,
		FetchTimeout: cfg.ComposeFetchTimeout,
		RetryDelay:   cfg.ComposeRetryDelay,
	}, logger)

	warmupJob := jobs.NewReportsWarmupJob(reportService, logger, nil)
	auditJob := jobs.NewReportsAuditJob(reportService, compositor, logger, nil)

	warmupTask, err := jobs.NewReportsWarmupTask(jobs.ReportsWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	auditTask, err := jobs.NewReportsAuditTask(jobs.ReportsAuditPayload{})
	if err != nil {
		logger.Error("build audit task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskReportsAudit, Handler: auditJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 5 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 5 * * *", Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
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
