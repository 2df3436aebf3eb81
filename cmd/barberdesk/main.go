package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/barberdesk/barberdesk/internal/app"
	"github.com/barberdesk/barberdesk/internal/appointments"
	"github.com/barberdesk/barberdesk/internal/barbers"
	"github.com/barberdesk/barberdesk/internal/observability"
	"github.com/barberdesk/barberdesk/internal/platform/cache"
	"github.com/barberdesk/barberdesk/internal/platform/db"
	"github.com/barberdesk/barberdesk/internal/reporting"
	reportinghttp "github.com/barberdesk/barberdesk/internal/reporting/http"
	"github.com/barberdesk/barberdesk/internal/sales"
	"github.com/barberdesk/barberdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	saleService := sales.NewService(saleRepo, reportService, logger)

	metrics := observability.NewMetrics()

	reportingHandler := reportinghttp.NewHandler(reportService, logger)
	salesHandler := sales.NewHandler(saleService, logger)
	barbersHandler := barbers.NewHandler(barberRepo, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = inspector.Close() }()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ReportingHandler: reportingHandler,
		SalesHandler:     salesHandler,
		BarbersHandler:   barbersHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
