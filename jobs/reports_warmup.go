package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/barberdesk/barberdesk/internal/jobs"
	"github.com/barberdesk/barberdesk/internal/reporting"
)

// ReportsWarmupJob pre-populates the reporting caches so the first
// dashboard hit after an idle night does not pay the full query cost.
// Reports remain request-scoped; the job only primes what a request
// would compute anyway.
type ReportsWarmupJob struct {
	Reports *reporting.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reports *reporting.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{
		Reports: reports,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now()
		},
	}
}

// Handle processes reports warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		_ = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting reports warmup")

	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := j.Reports.AvailableDates(runCtx, nil); err != nil {
		resultErr = err
		logger.Error("warm availability index", slog.Any("error", err))
		return resultErr
	}

	if payload.PerBarber {
		roster, err := j.Reports.Roster(runCtx)
		if err != nil {
			resultErr = err
			logger.Error("warm roster", slog.Any("error", err))
			return resultErr
		}
		for _, barber := range roster {
			id := barber.ID
			if _, err := j.Reports.AvailableDates(runCtx, &id); err != nil {
				logger.Warn("warm barber availability",
					slog.String("barber", id.String()),
					slog.Any("error", err))
			}
		}
	}

	today := j.clock()
	for _, kind := range []reporting.PeriodKind{reporting.PeriodDay, reporting.PeriodWeek, reporting.PeriodMonth} {
		report, err := j.Reports.Report(runCtx, kind, today, nil)
		if err != nil {
			resultErr = err
			logger.Error("warm report", slog.String("period", string(kind)), slog.Any("error", err))
			return resultErr
		}
		if report.Partial {
			logger.Warn("warmup produced partial report", slog.String("period", string(kind)))
		}
	}

	logger.Info("completed reports warmup", slog.Duration("duration", time.Since(today)))
	return resultErr
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}
