package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/pharmapos/pharmapos/internal/reports"
)

// ReportsWarmupJob precomputes the day's dashboard so the first request of
// the morning hits a warm cache.
type ReportsWarmupJob struct {
	Service *reports.Service
	Logger  *slog.Logger
}

// NewReportsWarmupJob initialises the warmup handler.
func NewReportsWarmupJob(service *reports.Service, logger *slog.Logger) *ReportsWarmupJob {
	return &ReportsWarmupJob{Service: service, Logger: logger}
}

// Handle executes one warmup.
func (j *ReportsWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("reports warmup: handler not configured")
	}
	if err := j.Service.Warmup(ctx); err != nil {
		return err
	}
	j.Logger.Info("dashboard cache warmed")
	return nil
}
