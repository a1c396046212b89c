package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/qrdine/qrdine/internal/jobs"
)

// Invalidator drops every cached analytics report.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// CacheBumpJob bumps the analytics cache version from the queue.
type CacheBumpJob struct {
	Cache   Invalidator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheBumpJob wires the cache bump handler.
func NewCacheBumpJob(cache Invalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheBumpJob {
	return &CacheBumpJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes cache bump tasks.
func (j *CacheBumpJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("cache bump: handler not configured")
	}
	var payload CacheBumpPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return errors.Join(err, asynq.SkipRetry)
		}
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskCacheBump)
	if err := j.Cache.Invalidate(ctx); err != nil {
		return tracker.End(err)
	}
	if j.Logger != nil {
		j.Logger.Info("analytics cache bumped", slog.String("job", TaskCacheBump), slog.String("reason", payload.Reason))
	}
	return tracker.End(nil)
}
