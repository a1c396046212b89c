package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/qrdine/qrdine/internal/analytics"
	jobmetrics "github.com/qrdine/qrdine/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const warmupReportTimeout = 20 * time.Second

// ReportWarmer loads the cacheable analytics reports.
type ReportWarmer interface {
	Dashboard(ctx context.Context, period analytics.Period) (analytics.DashboardSummary, error)
	TimeSeries(ctx context.Context, period analytics.Period) (analytics.TimeSeries, error)
	PeakHours(ctx context.Context) (analytics.HourHistogram, error)
}

// DashboardWarmupJob pre-populates the analytics cache so the first dashboard
// load after an invalidation does not hit the order source.
type DashboardWarmupJob struct {
	Analytics ReportWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(warmer ReportWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Analytics: warmer,
		Logger:    logger,
		Metrics:   metrics,
		clock:     time.Now,
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Analytics == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	periods, err := decodeWarmupPayload(t.Payload())
	if err != nil {
		j.logger().Warn("discarding warmup task", slog.Any("error", err))
		return errors.Join(err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskDashboardWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	logger.Info("starting dashboard warmup", slog.Int("periods", len(periods)))

	warmed := 0
	for _, period := range periods {
		n, err := j.warmPeriod(ctx, period)
		warmed += n
		if err != nil {
			logger.Error("warm period", slog.String("period", string(period)), slog.Any("error", err))
			return err
		}
	}
	if err := j.warm(ctx, "peak_hours", "today", func(ctx context.Context) error {
		_, err := j.Analytics.PeakHours(ctx)
		return err
	}); err != nil {
		logger.Error("warm peak hours", slog.Any("error", err))
		return err
	}
	warmed++

	logger.Info("completed dashboard warmup", slog.Int("reports", warmed), slog.Duration("duration", j.now().Sub(start)))
	return nil
}

func (j *DashboardWarmupJob) warmPeriod(ctx context.Context, period analytics.Period) (int, error) {
	if err := j.warm(ctx, "dashboard", string(period), func(ctx context.Context) error {
		_, err := j.Analytics.Dashboard(ctx, period)
		return err
	}); err != nil {
		return 0, err
	}
	if period == analytics.PeriodToday {
		return 1, nil
	}
	if err := j.warm(ctx, "timeseries", string(period), func(ctx context.Context) error {
		_, err := j.Analytics.TimeSeries(ctx, period)
		return err
	}); err != nil {
		return 1, err
	}
	return 2, nil
}

func (j *DashboardWarmupJob) warm(ctx context.Context, report, period string, load func(context.Context) error) error {
	reportCtx, cancel := context.WithTimeout(ctx, warmupReportTimeout)
	defer cancel()
	if err := load(reportCtx); err != nil {
		return err
	}
	j.metrics().AddWarmed(report, period)
	return nil
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
