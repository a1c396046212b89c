package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/qrdine/qrdine/internal/analytics"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardWarmup recomputes analytics reports into the cache.
	TaskDashboardWarmup = "analytics:dashboard_warmup"
	// TaskCacheBump invalidates every cached analytics report.
	TaskCacheBump = "analytics:cache_bump"

	// WarmupCron is the schedule used by the worker for TaskDashboardWarmup.
	WarmupCron = "*/15 * * * *"
)

// WarmupPayload selects the periods to warm. Empty means all of them.
type WarmupPayload struct {
	Periods []string `json:"periods"`
}

// CacheBumpPayload records why the cache is being invalidated.
type CacheBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

var warmablePeriods = []analytics.Period{analytics.PeriodToday, analytics.PeriodWeek, analytics.PeriodMonth}

// NewDashboardWarmupTask constructs the warmup task for the given periods.
func NewDashboardWarmupTask(periods ...analytics.Period) (*asynq.Task, error) {
	payload := WarmupPayload{Periods: make([]string, 0, len(periods))}
	for _, p := range periods {
		if !p.Valid() {
			return nil, fmt.Errorf("warmup: %w: %q", analytics.ErrInvalidPeriod, p)
		}
		payload.Periods = append(payload.Periods, string(p))
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}

// NewCacheBumpTask constructs a cache invalidation task.
func NewCacheBumpTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheBumpPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheBump, data), nil
}

// decodeWarmupPayload parses and validates the payload, defaulting to every period.
func decodeWarmupPayload(raw []byte) ([]analytics.Period, error) {
	var payload WarmupPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
	}
	if len(payload.Periods) == 0 {
		return warmablePeriods, nil
	}
	periods := make([]analytics.Period, 0, len(payload.Periods))
	for _, raw := range payload.Periods {
		p, err := analytics.ParsePeriod(raw)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}
