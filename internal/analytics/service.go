package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultFetchLimit caps the orders fetched for one report.
const DefaultFetchLimit = 1000

// loadTimeout bounds a shared report load once it is detached from the
// caller that started it.
const loadTimeout = 30 * time.Second

const (
	reportDashboard  = "dashboard"
	reportTimeSeries = "timeseries"
	reportPeakHours  = "peak_hours"
	reportRecent     = "recent"
)

// Service fetches order snapshots, runs the engine and caches the results.
type Service struct {
	source OrderSource
	cache  *Cache
	engine Engine
	limit  int
	now    func() time.Time
	flight singleflight.Group
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithEngine overrides the default engine configuration.
func WithEngine(e Engine) ServiceOption {
	return func(s *Service) { s.engine = e }
}

// WithFetchLimit caps the number of orders requested per report.
func WithFetchLimit(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithClock overrides the clock used for windows and relative labels.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires an OrderSource with a Cache helper. A nil cache computes every report.
func NewService(source OrderSource, cache *Cache, opts ...ServiceOption) *Service {
	s := &Service{
		source: source,
		cache:  cache,
		engine: NewEngine(),
		limit:  DefaultFetchLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine exposes the configured engine.
func (s *Service) Engine() Engine { return s.engine }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.now() }

// Window maps a period onto the fetch range ending at now. The today window
// starts yesterday so the dashboard can compare both days.
func (s *Service) Window(period Period, now time.Time) Window {
	midnight := s.engine.StartOfDay(now)
	var from time.Time
	switch period {
	case PeriodWeek:
		from = midnight.AddDate(0, 0, -6)
	case PeriodMonth:
		from = midnight.AddDate(0, 0, -29)
	default:
		from = midnight.AddDate(0, 0, -1)
	}
	return Window{From: from, To: now, Limit: s.limit}
}

// PeakWindow covers today only.
func (s *Service) PeakWindow(now time.Time) Window {
	return Window{From: s.engine.StartOfDay(now), To: now, Limit: s.limit}
}

// Dashboard returns the day-over-day summary with the period-sized series.
func (s *Service) Dashboard(ctx context.Context, period Period) (DashboardSummary, error) {
	if !period.Valid() {
		return DashboardSummary{}, ErrInvalidPeriod
	}
	now := s.now()
	var summary DashboardSummary
	err := s.cached(ctx, cacheKey(reportDashboard, period, s.engine.StartOfDay(now)), &summary, func(ctx context.Context) (interface{}, error) {
		orders, err := s.fetch(ctx, s.Window(period, now))
		if err != nil {
			return nil, err
		}
		return s.engine.DashboardSummary(orders, period, now), nil
	})
	if err != nil {
		return DashboardSummary{}, err
	}
	summary.stamp(now)
	return summary, nil
}

// TimeSeries returns daily order and revenue series for week or month.
func (s *Service) TimeSeries(ctx context.Context, period Period) (TimeSeries, error) {
	if period != PeriodWeek && period != PeriodMonth {
		return TimeSeries{}, ErrInvalidPeriod
	}
	now := s.now()
	var series TimeSeries
	err := s.cached(ctx, cacheKey(reportTimeSeries, period, s.engine.StartOfDay(now)), &series, func(ctx context.Context) (interface{}, error) {
		orders, err := s.fetch(ctx, s.Window(period, now))
		if err != nil {
			return nil, err
		}
		return s.engine.TimeSeries(orders, period, now)
	})
	if err != nil {
		return TimeSeries{}, err
	}
	return series, nil
}

// PeakHours returns today's service-hour histogram.
func (s *Service) PeakHours(ctx context.Context) (HourHistogram, error) {
	now := s.now()
	var histogram HourHistogram
	err := s.cached(ctx, cacheKey(reportPeakHours, PeriodToday, s.engine.StartOfDay(now)), &histogram, func(ctx context.Context) (interface{}, error) {
		orders, err := s.fetch(ctx, s.PeakWindow(now))
		if err != nil {
			return nil, err
		}
		return s.engine.PeakHours(orders), nil
	})
	if err != nil {
		return HourHistogram{}, err
	}
	return histogram, nil
}

// RecentActivity returns up to limit activity rows for the period window.
func (s *Service) RecentActivity(ctx context.Context, period Period, limit int) ([]ActivityRow, error) {
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}
	now := s.now()
	base := fmt.Sprintf("%s:%d", cacheKey(reportRecent, period, s.engine.StartOfDay(now)), limit)
	var rows []ActivityRow
	err := s.cached(ctx, base, &rows, func(ctx context.Context) (interface{}, error) {
		orders, err := s.fetch(ctx, s.Window(period, now))
		if err != nil {
			return nil, err
		}
		return s.engine.RecentActivity(orders, limit), nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Invalidate bumps the cache version so the next request recomputes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) fetch(ctx context.Context, window Window) ([]Order, error) {
	orders, err := s.source.ListOrders(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// cached resolves the versioned key and collapses concurrent identical loads
// into one source fetch. The shared load does not inherit the first caller's
// cancellation; each caller still stops waiting when its own ctx ends.
func (s *Service) cached(ctx context.Context, base string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, base)
	if err != nil {
		return err
	}
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		var raw json.RawMessage
		if err := s.cache.FetchJSON(loadCtx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}
