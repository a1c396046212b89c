package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrdine/qrdine/internal/analytics"
	jobmetrics "github.com/qrdine/qrdine/internal/jobs"
)

type fakeWarmer struct {
	mu         sync.Mutex
	dashboards []analytics.Period
	series     []analytics.Period
	peaks      int
	failOn     analytics.Period
}

func (f *fakeWarmer) Dashboard(ctx context.Context, period analytics.Period) (analytics.DashboardSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if period == f.failOn {
		return analytics.DashboardSummary{}, analytics.ErrSourceUnavailable
	}
	f.dashboards = append(f.dashboards, period)
	return analytics.DashboardSummary{Period: period}, nil
}

func (f *fakeWarmer) TimeSeries(ctx context.Context, period analytics.Period) (analytics.TimeSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.series = append(f.series, period)
	return analytics.TimeSeries{Period: period}, nil
}

func (f *fakeWarmer) PeakHours(ctx context.Context) (analytics.HourHistogram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.peaks++
	return analytics.HourHistogram{}, nil
}

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestWarmupTaskPayload(t *testing.T) {
	task, err := NewDashboardWarmupTask(analytics.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, TaskDashboardWarmup, task.Type())

	var payload WarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, []string{"week"}, payload.Periods)

	_, err = NewDashboardWarmupTask(analytics.Period("year"))
	require.ErrorIs(t, err, analytics.ErrInvalidPeriod)
}

func TestDecodeWarmupPayloadDefaultsToAllPeriods(t *testing.T) {
	periods, err := decodeWarmupPayload([]byte(`{"periods":[]}`))
	require.NoError(t, err)
	assert.Equal(t, []analytics.Period{analytics.PeriodToday, analytics.PeriodWeek, analytics.PeriodMonth}, periods)

	periods, err = decodeWarmupPayload(nil)
	require.NoError(t, err)
	assert.Len(t, periods, 3)

	_, err = decodeWarmupPayload([]byte(`{"periods":["fortnight"]}`))
	require.ErrorIs(t, err, analytics.ErrInvalidPeriod)
}

func TestDashboardWarmupWarmsEveryReport(t *testing.T) {
	warmer := &fakeWarmer{}
	job := NewDashboardWarmupJob(warmer, nil, testMetrics())

	task, err := NewDashboardWarmupTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, []analytics.Period{analytics.PeriodToday, analytics.PeriodWeek, analytics.PeriodMonth}, warmer.dashboards)
	assert.Equal(t, []analytics.Period{analytics.PeriodWeek, analytics.PeriodMonth}, warmer.series)
	assert.Equal(t, 1, warmer.peaks)
}

func TestDashboardWarmupSkipsRetryOnBadPayload(t *testing.T) {
	job := NewDashboardWarmupJob(&fakeWarmer{}, nil, testMetrics())

	err := job.Handle(context.Background(), asynq.NewTask(TaskDashboardWarmup, []byte(`{"periods":`)))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDashboardWarmupPropagatesSourceErrors(t *testing.T) {
	warmer := &fakeWarmer{failOn: analytics.PeriodWeek}
	job := NewDashboardWarmupJob(warmer, nil, testMetrics())

	task, err := NewDashboardWarmupTask(analytics.PeriodToday, analytics.PeriodWeek)
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, analytics.ErrSourceUnavailable)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, []analytics.Period{analytics.PeriodToday}, warmer.dashboards)
	assert.Zero(t, warmer.peaks)
}

func TestCacheBumpJob(t *testing.T) {
	inv := &fakeInvalidator{}
	job := NewCacheBumpJob(inv, nil, testMetrics())

	task, err := NewCacheBumpTask("manual")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, inv.calls)

	inv.err = errors.New("redis down")
	require.EqualError(t, job.Handle(context.Background(), task), "redis down")

	err = job.Handle(context.Background(), asynq.NewTask(TaskCacheBump, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestJobsHealthHandler(t *testing.T) {
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Retry: 1}}, nil)

	rr := httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var stats QueueStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, QueueStats{Queue: QueueDefault, Pending: 3, Retry: 1}, stats)

	h = NewHandler(fakeInspector{err: errors.New("redis down")}, nil)
	rr = httptest.NewRecorder()
	h.health(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
