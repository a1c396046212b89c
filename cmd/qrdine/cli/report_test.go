package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qrdine/qrdine/internal/analytics"
)

type stubLoader struct {
	err         error
	seriesCalls int
}

func (s *stubLoader) Dashboard(ctx context.Context, period analytics.Period) (analytics.DashboardSummary, error) {
	if s.err != nil {
		return analytics.DashboardSummary{}, s.err
	}
	return analytics.DashboardSummary{Period: period, TodayOrders: 3, RevenueChange: "+0.0%"}, nil
}

func (s *stubLoader) TimeSeries(ctx context.Context, period analytics.Period) (analytics.TimeSeries, error) {
	s.seriesCalls++
	return analytics.TimeSeries{
		Period:  period,
		Orders:  []analytics.SeriesValue{{Label: "Wed", Date: "2025-03-12", Value: 3}},
		Revenue: []analytics.SeriesValue{{Label: "Wed", Date: "2025-03-12", Value: 42}},
	}, nil
}

func (s *stubLoader) PeakHours(ctx context.Context) (analytics.HourHistogram, error) {
	return analytics.HourHistogram{Buckets: []analytics.HourCount{{Hour: 12, Label: "12 PM", Orders: 3}}}, nil
}

func TestReportCommandJSON(t *testing.T) {
	loader := &stubLoader{}
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	code := ReportCommand(context.Background(), loader, ReportOptions{Period: "week", Stdout: stdout, Stderr: stderr})
	require.Zero(t, code)
	require.Empty(t, stderr.String())

	var doc ReportDocument
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	require.Equal(t, analytics.PeriodWeek, doc.Dashboard.Period)
	require.NotNil(t, doc.TimeSeries)
	require.Len(t, doc.PeakHours.Buckets, 1)
}

func TestReportCommandTodayCSV(t *testing.T) {
	loader := &stubLoader{}
	stdout := new(bytes.Buffer)

	code := ReportCommand(context.Background(), loader, ReportOptions{Format: "CSV", Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Zero(t, code)
	require.Zero(t, loader.seriesCalls)
	require.True(t, strings.HasPrefix(stdout.String(), "Metric,Value\n"))
	require.Contains(t, stdout.String(), "Today Orders,3")
	require.Contains(t, stdout.String(), "12 PM,3")
}

func TestReportCommandErrors(t *testing.T) {
	stderr := new(bytes.Buffer)
	code := ReportCommand(context.Background(), &stubLoader{}, ReportOptions{Period: "decade", Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), `invalid period "decade"`)

	stderr.Reset()
	code = ReportCommand(context.Background(), &stubLoader{}, ReportOptions{Format: "xml", Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 2, code)

	stderr.Reset()
	loader := &stubLoader{err: &analytics.RejectedError{Message: "Invalid token"}}
	code = ReportCommand(context.Background(), loader, ReportOptions{Stdout: new(bytes.Buffer), Stderr: stderr})
	require.Equal(t, 1, code)
	require.Equal(t, "report: Invalid token\n", stderr.String())
}
