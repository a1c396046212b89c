package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/qrdine/qrdine/internal/analytics"
	"github.com/qrdine/qrdine/internal/analytics/export"
)

// Output formats for the report command.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ReportLoader is the subset of analytics.Service used by the report command.
type ReportLoader interface {
	Dashboard(ctx context.Context, period analytics.Period) (analytics.DashboardSummary, error)
	TimeSeries(ctx context.Context, period analytics.Period) (analytics.TimeSeries, error)
	PeakHours(ctx context.Context) (analytics.HourHistogram, error)
}

// ReportOptions defines available flags for the report command.
type ReportOptions struct {
	Period string
	Format string
	Stdout io.Writer
	Stderr io.Writer
}

// ReportDocument is the JSON shape printed by the report command.
type ReportDocument struct {
	Dashboard  analytics.DashboardSummary `json:"dashboard"`
	TimeSeries *analytics.TimeSeries      `json:"timeseries,omitempty"`
	PeakHours  analytics.HourHistogram    `json:"peak_hours"`
}

// ReportCommand computes the reports for a period and prints them. It
// returns the process exit code.
func ReportCommand(ctx context.Context, loader ReportLoader, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	period, err := analytics.ParsePeriod(opts.Period)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: invalid period %q (expected today, week or month)\n", opts.Period)
		return 2
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		_, _ = fmt.Fprintf(opts.Stderr, "report: unsupported format %q\n", opts.Format)
		return 2
	}

	doc, err := loadReport(ctx, loader, period)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}

	if format == FormatJSON {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	if err := writeReportCSV(opts.Stdout, doc); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: write csv: %v\n", err)
		return 1
	}
	return 0
}

func loadReport(ctx context.Context, loader ReportLoader, period analytics.Period) (ReportDocument, error) {
	var doc ReportDocument
	summary, err := loader.Dashboard(ctx, period)
	if err != nil {
		return doc, err
	}
	doc.Dashboard = summary
	if period != analytics.PeriodToday {
		series, err := loader.TimeSeries(ctx, period)
		if err != nil {
			return doc, err
		}
		doc.TimeSeries = &series
	}
	peak, err := loader.PeakHours(ctx)
	if err != nil {
		return doc, err
	}
	doc.PeakHours = peak
	return doc, nil
}

func writeReportCSV(w io.Writer, doc ReportDocument) error {
	if err := export.WriteDashboardCSV(w, doc.Dashboard); err != nil {
		return err
	}
	if doc.TimeSeries != nil {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := export.WriteTimeSeriesCSV(w, *doc.TimeSeries); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return export.WritePeakHoursCSV(w, doc.PeakHours)
}
