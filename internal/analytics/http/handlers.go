package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/qrdine/qrdine/internal/analytics"
	"github.com/qrdine/qrdine/internal/analytics/export"
	"github.com/qrdine/qrdine/internal/analytics/svg"
	"github.com/qrdine/qrdine/internal/platform/httpx"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultRecentLimit    = 20
	exportActivityLimit   = 100
)

// AnalyticsService defines the report contract used by the handler.
type AnalyticsService interface {
	Dashboard(ctx context.Context, period analytics.Period) (analytics.DashboardSummary, error)
	TimeSeries(ctx context.Context, period analytics.Period) (analytics.TimeSeries, error)
	PeakHours(ctx context.Context) (analytics.HourHistogram, error)
	RecentActivity(ctx context.Context, period analytics.Period, limit int) ([]analytics.ActivityRow, error)
	Invalidate(ctx context.Context) error
}

// PDFService renders dashboard content to PDF bytes.
type PDFService interface {
	RenderDashboard(ctx context.Context, payload export.DashboardPayload) ([]byte, error)
}

// Handler serves the analytics JSON API, exports and charts.
type Handler struct {
	logger   *slog.Logger
	service  AnalyticsService
	pdf      PDFService
	validate *validator.Validate
	csvPool  sync.Pool
	now      func() time.Time
	timeout  time.Duration
}

// NewHandler constructs the analytics HTTP handler. pdf may be nil, which
// disables the PDF export.
func NewHandler(logger *slog.Logger, service AnalyticsService, pdf PDFService) *Handler {
	h := &Handler{
		logger:   logger,
		service:  service,
		pdf:      pdf,
		validate: validator.New(),
		now:      time.Now,
		timeout:  defaultRequestTimeout,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithTimeout bounds each report load.
func (h *Handler) WithTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

type reportQuery struct {
	Period string `validate:"omitempty,oneof=today week month"`
	Limit  int    `validate:"min=1,max=100"`
}

type seriesQuery struct {
	Period string `validate:"oneof=week month"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseReportQuery(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.service.Dashboard(ctx, analytics.Period(q.Period))
	if err != nil {
		h.respondError(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseSeriesQuery(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	series, err := h.service.TimeSeries(ctx, analytics.Period(q.Period))
	if err != nil {
		h.respondError(w, "load time series", err)
		return
	}
	httpx.JSON(w, http.StatusOK, series)
}

func (h *Handler) handlePeakHours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	histogram, err := h.service.PeakHours(ctx)
	if err != nil {
		h.respondError(w, "load peak hours", err)
		return
	}
	httpx.JSON(w, http.StatusOK, histogram)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseReportQuery(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rows, err := h.service.RecentActivity(ctx, analytics.Period(q.Period), q.Limit)
	if err != nil {
		h.respondError(w, "load recent activity", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": q.Period, "rows": rows})
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseReportQuery(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	payload, err := h.loadExport(ctx, analytics.Period(q.Period))
	if err != nil {
		h.respondError(w, "load export", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteDashboardCSV(buf, payload.Summary); err != nil {
		h.respondError(w, "write dashboard csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WritePeakHoursCSV(buf, payload.PeakHours); err != nil {
		h.respondError(w, "write peak hours csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteActivityCSV(buf, payload.Activity); err != nil {
		h.respondError(w, "write activity csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment("csv", q.Period, h.now()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusNotImplemented, "PDF Export Disabled", "no renderer configured")
		return
	}
	q, err := h.parseReportQuery(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	payload, err := h.loadExport(ctx, analytics.Period(q.Period))
	if err != nil {
		h.respondError(w, "load export", err)
		return
	}
	pdfBytes, err := h.pdf.RenderDashboard(ctx, payload)
	if err != nil {
		h.logError("render pdf", err)
		httpx.Problem(w, http.StatusBadGateway, "PDF Rendering Failed", "")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment("pdf", q.Period, h.now()))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) handleRevenueChart(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseSeriesQuery(r)
	if err != nil {
		h.respondError(w, "parse filters", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	series, err := h.service.TimeSeries(ctx, analytics.Period(q.Period))
	if err != nil {
		h.respondError(w, "load time series", err)
		return
	}
	chart, err := svg.RevenueLine(series)
	if err != nil {
		h.respondError(w, "render revenue chart", err)
		return
	}
	writeSVG(w, string(chart))
}

func (h *Handler) handlePeakChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	histogram, err := h.service.PeakHours(ctx)
	if err != nil {
		h.respondError(w, "load peak hours", err)
		return
	}
	chart, err := svg.PeakHourBars(histogram)
	if err != nil {
		h.respondError(w, "render peak chart", err)
		return
	}
	writeSVG(w, string(chart))
}

func (h *Handler) handleBump(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.respondError(w, "bump cache", err)
		return
	}
	if h.logger != nil {
		h.logger.Info("analytics cache bumped", slog.String("remote", r.RemoteAddr))
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadExport gathers every section of an export concurrently. The revenue
// series is only loaded for week and month.
func (h *Handler) loadExport(ctx context.Context, period analytics.Period) (export.DashboardPayload, error) {
	payload := export.DashboardPayload{Period: period}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := h.service.Dashboard(ctx, period)
		if err != nil {
			return err
		}
		payload.Summary = summary
		return nil
	})
	g.Go(func() error {
		histogram, err := h.service.PeakHours(ctx)
		if err != nil {
			return err
		}
		payload.PeakHours = histogram
		return nil
	})
	g.Go(func() error {
		rows, err := h.service.RecentActivity(ctx, period, exportActivityLimit)
		if err != nil {
			return err
		}
		payload.Activity = rows
		return nil
	})
	if period != analytics.PeriodToday {
		g.Go(func() error {
			series, err := h.service.TimeSeries(ctx, period)
			if err != nil {
				return err
			}
			payload.Series = series
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return export.DashboardPayload{}, err
	}
	return payload, nil
}

func (h *Handler) parseReportQuery(r *http.Request) (reportQuery, error) {
	values := r.URL.Query()
	q := reportQuery{
		Period: strings.ToLower(strings.TrimSpace(values.Get("period"))),
		Limit:  defaultRecentLimit,
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return reportQuery{}, validationError{field: "limit", reason: "must be an integer"}
		}
		q.Limit = limit
	}
	if err := h.check(q); err != nil {
		return reportQuery{}, err
	}
	if q.Period == "" {
		q.Period = string(analytics.PeriodToday)
	}
	return q, nil
}

func (h *Handler) parseSeriesQuery(r *http.Request) (seriesQuery, error) {
	q := seriesQuery{Period: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("period")))}
	if q.Period == "" {
		q.Period = string(analytics.PeriodWeek)
	}
	if err := h.check(q); err != nil {
		return seriesQuery{}, err
	}
	return q, nil
}

// check runs struct validation and reports the first failing field.
func (h *Handler) check(v interface{}) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return validationError{field: strings.ToLower(fe.Field()), reason: describe(fe)}
	}
	return err
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var (
		vErr     validationError
		rejected *analytics.RejectedError
	)
	switch {
	case errors.As(err, &vErr):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", vErr.Error())
	case errors.Is(err, analytics.ErrInvalidPeriod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period is not supported by this report")
	case errors.As(err, &rejected):
		h.logWarn(op, err)
		httpx.Problem(w, http.StatusBadGateway, "Order Source Rejected", rejected.Message)
	case errors.Is(err, analytics.ErrSourceRejected):
		h.logWarn(op, err)
		httpx.Problem(w, http.StatusBadGateway, "Order Source Rejected", err.Error())
	case errors.Is(err, analytics.ErrSourceUnavailable):
		h.logError(op, err)
		httpx.Problem(w, http.StatusServiceUnavailable, "Order Source Unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.logError(op, err)
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "report took too long to compute")
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
}

func (h *Handler) logWarn(op string, err error) {
	if h.logger != nil {
		h.logger.Warn(op, slog.Any("error", err))
	}
}

type validationError struct {
	field  string
	reason string
}

func (v validationError) Error() string {
	if v.reason == "" {
		return fmt.Sprintf("invalid %s", v.field)
	}
	return fmt.Sprintf("%s %s", v.field, v.reason)
}

func attachment(ext, period string, now time.Time) string {
	return fmt.Sprintf("attachment; filename=\"qrdine-analytics-%s-%s.%s\"", period, now.Format("20060102"), ext)
}

func writeSVG(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(body))
}

// HandleDashboardForTest exposes the dashboard handler for tests.
func (h *Handler) HandleDashboardForTest(w http.ResponseWriter, r *http.Request) {
	h.handleDashboard(w, r)
}

// HandlePDFForTest exposes the PDF handler for tests.
func (h *Handler) HandlePDFForTest(w http.ResponseWriter, r *http.Request) { h.handlePDF(w, r) }

// HandleCSVForTest exposes the CSV handler for tests.
func (h *Handler) HandleCSVForTest(w http.ResponseWriter, r *http.Request) { h.handleCSV(w, r) }
