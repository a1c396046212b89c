package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/qrdine/qrdine/internal/platform/httpx"
)

// MountRoutes registers the analytics endpoints under /analytics.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, retry later")
		}),
	)

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/timeseries", h.handleTimeSeries)
		r.Get("/peak-hours", h.handlePeakHours)
		r.Get("/recent", h.handleRecent)
		r.Get("/charts/revenue.svg", h.handleRevenueChart)
		r.Get("/charts/peak-hours.svg", h.handlePeakChart)
		r.Post("/cache/bump", h.handleBump)
		r.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleCSV)
			gr.Get("/export.pdf", h.handlePDF)
		})
	})
}

// rateLimitKey buckets exports per bearer token when present, else per IP.
func rateLimitKey(r *http.Request) (string, error) {
	if token := r.Header.Get("Authorization"); token != "" {
		return "token:" + token, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
