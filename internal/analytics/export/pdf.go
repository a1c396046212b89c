package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/qrdine/qrdine/internal/analytics"
)

// HTMLRenderer converts an HTML document into PDF bytes.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// DashboardPayload aggregates analytics data destined for PDF rendering.
type DashboardPayload struct {
	Period    analytics.Period
	Summary   analytics.DashboardSummary
	Series    analytics.TimeSeries
	PeakHours analytics.HourHistogram
	Activity  []analytics.ActivityRow
}

// PDFExporter renders dashboards through an HTML-to-PDF service.
type PDFExporter struct {
	Renderer HTMLRenderer
	Tag      language.Tag
}

// RenderDashboard builds the report HTML and returns the PDF bytes.
func (p *PDFExporter) RenderDashboard(ctx context.Context, payload DashboardPayload) ([]byte, error) {
	if p == nil || p.Renderer == nil {
		return nil, errors.New("pdf exporter not initialised")
	}
	html, err := BuildHTML(payload, p.Tag)
	if err != nil {
		return nil, err
	}
	pdf, err := p.Renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render dashboard pdf: %w", err)
	}
	return pdf, nil
}

// placeholderFuncs lets the template parse; BuildHTML swaps in locale-aware versions.
var placeholderFuncs = template.FuncMap{
	"money": formatFloat,
	"value": func(v analytics.SeriesValue) string { return formatFloat(v.Value) },
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(placeholderFuncs).Parse(`<html><head><meta charset="utf-8"><style>
body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}
th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}section{margin-bottom:24px;}.label{text-align:left;}
</style></head><body>
<h1>Restaurant Analytics ({{.Period}})</h1>
<section><h2>Today</h2><table><tbody>
<tr><td class="label">Orders</td><td>{{.Summary.TodayOrders}}</td><td>{{.Summary.OrdersChange}}</td></tr>
<tr><td class="label">Revenue</td><td>{{money .Summary.TodayRevenue}}</td><td>{{.Summary.RevenueChange}}</td></tr>
<tr><td class="label">Pending</td><td>{{.Summary.PendingOrders}}</td><td></td></tr>
<tr><td class="label">Most ordered</td><td>{{.Summary.PopularDish.Name}}</td><td>{{.Summary.PopularDish.Count}}</td></tr>
<tr><td class="label">Least ordered</td><td>{{.Summary.LeastOrderedDish.Name}}</td><td>{{.Summary.LeastOrderedDish.Count}}</td></tr>
</tbody></table></section>
{{if .Series.Revenue}}<section><h2>Revenue by day</h2><table><thead><tr><th>Day</th><th>Orders</th><th>Revenue</th></tr></thead><tbody>
{{range $i, $p := .Series.Revenue}}<tr><td class="label">{{$p.Label}}</td><td>{{index $.Series.Orders $i | value}}</td><td>{{money $p.Value}}</td></tr>
{{end}}</tbody></table></section>{{end}}
<section><h2>Category sales</h2><table><thead><tr><th>Category</th><th>Revenue</th><th>Share</th></tr></thead><tbody>
{{range .Summary.CategorySales}}<tr><td class="label">{{.Name}}</td><td>{{money .Revenue}}</td><td>{{.Percentage}}%</td></tr>
{{end}}</tbody></table></section>
<section><h2>Peak hours</h2><table><thead><tr><th>Hour</th><th>Orders</th></tr></thead><tbody>
{{range .PeakHours.Buckets}}<tr><td class="label">{{.Label}}</td><td>{{.Orders}}</td></tr>
{{end}}</tbody></table></section>
{{if .Activity}}<section><h2>Recent activity</h2><table><thead><tr><th>Order</th><th>Date</th><th>Table</th><th>Items</th><th>Amount</th><th>Status</th></tr></thead><tbody>
{{range .Activity}}<tr><td class="label">{{.ID}}</td><td>{{.Date}}</td><td>{{.Table}}</td><td class="label">{{.Items}}</td><td>{{money .Amount}}</td><td>{{.Status}}</td></tr>
{{end}}</tbody></table></section>{{end}}
</body></html>`))

// BuildHTML renders the dashboard payload into a standalone HTML document.
// Amounts are grouped per tag; the zero tag means English.
func BuildHTML(payload DashboardPayload, tag language.Tag) (string, error) {
	if tag == language.Und {
		tag = language.English
	}
	printer := message.NewPrinter(tag)
	tmpl, err := dashboardTemplate.Clone()
	if err != nil {
		return "", err
	}
	tmpl.Funcs(template.FuncMap{
		"money": func(v float64) string { return printer.Sprintf("%.2f", v) },
		"value": func(v analytics.SeriesValue) string { return printer.Sprintf("%d", int(v.Value)) },
	})
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", fmt.Errorf("build dashboard html: %w", err)
	}
	return buf.String(), nil
}
