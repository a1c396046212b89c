package svg

import (
	"html/template"
	"math"

	"github.com/qrdine/qrdine/internal/analytics"
)

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Opts
	Color string
}

// Bars renders one bar per label.
func Bars(width, height int, values []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", errNoData
	}
	if len(values) != len(labels) {
		return "", errLabelCount
	}
	f, err := newFrame(width, height, values, opts.Opts, "bar")
	if err != nil {
		return "", err
	}
	color := fallback(opts.Color, "#0ea5e9")
	slot := f.plotW / float64(len(values))
	barWidth := slot * 0.6

	for i, v := range values {
		x := f.pad + float64(i)*slot
		top, bottom := f.y(math.Max(v, 0)), f.y(math.Min(v, 0))
		f.printf(`<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s: %s"></rect>`,
			x+(slot-barWidth)/2, top, barWidth, bottom-top, color,
			template.HTMLEscapeString(labels[i]), formatTick(v))
		f.xLabel(x+slot/2, labels[i])
	}
	return f.close(), nil
}

// PeakHourBars charts the service-hour histogram.
func PeakHourBars(h analytics.HourHistogram) (template.HTML, error) {
	values := make([]float64, 0, len(h.Buckets))
	labels := make([]string, 0, len(h.Buckets))
	for _, b := range h.Buckets {
		values = append(values, float64(b.Orders))
		labels = append(labels, b.Label)
	}
	return Bars(DefaultWidth, DefaultHeight, values, labels, BarOpts{
		Opts:  Opts{Title: "Peak hours", Description: "Orders per service hour today"},
		Color: "#f97316",
	})
}
