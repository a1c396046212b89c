package svg

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/qrdine/qrdine/internal/analytics"
)

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Opts
	StrokeColor string
	FillColor   string
	ShowDots    bool
}

// Line renders a line chart for the given series and labels.
func Line(width, height int, series []float64, labels []string, opts LineOpts) (template.HTML, error) {
	if len(series) == 0 {
		return "", errNoData
	}
	if len(series) != len(labels) {
		return "", errLabelCount
	}
	f, err := newFrame(width, height, series, opts.Opts, "line")
	if err != nil {
		return "", err
	}
	stroke := fallback(opts.StrokeColor, "#2563eb")
	fill := fallback(opts.FillColor, "rgba(37,99,235,0.12)")

	xs := make([]float64, len(series))
	for i := range series {
		if len(series) == 1 {
			xs[i] = f.pad + f.plotW/2
			continue
		}
		xs[i] = f.pad + float64(i)*f.plotW/float64(len(series)-1)
	}

	var path strings.Builder
	for i, v := range series {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, xs[i], f.y(v))
	}
	line := strings.TrimSpace(path.String())

	area := fmt.Sprintf("%s L%.2f %.2f L%.2f %.2f Z", line, xs[len(xs)-1], f.y(0), xs[0], f.y(0))
	f.printf(`<path d="%s" fill="%s" stroke="none" aria-hidden="true"></path>`, area, fill)
	f.printf(`<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, line, stroke)
	if opts.ShowDots {
		for i, v := range series {
			f.printf(`<circle cx="%.2f" cy="%.2f" r="3" fill="%s"></circle>`, xs[i], f.y(v), stroke)
		}
	}
	// Month charts thin their labels to keep them legible.
	every := 1
	if len(labels) > 10 {
		every = len(labels) / 6
	}
	for i, label := range labels {
		if i%every == 0 || i == len(labels)-1 {
			f.xLabel(xs[i], label)
		}
	}
	return f.close(), nil
}

// RevenueLine charts the revenue series of a time series report.
func RevenueLine(ts analytics.TimeSeries) (template.HTML, error) {
	values := make([]float64, 0, len(ts.Revenue))
	for _, v := range ts.Revenue {
		values = append(values, v.Value)
	}
	return Line(DefaultWidth, DefaultHeight, values, ts.Labels(), LineOpts{
		Opts: Opts{
			Title:       "Revenue",
			Description: fmt.Sprintf("Daily revenue for the last %d days", len(values)),
		},
		ShowDots: len(values) <= 10,
	})
}
