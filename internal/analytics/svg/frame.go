package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Defaults for the analytics charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 28.0
	DefaultTicks   = 5
)

const (
	defaultAxisColor = "#475569"
	defaultGridColor = "#cbd5f5"
)

// Opts are shared by every renderer.
type Opts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

var (
	errNoData     = errors.New("svg: series required")
	errLabelCount = errors.New("svg: labels length must match series")
	errViewport   = errors.New("svg: viewport too small")
)

// frame holds the plotting area and value scale shared by a chart's elements.
type frame struct {
	b      strings.Builder
	width  int
	height int
	pad    float64
	plotW  float64
	plotH  float64
	min    float64
	max    float64
	ticks  int
	axis   string
	grid   string
	kind   string
}

func newFrame(width, height int, values []float64, opts Opts, kind string) (*frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	f := &frame{
		width:  width,
		height: height,
		pad:    opts.Padding,
		ticks:  opts.TickCount,
		axis:   fallback(opts.AxisColor, defaultAxisColor),
		grid:   fallback(opts.GridColor, defaultGridColor),
		kind:   kind,
	}
	if f.pad <= 0 {
		f.pad = DefaultPadding
	}
	if f.ticks <= 0 {
		f.ticks = DefaultTicks
	}
	f.plotW = float64(width) - 2*f.pad
	f.plotH = float64(height) - 2*f.pad
	if f.plotW <= 0 || f.plotH <= 0 {
		return nil, errViewport
	}
	f.min, f.max = 0, 0
	for _, v := range values {
		f.min = math.Min(f.min, v)
		f.max = math.Max(f.max, v)
	}
	if math.Abs(f.max-f.min) < 1e-9 {
		f.max = f.min + 1
	}
	f.open(opts)
	return f, nil
}

// y maps a value onto the vertical pixel coordinate.
func (f *frame) y(v float64) float64 {
	return f.pad + f.plotH - (v-f.min)/(f.max-f.min)*f.plotH
}

func (f *frame) bottom() float64 { return f.pad + f.plotH }

func (f *frame) printf(format string, args ...interface{}) {
	fmt.Fprintf(&f.b, format, args...)
}

func (f *frame) open(opts Opts) {
	titleID := makeID(opts.Title, f.kind+"-title")
	descID := makeID(opts.Title, f.kind+"-desc")
	f.printf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, f.width, f.height, titleID, descID)
	f.printf(`<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(opts.Title, "Chart")))
	f.printf(`<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(fallback(opts.Description, "Order analytics")))

	for i := 0; i <= f.ticks; i++ {
		ratio := float64(i) / float64(f.ticks)
		value := f.min + (f.max-f.min)*ratio
		y := f.y(value)
		f.printf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, f.pad, y, f.pad+f.plotW, y, f.grid)
		f.printf(`<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, f.pad-6, y+4, f.axis, formatTick(value))
	}
	f.printf(`<g stroke="%s" aria-label="Axes">`, f.axis)
	f.printf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, f.pad, f.pad, f.pad, f.bottom())
	f.printf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, f.pad, f.y(0), f.pad+f.plotW, f.y(0))
	f.b.WriteString("</g>")
}

// xLabel writes a category label centred on x under the plot.
func (f *frame) xLabel(x float64, label string) {
	f.printf(`<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x, f.bottom()+14, f.axis, template.HTMLEscapeString(label))
}

func (f *frame) close() template.HTML {
	f.b.WriteString("</svg>")
	return template.HTML(f.b.String())
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
