package analytics

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period selects the reporting lookback window.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ErrInvalidPeriod is returned when a period is unknown or not supported by a report.
var ErrInvalidPeriod = errors.New("analytics: invalid period")

// ParsePeriod normalises user input into a Period. Empty input yields today.
func ParsePeriod(raw string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PeriodToday:
		return PeriodToday, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	}
	return "", ErrInvalidPeriod
}

// Days returns the number of daily buckets a period covers.
func (p Period) Days() int {
	switch p {
	case PeriodWeek:
		return 7
	case PeriodMonth:
		return 30
	default:
		return 1
	}
}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	return p == PeriodToday || p == PeriodWeek || p == PeriodMonth
}

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Engine derives report views from order snapshots. It holds configuration
// only, so a single value can be shared between goroutines.
type Engine struct {
	loc            *time.Location
	weekdayBuckets bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the time zone used for calendar-day and hour boundaries.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithWeekdayBuckets keys daily series by weekday name instead of calendar
// date. Windows longer than a week then collapse into seven buckets.
func WithWeekdayBuckets(enabled bool) Option {
	return func(e *Engine) { e.weekdayBuckets = enabled }
}

// NewEngine builds an Engine using the local time zone unless overridden.
func NewEngine(opts ...Option) Engine {
	e := Engine{loc: time.Local}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Location returns the engine's calendar time zone.
func (e Engine) Location() *time.Location {
	if e.loc == nil {
		return time.Local
	}
	return e.loc
}

// StartOfDay returns local midnight of the day containing t.
func (e Engine) StartOfDay(t time.Time) time.Time {
	local := t.In(e.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.Location())
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// percentChange formats (current-previous)/previous as a signed one-decimal
// percentage. A zero baseline yields "+0.0%".
func percentChange(current, previous decimal.Decimal) string {
	change := decimal.Zero
	if !previous.IsZero() {
		change = current.Sub(previous).Div(previous).Mul(hundred)
	}
	change = change.Round(1)
	if change.IsNegative() {
		return change.StringFixed(1) + "%"
	}
	return "+" + change.StringFixed(1) + "%"
}
