package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeriesPoint is one daily bucket of order volume and revenue.
type SeriesPoint struct {
	Label   string  `json:"label"`
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// SeriesValue is a single labelled value of a chart series.
type SeriesValue struct {
	Label string  `json:"label"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TimeSeries holds parallel order and revenue series sharing bucket labels.
type TimeSeries struct {
	Period  Period        `json:"period"`
	Orders  []SeriesValue `json:"order_series"`
	Revenue []SeriesValue `json:"revenue_series"`
}

// Labels returns the bucket labels in chronological order.
func (ts TimeSeries) Labels() []string {
	labels := make([]string, 0, len(ts.Revenue))
	for _, v := range ts.Revenue {
		labels = append(labels, v.Label)
	}
	return labels
}

// TimeSeries buckets the snapshot into daily order and revenue series for a
// week or month window ending today.
func (e Engine) TimeSeries(orders []Order, period Period, now time.Time) (TimeSeries, error) {
	if period != PeriodWeek && period != PeriodMonth {
		return TimeSeries{}, ErrInvalidPeriod
	}
	points := e.DailySeries(orders, period.Days(), now)
	ts := TimeSeries{
		Period:  period,
		Orders:  make([]SeriesValue, 0, len(points)),
		Revenue: make([]SeriesValue, 0, len(points)),
	}
	for _, p := range points {
		ts.Orders = append(ts.Orders, SeriesValue{Label: p.Label, Date: p.Date, Value: float64(p.Orders)})
		ts.Revenue = append(ts.Revenue, SeriesValue{Label: p.Label, Date: p.Date, Value: p.Revenue})
	}
	return ts, nil
}

// DailySeries returns days zero-seeded buckets, oldest first, ending with the
// day containing now.
func (e Engine) DailySeries(orders []Order, days int, now time.Time) []SeriesPoint {
	if days <= 0 {
		days = 1
	}
	if e.weekdayBuckets {
		return e.weekdaySeries(orders, days, now)
	}

	today := e.StartOfDay(now)
	points := make([]SeriesPoint, days)
	revenue := make([]decimal.Decimal, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1)
		key := day.Format(dateLayout)
		points[i] = SeriesPoint{Label: bucketLabel(day, days), Date: key}
		index[key] = i
	}

	for _, order := range orders {
		if !order.usable() {
			continue
		}
		i, ok := index[order.CreatedAt.In(e.Location()).Format(dateLayout)]
		if !ok {
			continue
		}
		points[i].Orders++
		revenue[i] = revenue[i].Add(order.TotalPrice)
	}
	for i := range points {
		points[i].Revenue = round2(revenue[i])
	}
	return points
}

// weekdaySeries keys buckets by weekday short name. Seeding walks the window
// oldest first and keeps the first position of each name, so windows longer
// than seven days collapse, and every order whose weekday was seeded lands in
// that bucket regardless of its age.
func (e Engine) weekdaySeries(orders []Order, days int, now time.Time) []SeriesPoint {
	today := e.StartOfDay(now)
	points := make([]SeriesPoint, 0, 7)
	index := make(map[string]int, 7)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		label := day.Format("Mon")
		if pos, ok := index[label]; ok {
			points[pos].Date = day.Format(dateLayout)
			continue
		}
		index[label] = len(points)
		points = append(points, SeriesPoint{Label: label, Date: day.Format(dateLayout)})
	}

	revenue := make([]decimal.Decimal, len(points))
	for _, order := range orders {
		if !order.usable() {
			continue
		}
		i, ok := index[order.CreatedAt.In(e.Location()).Format("Mon")]
		if !ok {
			continue
		}
		points[i].Orders++
		revenue[i] = revenue[i].Add(order.TotalPrice)
	}
	for i := range points {
		points[i].Revenue = round2(revenue[i])
	}
	return points
}

func bucketLabel(day time.Time, days int) string {
	if days > 7 {
		return day.Format("Jan 2")
	}
	return day.Format("Mon")
}
