package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC) // Wednesday

func testEngine() Engine {
	return NewEngine(WithLocation(time.UTC))
}

func at(dayOffset, hour, minute int) time.Time {
	day := time.Date(2025, 3, 12, hour, minute, 0, 0, time.UTC)
	return day.AddDate(0, 0, dayOffset)
}

func order(id string, created time.Time, total string, items ...LineItem) Order {
	return Order{
		ID:         id,
		CreatedAt:  created,
		TotalPrice: decimal.RequireFromString(total),
		Status:     StatusServed,
		Items:      items,
	}
}

func item(name string, qty int, price string) LineItem {
	return LineItem{Name: name, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodToday, p)

	p, err = ParsePeriod(" Month ")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, p)

	_, err = ParsePeriod("year")
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPercentChange(t *testing.T) {
	cases := []struct {
		current, previous string
		want              string
	}{
		{"5", "0", "+0.0%"},
		{"0", "0", "+0.0%"},
		{"3", "2", "+50.0%"},
		{"1", "2", "-50.0%"},
		{"2", "2", "+0.0%"},
		{"1", "3", "-66.7%"},
	}
	for _, tc := range cases {
		got := percentChange(decimal.RequireFromString(tc.current), decimal.RequireFromString(tc.previous))
		assert.Equal(t, tc.want, got, "%s vs %s", tc.current, tc.previous)
	}
}

func TestDashboardSummaryEmptySnapshot(t *testing.T) {
	summary := testEngine().DashboardSummary(nil, PeriodWeek, testNow)

	assert.Zero(t, summary.TodayOrders)
	assert.Equal(t, "+0.0%", summary.OrdersChange)
	assert.Equal(t, "+0.0%", summary.RevenueChange)
	assert.Equal(t, DishCount{Name: "N/A"}, summary.PopularDish)
	assert.Equal(t, DishCount{Name: "N/A"}, summary.LeastOrderedDish)
	assert.Empty(t, summary.RecentOrders)
	require.Len(t, summary.RevenueByDay, 7)
	require.Len(t, summary.CategorySales, 4)
	for _, share := range summary.CategorySales {
		assert.Zero(t, share.Percentage)
	}
}

func TestDashboardSummaryZeroYesterdayGuard(t *testing.T) {
	orders := []Order{
		order("a", at(0, 10, 0), "20", item("Coffee", 2, "5")),
	}
	summary := testEngine().DashboardSummary(orders, PeriodToday, testNow)

	assert.Equal(t, 1, summary.TodayOrders)
	assert.Equal(t, 0, summary.YesterdayOrders)
	assert.Equal(t, "+0.0%", summary.OrdersChange)
	assert.Equal(t, "+0.0%", summary.RevenueChange)
	assert.Equal(t, 20.0, summary.TodayRevenue)
}

func TestDashboardSummaryComparesDays(t *testing.T) {
	pending := order("p", at(0, 12, 0), "10.005", item("Burger", 3, "3.335"))
	pending.Status = StatusPending
	orders := []Order{
		pending,
		order("b", at(0, 13, 0), "15.10", item("Wine", 1, "8"), item("Burger", 0, "4")),
		order("y1", at(-1, 19, 0), "10"),
		order("y2", at(-1, 20, 0), "10"),
		order("old", at(-3, 20, 0), "99"),
	}
	summary := testEngine().DashboardSummary(orders, PeriodToday, testNow)

	assert.Equal(t, 2, summary.TodayOrders)
	assert.Equal(t, 2, summary.YesterdayOrders)
	assert.Equal(t, "+0.0%", summary.OrdersChange)
	assert.Equal(t, 25.11, summary.TodayRevenue)
	assert.Equal(t, "+25.5%", summary.RevenueChange)
	assert.Equal(t, 1, summary.PendingOrders)
	assert.Equal(t, DishCount{Name: "Burger", Count: 3}, summary.PopularDish)
	assert.Equal(t, DishCount{Name: "Wine", Count: 1}, summary.LeastOrderedDish)
}

func TestDashboardSummaryDishTieBreak(t *testing.T) {
	orders := []Order{
		order("a", at(0, 9, 0), "10", item("Soup", 2, "1"), item("Pie", 2, "1")),
		order("b", at(0, 10, 0), "10", item("Tea", 2, "1")),
	}
	summary := testEngine().DashboardSummary(orders, PeriodToday, testNow)

	assert.Equal(t, "Soup", summary.PopularDish.Name)
	assert.Equal(t, "Soup", summary.LeastOrderedDish.Name)
}

func TestDashboardSummaryRecentOrders(t *testing.T) {
	var orders []Order
	for i := 0; i < 12; i++ {
		orders = append(orders, order(string(rune('a'+i)), at(0, 1+i, 0), "1", item("Rice", 1, "1")))
	}
	original := orders[0]
	summary := testEngine().DashboardSummary(orders, PeriodToday, testNow)

	require.Len(t, summary.RecentOrders, 10)
	first := summary.RecentOrders[0]
	assert.Equal(t, "l", first.ID)
	assert.Equal(t, "Unknown", first.Table)
	assert.Equal(t, "Guest", first.CustomerName)
	assert.Equal(t, []string{"Rice"}, first.Items)
	assert.Equal(t, "3 hours ago", first.TimeAgo)
	assert.Equal(t, "c", summary.RecentOrders[9].ID)
	assert.Equal(t, original, orders[0], "input must not be reordered")
}

func TestDashboardSummarySkipsMalformedRecords(t *testing.T) {
	orders := []Order{
		{ID: "no-time", TotalPrice: decimal.NewFromInt(5)},
		order("negative", at(0, 11, 0), "-3"),
		order("ok", at(0, 11, 0), "4"),
	}
	summary := testEngine().DashboardSummary(orders, PeriodToday, testNow)

	assert.Equal(t, 1, summary.TodayOrders)
	assert.Equal(t, 4.0, summary.TodayRevenue)
}

func TestDashboardSummaryIdempotent(t *testing.T) {
	orders := []Order{
		order("a", at(0, 12, 0), "12", item("Steak", 1, "12")),
		order("b", at(-1, 12, 0), "6", item("Beer", 2, "3")),
	}
	e := testEngine()
	first := e.DashboardSummary(orders, PeriodMonth, testNow)
	second := e.DashboardSummary(orders, PeriodMonth, testNow)
	assert.Equal(t, first, second)
}

func TestTimeSeriesWeekByDate(t *testing.T) {
	orders := []Order{
		order("a", at(0, 12, 0), "10.004"),
		order("b", at(0, 13, 0), "5"),
		order("c", at(-6, 12, 0), "7"),
		order("d", at(-7, 12, 0), "100"),
	}
	ts, err := testEngine().TimeSeries(orders, PeriodWeek, testNow)
	require.NoError(t, err)

	require.Len(t, ts.Revenue, 7)
	require.Len(t, ts.Orders, 7)
	assert.Equal(t, []string{"Thu", "Fri", "Sat", "Sun", "Mon", "Tue", "Wed"}, ts.Labels())
	assert.Equal(t, "2025-03-06", ts.Revenue[0].Date)
	assert.Equal(t, 7.0, ts.Revenue[0].Value)
	assert.Equal(t, 15.0, ts.Revenue[6].Value)
	assert.Equal(t, 2.0, ts.Orders[6].Value)
	assert.Zero(t, ts.Orders[3].Value)
}

func TestTimeSeriesMonthHasDistinctBuckets(t *testing.T) {
	ts, err := testEngine().TimeSeries(nil, PeriodMonth, testNow)
	require.NoError(t, err)

	require.Len(t, ts.Revenue, 30)
	assert.Equal(t, "Feb 11", ts.Revenue[0].Label)
	assert.Equal(t, "Mar 12", ts.Revenue[29].Label)
}

func TestTimeSeriesRejectsToday(t *testing.T) {
	_, err := testEngine().TimeSeries(nil, PeriodToday, testNow)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestWeekdayBucketsCollapseMonth(t *testing.T) {
	e := NewEngine(WithLocation(time.UTC), WithWeekdayBuckets(true))
	orders := []Order{
		order("a", at(0, 12, 0), "10"),
		order("b", at(-7, 12, 0), "5"),
		order("c", at(-40, 12, 0), "1"),
	}
	points := e.DailySeries(orders, 30, testNow)

	require.Len(t, points, 7)
	// Feb 11 2025 was a Tuesday, so Tuesday is seeded first.
	assert.Equal(t, "Tue", points[0].Label)
	var wed SeriesPoint
	for _, p := range points {
		if p.Label == "Wed" {
			wed = p
		}
	}
	assert.Equal(t, 2, wed.Orders)
	assert.Equal(t, 15.0, wed.Revenue)
	assert.Equal(t, "2025-03-12", wed.Date)
}

func TestClassify(t *testing.T) {
	cases := map[string]string{
		"Ribeye Steak":      CategoryMains,
		"Iced TEA":          CategoryDrinks,
		"House Red Wine":    CategoryDrinks,
		"Tomato Soup":       CategoryStarters,
		"Chocolate Cake":    CategoryDesserts,
		"Chef's Surprise":   CategoryMains,
		"Sparkling Water":   CategoryDrinks,
		"Garlic Bread":      CategoryStarters,
		"Vanilla Ice Cream": CategoryDesserts,
	}
	for name, want := range cases {
		assert.Equal(t, want, Classify(name), name)
	}
}

func TestCategorySalesSharesAndOrder(t *testing.T) {
	orders := []Order{
		order("a", at(0, 12, 0), "0",
			item("Burger", 2, "10"),
			item("Coffee", 1, "5"),
			item("Salad", 1, "2.5"),
			item("Brownie", 1, "2.5"),
		),
		order("b", at(-20, 12, 0), "0", item("Mystery", 1, "10")),
	}
	shares := CategorySales(orders)

	require.Len(t, shares, 4)
	assert.Equal(t, Categories(), []string{shares[0].Name, shares[1].Name, shares[2].Name, shares[3].Name})
	assert.Equal(t, 30.0, shares[0].Revenue)
	assert.Equal(t, 75, shares[0].Percentage)
	assert.Equal(t, 13, shares[1].Percentage)
	assert.Equal(t, 6, shares[2].Percentage)
	assert.Equal(t, 6, shares[3].Percentage)

	total := 0.0
	for _, s := range shares {
		total += s.Revenue
	}
	assert.InDelta(t, 40.0, total, 0.001)
}

func TestPeakHoursWhitelist(t *testing.T) {
	orders := []Order{
		order("a", at(0, 11, 5), "1"),
		order("b", at(0, 11, 59), "1"),
		order("c", at(0, 15, 0), "1"),
		order("d", at(0, 21, 30), "1"),
		order("e", at(0, 22, 0), "1"),
	}
	histogram := testEngine().PeakHours(orders)

	require.Len(t, histogram.Buckets, 8)
	labels := make([]string, 0, 8)
	for _, b := range histogram.Buckets {
		labels = append(labels, b.Label)
	}
	assert.Equal(t, []string{"11 AM", "12 PM", "1 PM", "2 PM", "6 PM", "7 PM", "8 PM", "9 PM"}, labels)
	assert.Equal(t, 2, histogram.Buckets[0].Orders)
	assert.Equal(t, 1, histogram.Buckets[7].Orders)
	assert.Equal(t, 3, histogram.Total())
}

func TestPeakHoursUsesEngineLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	e := NewEngine(WithLocation(loc))
	histogram := e.PeakHours([]Order{order("a", time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC), "1")})
	assert.Equal(t, 1, histogram.Buckets[1].Orders)
}

func TestFormatRelativeTime(t *testing.T) {
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{90 * time.Second, "1 min ago"},
		{2 * time.Minute, "2 mins ago"},
		{59*time.Minute + 59*time.Second, "59 mins ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{50 * time.Hour, "2 days ago"},
		{-time.Hour, "Just now"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatRelativeTime(testNow.Add(-tc.ago), testNow), tc.ago.String())
	}
	assert.Equal(t, "Just now", FormatRelativeTime(time.Time{}, testNow))
}

func TestRecentActivityProjection(t *testing.T) {
	cancelled := order("c", at(0, 9, 0), "3", item("Soda", 1, "3"))
	cancelled.Status = StatusCancelled
	cooking := order("k", at(0, 8, 0), "4")
	cooking.Status = "preparing"
	served := order("s", at(-1, 23, 0), "12.345", item("Burger", 2, "5"), item("Wine", 1, "2.345"))
	served.TableLabel = "T4"

	rows := testEngine().RecentActivity([]Order{served, cancelled, cooking}, 0)

	require.Len(t, rows, 3)
	assert.Equal(t, ActivityRow{
		ID:            "s",
		Date:          "2025-03-11",
		Table:         "T4",
		Items:         "Burger x2, Wine x1",
		Amount:        12.35,
		PaymentMethod: "Card",
		Status:        ActivityCompleted,
	}, rows[0])
	assert.Equal(t, ActivityCancelled, rows[1].Status)
	assert.Equal(t, "Unknown", rows[1].Table)
	assert.Equal(t, ActivityPending, rows[2].Status)
	assert.Equal(t, "", rows[2].Items)

	limited := testEngine().RecentActivity([]Order{served, cancelled, cooking}, 2)
	assert.Len(t, limited, 2)
}

func TestStatusMatchingIsExact(t *testing.T) {
	upper := order("u", at(0, 12, 0), "10")
	upper.Status = "Pending"
	served := order("s", at(0, 12, 5), "10")
	served.Status = "Served"
	orders := []Order{upper, served}

	summary := testEngine().DashboardSummary(orders, PeriodToday, testNow)
	assert.Equal(t, 0, summary.PendingOrders)

	rows := testEngine().RecentActivity(orders, 0)
	assert.Equal(t, "Pending", rows[1].Status)
}
