package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// recentOrderLimit caps the recent orders listed on the dashboard.
const recentOrderLimit = 10

// DishCount is a dish name with the quantity ordered.
type DishCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

var noDish = DishCount{Name: "N/A", Count: 0}

// RecentOrder is a dashboard row for one of today's orders.
type RecentOrder struct {
	ID           string    `json:"id"`
	Table        string    `json:"table"`
	CustomerName string    `json:"customer_name"`
	Items        []string  `json:"items"`
	Total        float64   `json:"total"`
	Status       string    `json:"status"`
	TimeAgo      string    `json:"time_ago"`
	CreatedAt    time.Time `json:"created_at"`
}

// DashboardSummary is the day-over-day dashboard view.
type DashboardSummary struct {
	Period           Period          `json:"period"`
	GeneratedAt      time.Time       `json:"generated_at"`
	TodayOrders      int             `json:"today_orders"`
	YesterdayOrders  int             `json:"yesterday_orders"`
	OrdersChange     string          `json:"orders_change"`
	TodayRevenue     float64         `json:"today_revenue"`
	YesterdayRevenue float64         `json:"yesterday_revenue"`
	RevenueChange    string          `json:"revenue_change"`
	PendingOrders    int             `json:"pending_orders"`
	PopularDish      DishCount       `json:"popular_dish"`
	LeastOrderedDish DishCount       `json:"least_ordered_dish"`
	RecentOrders     []RecentOrder   `json:"recent_orders"`
	RevenueByDay     []SeriesPoint   `json:"revenue_by_day"`
	CategorySales    []CategoryShare `json:"category_sales"`
}

// dishTally accumulates quantities per dish while remembering first-seen order.
type dishTally struct {
	order []DishCount
	index map[string]int
}

func newDishTally() *dishTally {
	return &dishTally{index: make(map[string]int)}
}

func (t *dishTally) add(name string, qty int) {
	if i, ok := t.index[name]; ok {
		t.order[i].Count += qty
		return
	}
	t.index[name] = len(t.order)
	t.order = append(t.order, DishCount{Name: name, Count: qty})
}

// extremes returns the most and least ordered dishes. Ties go to the dish seen first.
func (t *dishTally) extremes() (most, least DishCount) {
	if len(t.order) == 0 {
		return noDish, noDish
	}
	most, least = t.order[0], t.order[0]
	for _, d := range t.order[1:] {
		if d.Count > most.Count {
			most = d
		}
		if d.Count < least.Count {
			least = d
		}
	}
	return most, least
}

// DashboardSummary compares today against yesterday and attaches the
// period-sized revenue series and category breakdown of the whole snapshot.
func (e Engine) DashboardSummary(orders []Order, period Period, now time.Time) DashboardSummary {
	if !period.Valid() {
		period = PeriodToday
	}
	todayStart := e.StartOfDay(now)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	var (
		today                  []Order
		yesterdayCount         int
		pending                int
		todayRev, yesterdayRev = decimal.Zero, decimal.Zero
		dishes                 = newDishTally()
	)
	for _, order := range orders {
		if !order.usable() {
			continue
		}
		switch {
		case !order.CreatedAt.Before(todayStart):
			today = append(today, order)
			todayRev = todayRev.Add(order.TotalPrice)
			if order.Status == StatusPending {
				pending++
			}
			for _, item := range order.Items {
				if item.usable() {
					dishes.add(item.Name, item.Quantity)
				}
			}
		case !order.CreatedAt.Before(yesterdayStart):
			yesterdayCount++
			yesterdayRev = yesterdayRev.Add(order.TotalPrice)
		}
	}

	popular, least := dishes.extremes()
	return DashboardSummary{
		Period:           period,
		GeneratedAt:      now,
		TodayOrders:      len(today),
		YesterdayOrders:  yesterdayCount,
		OrdersChange:     percentChange(decimal.NewFromInt(int64(len(today))), decimal.NewFromInt(int64(yesterdayCount))),
		TodayRevenue:     round2(todayRev),
		YesterdayRevenue: round2(yesterdayRev),
		RevenueChange:    percentChange(todayRev, yesterdayRev),
		PendingOrders:    pending,
		PopularDish:      popular,
		LeastOrderedDish: least,
		RecentOrders:     e.recentOrders(today, now),
		RevenueByDay:     e.DailySeries(orders, period.Days(), now),
		CategorySales:    CategorySales(orders),
	}
}

// recentOrders sorts a private copy newest first and keeps the top rows.
func (e Engine) recentOrders(today []Order, now time.Time) []RecentOrder {
	sorted := make([]Order, len(today))
	copy(sorted, today)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > recentOrderLimit {
		sorted = sorted[:recentOrderLimit]
	}
	rows := make([]RecentOrder, 0, len(sorted))
	for _, order := range sorted {
		rows = append(rows, RecentOrder{
			ID:           order.ID,
			Table:        order.table(),
			CustomerName: order.customer(),
			Items:        order.itemNames(),
			Total:        round2(order.TotalPrice),
			Status:       order.Status,
			TimeAgo:      FormatRelativeTime(order.CreatedAt, now),
			CreatedAt:    order.CreatedAt,
		})
	}
	return rows
}

// stamp recomputes the request-time fields of a possibly cached summary.
func (s *DashboardSummary) stamp(now time.Time) {
	s.GeneratedAt = now
	for i := range s.RecentOrders {
		s.RecentOrders[i].TimeAgo = FormatRelativeTime(s.RecentOrders[i].CreatedAt, now)
	}
}
