package analytics

import (
	"fmt"
	"strings"
)

// paymentPlaceholder is shown until orders carry a payment method.
const paymentPlaceholder = "Card"

// Activity statuses shown in the recent activity table.
const (
	ActivityCompleted = "Completed"
	ActivityCancelled = "Cancelled"
	ActivityPending   = "Pending"
)

// ActivityRow is a flat, display-ready projection of one order.
type ActivityRow struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	Table         string  `json:"table"`
	Items         string  `json:"items"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	Status        string  `json:"status"`
}

// RecentActivity projects orders in input order. A non-positive limit keeps all rows.
func (e Engine) RecentActivity(orders []Order, limit int) []ActivityRow {
	rows := make([]ActivityRow, 0, len(orders))
	for _, order := range orders {
		if limit > 0 && len(rows) == limit {
			break
		}
		if !order.usable() {
			continue
		}
		rows = append(rows, ActivityRow{
			ID:            order.ID,
			Date:          order.CreatedAt.In(e.Location()).Format(dateLayout),
			Table:         order.table(),
			Items:         itemSummary(order.Items),
			Amount:        round2(order.TotalPrice),
			PaymentMethod: paymentPlaceholder,
			Status:        activityStatus(order.Status),
		})
	}
	return rows
}

func itemSummary(items []LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

func activityStatus(status string) string {
	switch status {
	case StatusServed:
		return ActivityCompleted
	case StatusCancelled:
		return ActivityCancelled
	default:
		return ActivityPending
	}
}
