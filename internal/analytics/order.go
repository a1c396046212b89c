package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses the engine treats specially. Anything else counts as in progress.
const (
	StatusPending   = "pending"
	StatusServed    = "served"
	StatusCancelled = "cancelled"
)

const (
	unknownTable = "Unknown"
	guestName    = "Guest"
)

// Order is a read-only snapshot of a restaurant order as returned by an OrderSource.
type Order struct {
	ID           string          `json:"id"`
	CreatedAt    time.Time       `json:"created_at"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Status       string          `json:"status"`
	TableLabel   string          `json:"table_label,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	Items        []LineItem      `json:"items"`
}

// LineItem is one dish or drink on an order.
type LineItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal returns unit price times quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// usable reports whether an order can take part in aggregation. Records with
// no timestamp or a negative total are skipped rather than rejected.
func (o Order) usable() bool {
	return !o.CreatedAt.IsZero() && !o.TotalPrice.IsNegative()
}

func (i LineItem) usable() bool {
	return i.Quantity > 0 && !i.UnitPrice.IsNegative()
}

func (o Order) table() string {
	if label := strings.TrimSpace(o.TableLabel); label != "" {
		return label
	}
	return unknownTable
}

func (o Order) customer() string {
	if name := strings.TrimSpace(o.CustomerName); name != "" {
		return name
	}
	return guestName
}

func (o Order) itemNames() []string {
	names := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		names = append(names, item.Name)
	}
	return names
}
