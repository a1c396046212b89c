// Package orders provides the order sources feeding the analytics engine.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/qrdine/qrdine/internal/analytics"
	"github.com/qrdine/qrdine/internal/platform/db"
)

// Page sizes for ListOrders.
const (
	DefaultLimit = 500
	MaxPageSize  = 1000
)

const listOrdersSQL = `SELECT id::text, COALESCE(table_label, ''), COALESCE(customer_name, ''), status, total_price::text, created_at
FROM orders
WHERE created_at >= $1 AND created_at <= $2
ORDER BY created_at DESC
LIMIT $3`

const listItemsSQL = `SELECT order_id::text, name, quantity, unit_price::text
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position`

// Repository reads orders from PostgreSQL.
type Repository struct {
	db db.TxBeginner
}

// NewRepository constructs a repository on a pool or connection.
func NewRepository(conn db.TxBeginner) *Repository {
	return &Repository{db: conn}
}

var _ analytics.OrderSource = (*Repository)(nil)

type orderRow struct {
	id        string
	table     string
	customer  string
	status    string
	total     string
	createdAt time.Time
}

type itemRow struct {
	orderID  string
	name     string
	quantity int
	price    string
}

// ListOrders returns orders created within the window, newest first. Both
// queries run in one read-only snapshot.
func (r *Repository) ListOrders(ctx context.Context, window analytics.Window) ([]analytics.Order, error) {
	limit := clampLimit(window.Limit)
	var out []analytics.Order
	err := db.WithReadTx(ctx, r.db, func(tx pgx.Tx) error {
		orderRows, err := queryOrders(ctx, tx, window, limit)
		if err != nil {
			return err
		}
		if len(orderRows) == 0 {
			return nil
		}
		ids := make([]string, len(orderRows))
		for i, row := range orderRows {
			ids[i] = row.id
		}
		itemRows, err := queryItems(ctx, tx, ids)
		if err != nil {
			return err
		}
		out, err = assemble(orderRows, itemRows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analytics.ErrSourceUnavailable, err)
	}
	return out, nil
}

func queryOrders(ctx context.Context, tx pgx.Tx, window analytics.Window, limit int) ([]orderRow, error) {
	rows, err := tx.Query(ctx, listOrdersSQL, window.From, window.To, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []orderRow
	for rows.Next() {
		var row orderRow
		if err := rows.Scan(&row.id, &row.table, &row.customer, &row.status, &row.total, &row.createdAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func queryItems(ctx context.Context, tx pgx.Tx, ids []string) ([]itemRow, error) {
	rows, err := tx.Query(ctx, listItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var out []itemRow
	for rows.Next() {
		var row itemRow
		if err := rows.Scan(&row.orderID, &row.name, &row.quantity, &row.price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// assemble joins item rows onto their orders, preserving order row sequence.
func assemble(orderRows []orderRow, itemRows []itemRow) ([]analytics.Order, error) {
	orders := make([]analytics.Order, len(orderRows))
	index := make(map[uuid.UUID]int, len(orderRows))
	for i, row := range orderRows {
		id, err := uuid.Parse(row.id)
		if err != nil {
			return nil, fmt.Errorf("order id %q: %w", row.id, err)
		}
		total, err := decimal.NewFromString(row.total)
		if err != nil {
			return nil, fmt.Errorf("order %s total: %w", row.id, err)
		}
		orders[i] = analytics.Order{
			ID:           id.String(),
			CreatedAt:    row.createdAt,
			TotalPrice:   total,
			Status:       row.status,
			TableLabel:   row.table,
			CustomerName: row.customer,
		}
		index[id] = i
	}
	for _, item := range itemRows {
		id, err := uuid.Parse(item.orderID)
		if err != nil {
			return nil, fmt.Errorf("item order id %q: %w", item.orderID, err)
		}
		pos, ok := index[id]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(item.price)
		if err != nil {
			return nil, fmt.Errorf("item %s price: %w", item.name, err)
		}
		orders[pos].Items = append(orders[pos].Items, analytics.LineItem{
			Name:      item.name,
			Quantity:  item.quantity,
			UnitPrice: price,
		})
	}
	return orders, nil
}

func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < 1:
		return 1
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}
