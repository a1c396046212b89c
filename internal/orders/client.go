package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qrdine/qrdine/internal/analytics"
	"github.com/qrdine/qrdine/internal/auth"
)

const maxErrorBody = 512

// Client lists orders from the ordering service's REST API.
type Client struct {
	baseURL    string
	headers    auth.HeaderProvider
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs an HTTP order source. headers may be nil.
func NewClient(baseURL string, headers auth.HeaderProvider, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers:    headers,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ analytics.OrderSource = (*Client)(nil)

type listResponse struct {
	Success bool          `json:"success"`
	Data    []remoteOrder `json:"data"`
	Message string        `json:"message"`
}

type remoteOrder struct {
	ID           string          `json:"_id"`
	CreatedAt    string          `json:"createdAt"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Status       string          `json:"status"`
	TableNumber  json.RawMessage `json:"tableNumber"`
	Table        *remoteTable    `json:"table"`
	CustomerName string          `json:"customerName"`
	Items        []remoteItem    `json:"items"`
}

type remoteTable struct {
	Label string `json:"label"`
}

type remoteItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ListOrders fetches one page of orders for the window. Transport failures
// and non-2xx statuses wrap analytics.ErrSourceUnavailable; an explicit
// success=false answer becomes an *analytics.RejectedError.
func (c *Client) ListOrders(ctx context.Context, window analytics.Window) ([]analytics.Order, error) {
	req, err := c.newRequest(ctx, window)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analytics.ErrSourceUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", analytics.ErrSourceUnavailable, resp.StatusCode, bytes.TrimSpace(body))
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", analytics.ErrSourceUnavailable, err)
	}
	if !payload.Success {
		return nil, &analytics.RejectedError{Message: payload.Message}
	}

	out := make([]analytics.Order, 0, len(payload.Data))
	for _, remote := range payload.Data {
		out = append(out, c.toOrder(remote))
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, window analytics.Window) (*http.Request, error) {
	query := url.Values{}
	query.Set("startDate", window.From.UTC().Format(time.RFC3339))
	query.Set("endDate", window.To.UTC().Format(time.RFC3339))
	if window.Limit > 0 {
		query.Set("limit", strconv.Itoa(window.Limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/orders?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build orders request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.headers != nil {
		extra, err := c.headers.AuthHeaders(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: auth headers: %v", analytics.ErrSourceUnavailable, err)
		}
		for key, values := range extra {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
	}
	return req, nil
}

func (c *Client) toOrder(remote remoteOrder) analytics.Order {
	order := analytics.Order{
		ID:           remote.ID,
		TotalPrice:   remote.TotalPrice,
		Status:       remote.Status,
		TableLabel:   tableLabel(remote),
		CustomerName: remote.CustomerName,
		Items:        make([]analytics.LineItem, 0, len(remote.Items)),
	}
	if created, err := time.Parse(time.RFC3339Nano, remote.CreatedAt); err == nil {
		order.CreatedAt = created
	} else {
		c.logger.Warn("order with unparseable createdAt", slog.String("order_id", remote.ID), slog.String("created_at", remote.CreatedAt))
	}
	for _, item := range remote.Items {
		order.Items = append(order.Items, analytics.LineItem{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return order
}

// tableLabel accepts tableNumber as a string or number, falling back to the
// populated table reference.
func tableLabel(remote remoteOrder) string {
	if raw := bytes.TrimSpace(remote.TableNumber); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		} else {
			var n json.Number
			if err := json.Unmarshal(raw, &n); err == nil {
				return n.String()
			}
		}
	}
	if remote.Table != nil {
		return strings.TrimSpace(remote.Table.Label)
	}
	return ""
}
