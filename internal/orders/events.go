package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultPrefetch = 16

var errInvalidEvent = errors.New("orders: invalid status event")

// Invalidator drops cached analytics after an order changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// StatusEvent is the notification published when an order changes status.
type StatusEvent struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	OldStatus string `json:"old_status,omitempty"`
	ChangedBy string `json:"changed_by,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (e StatusEvent) validate() error {
	if strings.TrimSpace(e.OrderID) == "" {
		return fmt.Errorf("%w: order_id required", errInvalidEvent)
	}
	if strings.TrimSpace(e.Status) == "" {
		return fmt.Errorf("%w: status required", errInvalidEvent)
	}
	return nil
}

// ConsumerConfig configures the RabbitMQ subscription.
type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// EventConsumer bumps the analytics cache for every order status event
// published on the notifications fanout exchange.
type EventConsumer struct {
	cfg    ConsumerConfig
	cache  Invalidator
	logger *slog.Logger
	tag    string
}

// NewEventConsumer constructs a consumer; call Run to start it.
func NewEventConsumer(cfg ConsumerConfig, cache Invalidator, logger *slog.Logger) *EventConsumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventConsumer{
		cfg:    cfg,
		cache:  cache,
		logger: logger.With(slog.String("component", "order_events")),
		tag:    "qrdine-analytics-" + uuid.NewString(),
	}
}

// Run declares the topology and consumes until ctx is cancelled or the
// broker closes the channel.
func (c *EventConsumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() {
		_ = ch.Close()
	}()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", c.cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", c.cfg.Queue, err)
	}
	if err := ch.QueueBind(c.cfg.Queue, "", c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind %s: %w", c.cfg.Queue, err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.cfg.Queue, c.tag, false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.logger.Info("consuming order events", slog.String("queue", c.cfg.Queue), slog.String("exchange", c.cfg.Exchange))
	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(c.tag, false)
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("amqp: delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks valid events once the cache is bumped. Malformed bodies are
// dropped; bump failures go back on the queue.
func (c *EventConsumer) handle(ctx context.Context, d amqp.Delivery) {
	var event StatusEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.logger.Warn("drop undecodable order event", slog.Any("error", err))
		_ = d.Nack(false, false)
		return
	}
	if err := event.validate(); err != nil {
		c.logger.Warn("drop order event", slog.Any("error", err))
		_ = d.Nack(false, false)
		return
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		c.logger.Error("bump analytics cache", slog.String("order_id", event.OrderID), slog.Any("error", err))
		_ = d.Nack(false, true)
		return
	}
	c.logger.Debug("analytics cache bumped", slog.String("order_id", event.OrderID), slog.String("status", event.Status))
	_ = d.Ack(false)
}
