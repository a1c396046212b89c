package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/qrdine/qrdine/internal/analytics"
	"github.com/qrdine/qrdine/internal/auth"
	"github.com/qrdine/qrdine/internal/orders"
	"github.com/qrdine/qrdine/internal/platform/db"
)

// OpenOrderSource builds the configured analytics.OrderSource. The returned
// close function releases any pool it opened.
func OpenOrderSource(ctx context.Context, cfg *Config, logger *slog.Logger) (analytics.OrderSource, func(), error) {
	switch cfg.OrderSource {
	case SourceHTTP:
		client := orders.NewClient(cfg.OrderAPIURL, auth.StaticToken(cfg.OrderAPIToken), cfg.OrderAPITimeout, logger)
		return client, func() {}, nil
	default:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open order store: %w", err)
		}
		return orders.NewRepository(pool), pool.Close, nil
	}
}

// NewAnalyticsService wires the engine, cache and source from configuration.
// A nil redis client disables caching.
func NewAnalyticsService(cfg *Config, source analytics.OrderSource, client *redis.Client, observer analytics.CacheObserver) (*analytics.Service, *analytics.Cache) {
	var cache *analytics.Cache
	if client != nil {
		cache = analytics.NewCache(client, cfg.AnalyticsCacheTTL)
		if observer != nil {
			cache.SetObserver(observer)
		}
	}
	engine := analytics.NewEngine(
		analytics.WithLocation(cfg.Location()),
		analytics.WithWeekdayBuckets(cfg.AnalyticsWeekdayBuckets),
	)
	svc := analytics.NewService(source, cache,
		analytics.WithEngine(engine),
		analytics.WithFetchLimit(cfg.OrderFetchLimit),
	)
	return svc, cache
}
