package saver

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// RedisConfig captures the parameters for the key-value saver.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `mapstructure:"addr"`
	// Crawl namespaces the value keys so multiple crawls can share one
	// server: <crawl>_item_<item>.
	Crawl string
}

// Redis stores each response body under a crawl-scoped key.
type Redis struct {
	client *redis.Client
	crawl  string
}

// NewRedis connects the saver.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.Crawl == "" {
		return nil, fmt.Errorf("crawl name is required")
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr}),
		crawl:  cfg.Crawl,
	}, nil
}

// Save writes the response body under the item's key.
func (r *Redis) Save(ctx context.Context, item crawl.Item, resp crawl.Response) error {
	key := fmt.Sprintf("%s_item_%s", r.crawl, item)
	if err := r.client.Set(ctx, key, resp.Body, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", item, err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
