package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/config"
	"github.com/vanshpatelx/Opinex/internal/connector"
	"github.com/vanshpatelx/Opinex/internal/metrics"
)

// DefaultTTL applies when Set is called without an expiry.
const DefaultTTL = 72000 * time.Second

// ErrCacheUnavailable is returned when redis cannot be reached.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Cache is the cache-aside surface used by the services. A miss is reported
// through found=false, never as an error.
type Cache interface {
	Get(ctx context.Context, key string, value interface{}) (found bool, err error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RedisCache provides caching using Redis
type RedisCache struct {
	conn       *connector.Connector[*redis.Client]
	defaultTTL time.Duration
	metrics    *metrics.Metrics
}

// NewConnector returns a connector that dials and pings redis.
func NewConnector(cfg config.RedisConfig, opts connector.Options) *connector.Connector[*redis.Client] {
	dial := func(ctx context.Context) (*redis.Client, error) {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "failed to connect to Redis")
		}
		return client, nil
	}
	return connector.New("redis", dial, func(c *redis.Client) error { return c.Close() }, opts)
}

// NewRedisCache creates a cache over a redis connector. A zero defaultTTL means DefaultTTL.
func NewRedisCache(conn *connector.Connector[*redis.Client], defaultTTL time.Duration, m *metrics.Metrics) *RedisCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &RedisCache{
		conn:       conn,
		defaultTTL: defaultTTL,
		metrics:    m,
	}
}

// Get reads key into value.
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) (bool, error) {
	client, err := c.client(ctx)
	if err != nil {
		return false, err
	}

	data, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.metrics.RecordCacheLookup(false)
		return false, nil
	}
	if err != nil {
		c.metrics.IncrementCounter(metrics.CounterCacheErrors)
		return false, errors.Wrapf(ErrCacheUnavailable, "get %s: %v", key, err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return false, errors.Wrapf(err, "failed to unmarshal cached value for %s", key)
	}

	c.metrics.RecordCacheLookup(true)
	return true, nil
}

// Set stores value under key. Concurrent writers race; the last one wins.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal value for %s", key)
	}

	client, err := c.client(ctx)
	if err != nil {
		return err
	}

	if err := client.Set(ctx, key, data, expiration).Err(); err != nil {
		c.metrics.IncrementCounter(metrics.CounterCacheErrors)
		return errors.Wrapf(ErrCacheUnavailable, "set %s: %v", key, err)
	}
	return nil
}

// Ping checks that redis answers.
func (c *RedisCache) Ping(ctx context.Context) error {
	client, err := c.client(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return errors.Wrapf(ErrCacheUnavailable, "ping: %v", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.conn.Close()
}

func (c *RedisCache) client(ctx context.Context) (*redis.Client, error) {
	client, err := c.conn.Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Redis connection unavailable")
		return nil, errors.Wrapf(ErrCacheUnavailable, "%v", err)
	}
	return client, nil
}
