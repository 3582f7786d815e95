package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshpatelx/Opinex/config"
	"github.com/vanshpatelx/Opinex/internal/connector"
	"github.com/vanshpatelx/Opinex/internal/metrics"
)

type cachedEvent struct {
	ID     int64  `json:"id,string"`
	Status string `json:"status"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis, *metrics.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	m := metrics.NewMetrics()
	conn := NewConnector(config.RedisConfig{Host: mr.Host(), Port: port}, connector.Options{Attempts: 1, Delay: time.Millisecond})
	c := NewRedisCache(conn, 0, m)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr, m
}

func TestSetThenGet(t *testing.T) {
	c, mr, m := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, EventKey(9), cachedEvent{ID: 9, Status: "RUNNING"}, 0))

	var got cachedEvent
	found, err := c.Get(ctx, EventKey(9), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedEvent{ID: 9, Status: "RUNNING"}, got)

	assert.Equal(t, DefaultTTL, mr.TTL("event:9"))
	assert.Equal(t, int64(1), m.GetCounters()[metrics.CounterCacheHits])
}

func TestGetMissIsNotAnError(t *testing.T) {
	c, _, m := newTestCache(t)

	var got cachedEvent
	found, err := c.Get(context.Background(), "event:404", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(1), m.GetCounters()[metrics.CounterCacheMisses])
}

func TestSetWithExpiryAndOverwrite(t *testing.T) {
	c, mr, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, LiveEventsKey(0, 50), []cachedEvent{{ID: 1}}, 10*time.Second))
	require.NoError(t, c.Set(ctx, LiveEventsKey(0, 50), []cachedEvent{{ID: 2}}, 10*time.Second))

	var got []cachedEvent
	found, err := c.Get(ctx, LiveEventsKey(0, 50), &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []cachedEvent{{ID: 2}}, got)

	mr.FastForward(11 * time.Second)
	found, err = c.Get(ctx, LiveEventsKey(0, 50), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUnavailableCache(t *testing.T) {
	conn := NewConnector(config.RedisConfig{Host: "127.0.0.1", Port: 1}, connector.Options{Attempts: 1, Delay: time.Millisecond})
	c := NewRedisCache(conn, 0, nil)

	var got cachedEvent
	_, err := c.Get(context.Background(), EventKey(1), &got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCacheUnavailable))

	err = c.Set(context.Background(), EventKey(1), got, 0)
	assert.True(t, errors.Is(err, ErrCacheUnavailable))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "event:5", EventKey(5))
	assert.Equal(t, "live_events:10:20", LiveEventsKey(10, 20))
	assert.Equal(t, "order:7", OrderKey(7))
	assert.Equal(t, "order:7:UserID", OrderOwnerKey(7))
	assert.Equal(t, "orders:Event3:0:50", EventOrdersKey(3, 0, 50))
	assert.Equal(t, "orders:Event3:11:0:50", EventUserOrdersKey(3, 11, 0, 50))
	assert.Equal(t, "orders:User11:0:50", UserOrdersKey(11, 0, 50))
}
