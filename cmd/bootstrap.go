package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/config"
	"github.com/vanshpatelx/Opinex/internal/broker"
	"github.com/vanshpatelx/Opinex/internal/cache"
	"github.com/vanshpatelx/Opinex/internal/connector"
	"github.com/vanshpatelx/Opinex/internal/idgen"
	"github.com/vanshpatelx/Opinex/internal/metrics"
	"github.com/vanshpatelx/Opinex/internal/repositories"
	"github.com/vanshpatelx/Opinex/internal/services"
	"github.com/vanshpatelx/Opinex/internal/store"
	"github.com/vanshpatelx/Opinex/internal/tracing"
)

// pinger is a backing resource the health check can ping.
type pinger interface {
	Ping(ctx context.Context) error
}

// runtime holds every long-lived dependency of the gateway. Connections are
// established lazily by their connectors on first use.
type runtime struct {
	cfg     config.Config
	metrics *metrics.Metrics
	tracer  tracing.Tracer
	cache   *cache.RedisCache
	store   *store.Store
	broker  *broker.Broker

	eventService *services.EventService
	orderService *services.OrderService
}

func newRuntime(cfg config.Config) (*runtime, error) {
	metricsCollector := metrics.NewMetrics()

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.Noop()
	}

	opts := connector.Options{
		Attempts: cfg.Connector.Attempts,
		Delay:    cfg.Connector.Delay,
		Observer: metricsCollector,
	}

	brokerConn, err := broker.NewConnector(cfg.Broker, opts)
	if err != nil {
		return nil, err
	}

	ids, err := idgen.New(cfg.IDGen.Strategy, cfg.IDGen.Node)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize id generator")
	}

	rt := &runtime{
		cfg:     cfg,
		metrics: metricsCollector,
		tracer:  tracer,
		cache:   cache.NewRedisCache(cache.NewConnector(cfg.Redis, opts), cfg.Cache.DefaultTTL, metricsCollector),
		store:   store.New(store.NewConnector(cfg.DB, metricsCollector, opts)),
		broker:  broker.New(brokerConn, metricsCollector),
	}

	ttl := services.CacheTTL{
		Default:    cfg.Cache.DefaultTTL,
		LiveEvents: cfg.Cache.LiveEventsTTL,
		OrderList:  cfg.Cache.OrderListTTL,
	}

	rt.eventService = services.NewEventService(
		repositories.NewEventRepository(rt.store),
		rt.cache, rt.broker, ids, metricsCollector, tracer, ttl,
	)
	rt.orderService = services.NewOrderService(
		repositories.NewOrderRepository(rt.store),
		rt.eventService,
		rt.cache, rt.broker, ids, metricsCollector, tracer, ttl,
	)

	return rt, nil
}

func (r *runtime) resources() map[string]pinger {
	return map[string]pinger{
		"redis":    r.cache,
		"postgres": r.store,
		"broker":   r.broker,
	}
}

// checkHealth pings every resource and publishes the result to the metrics
// collector behind /health.
func (r *runtime) checkHealth(ctx context.Context) {
	for name, res := range r.resources() {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := res.Ping(pingCtx)
		cancel()

		r.metrics.SetHealth(name, err == nil)
		if err != nil {
			log.Warn().Err(err).Str("resource", name).Msg("Health check failed")
		}
	}
}

func (r *runtime) Close() {
	for name, closer := range map[string]interface{ Close() error }{
		"redis":    r.cache,
		"postgres": r.store,
		"broker":   r.broker,
	} {
		if err := closer.Close(); err != nil {
			log.Error().Err(err).Str("resource", name).Msg("Failed to close resource")
		}
	}
	r.tracer.Close()
}
