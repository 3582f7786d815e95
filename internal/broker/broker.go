// Package broker publishes domain messages to named exchanges. Delivery is
// fire-and-forget for callers: failures are logged and counted, never returned.
package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"

	"github.com/vanshpatelx/Opinex/config"
	"github.com/vanshpatelx/Opinex/internal/connector"
	"github.com/vanshpatelx/Opinex/internal/metrics"
)

// Exchanges and routing keys consumed downstream. The consumers declare them.
const (
	EventExchange   = "event_exchange"
	EventRegistered = "event.registered"
	OrderExchange   = "Order_Exchange"
	OrderAdd        = "Order.add"
	TradeExchange   = "Trade_Exchange"
	TradeAdd        = "Trade.add"
)

// ErrDriverClosed marks a driver whose connection is gone for good.
var ErrDriverClosed = errors.New("broker connection closed")

// Driver sends an already-encoded body to an exchange.
type Driver interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	Close() error
}

// Publisher is what the services depend on.
type Publisher interface {
	Publish(ctx context.Context, message interface{}, exchange, routingKey string)
}

// Broker publishes through a lazily connected driver.
type Broker struct {
	conn    *connector.Connector[Driver]
	metrics *metrics.Metrics
	timeout time.Duration
}

// New creates a broker over a driver connector.
func New(conn *connector.Connector[Driver], m *metrics.Metrics) *Broker {
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &Broker{conn: conn, metrics: m, timeout: 10 * time.Second}
}

// NewConnector returns a connector for the driver named in cfg.
func NewConnector(cfg config.BrokerConfig, opts connector.Options) (*connector.Connector[Driver], error) {
	var open func() (Driver, error)
	switch cfg.Driver {
	case "", "amqp":
		open = func() (Driver, error) { return asDriver(DialAMQP(cfg.URL)) }
	case "servicebus":
		open = func() (Driver, error) { return asDriver(NewServiceBusDriver(cfg.ServiceBusConnStr, cfg.Source)) }
	case "kafka":
		open = func() (Driver, error) { return asDriver(NewKafkaDriver(cfg.KafkaBrokers, cfg.KafkaClientID)) }
	default:
		return nil, errors.Errorf("unknown broker driver %q", cfg.Driver)
	}

	dial := func(ctx context.Context) (Driver, error) { return open() }
	return connector.New("broker", dial, func(d Driver) error { return d.Close() }, opts), nil
}

// asDriver keeps a typed nil from becoming a non-nil Driver.
func asDriver[D Driver](d D, err error) (Driver, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Publish serializes message and sends it to exchange with routingKey.
func (b *Broker) Publish(ctx context.Context, message interface{}, exchange, routingKey string) {
	start := time.Now()
	err := b.publish(ctx, message, exchange, routingKey)
	b.metrics.RecordPublish(exchange, err == nil, time.Since(start))

	if err != nil {
		log.Error().
			Err(err).
			Str("exchange", exchange).
			Str("routing_key", routingKey).
			Msg("Failed to publish message")
		return
	}
	log.Debug().Str("exchange", exchange).Str("routing_key", routingKey).Msg("Message published")
}

func (b *Broker) publish(ctx context.Context, message interface{}, exchange, routingKey string) error {
	body, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message body")
	}

	// The caller's request may finish before the broker answers.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
	defer cancel()

	driver, err := b.conn.Acquire(ctx)
	if err != nil {
		return errors.Wrap(err, "broker unavailable")
	}

	err = driver.Publish(ctx, exchange, routingKey, body)
	if connectionLost(err) {
		b.discard(driver)
	}
	return err
}

// Ping reports whether the broker connection can be acquired and is still open.
func (b *Broker) Ping(ctx context.Context) error {
	driver, err := b.conn.Acquire(ctx)
	if err != nil {
		return err
	}
	if c, ok := driver.(interface{ Closed() bool }); ok && c.Closed() {
		b.discard(driver)
		return ErrDriverClosed
	}
	return nil
}

// discard drops a dead driver so the next publish dials a fresh one.
func (b *Broker) discard(dead Driver) {
	err := b.conn.Invalidate(func(d Driver) bool { return d == dead })
	if err != nil {
		log.Warn().Err(err).Msg("Failed to close dead broker connection")
	}
}

func connectionLost(err error) bool {
	return errors.Is(err, ErrDriverClosed) || errors.Is(err, amqp.ErrClosed)
}

// Close closes the underlying driver.
func (b *Broker) Close() error {
	return b.conn.Close()
}
