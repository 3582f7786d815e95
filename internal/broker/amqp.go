package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
)

// amqpChannel is the part of *amqp.Channel the driver uses.
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// AMQPDriver publishes to RabbitMQ exchanges over one channel. Once the
// channel or connection closes the driver stays closed; the broker replaces it.
type AMQPDriver struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     amqpChannel
	closed atomic.Bool
}

// DialAMQP connects to url and opens a channel.
func DialAMQP(url string) (*AMQPDriver, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open RabbitMQ channel")
	}

	d := newAMQPDriver(conn, ch)
	d.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return d, nil
}

func newAMQPDriver(conn *amqp.Connection, ch amqpChannel) *AMQPDriver {
	d := &AMQPDriver{conn: conn, ch: ch}
	// Publishing to an undeclared exchange closes the channel, not the connection.
	d.watch(ch.NotifyClose(make(chan *amqp.Error, 1)))
	return d
}

func (d *AMQPDriver) watch(notify chan *amqp.Error) {
	go func() {
		if reason, ok := <-notify; ok && reason != nil {
			log.Warn().
				Int("code", reason.Code).
				Str("reason", reason.Reason).
				Msg("RabbitMQ connection closed")
		}
		d.closed.Store(true)
	}()
}

// Closed reports whether the channel or connection has gone away.
func (d *AMQPDriver) Closed() bool {
	return d.closed.Load() || (d.conn != nil && d.conn.IsClosed())
}

// Publish sends a persistent JSON message. Exchanges are not declared here.
func (d *AMQPDriver) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if d.Closed() {
		return errors.Wrapf(ErrDriverClosed, "publish to %s/%s", exchange, routingKey)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.ch.Publish(exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
	})
	if errors.Is(err, amqp.ErrClosed) {
		d.closed.Store(true)
		return errors.Wrapf(ErrDriverClosed, "publish to %s/%s: %v", exchange, routingKey, err)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to publish to %s/%s", exchange, routingKey)
	}
	return nil
}

// Close closes the channel and connection.
func (d *AMQPDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed.Store(true)
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil && !d.conn.IsClosed() {
		return d.conn.Close()
	}
	return nil
}
