package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange  string
	key       string
	mandatory bool
	immediate bool
	msg       amqp.Publishing
}

type fakeChannel struct {
	mu     sync.Mutex
	sent   []published
	err    error
	notify chan *amqp.Error
	once   sync.Once
}

func (c *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange, key, mandatory, immediate, msg})
	return nil
}

func (c *fakeChannel) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	c.notify = ch
	return ch
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.notify) })
	return nil
}

func TestAMQPPublishIsPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	d := newAMQPDriver(nil, ch)
	defer d.Close()

	err := d.Publish(context.Background(), OrderExchange, OrderAdd, []byte(`{"id":"7"}`))
	require.NoError(t, err)

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, OrderExchange, got.exchange)
	assert.Equal(t, OrderAdd, got.key)
	assert.False(t, got.mandatory)
	assert.False(t, got.immediate)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.JSONEq(t, `{"id":"7"}`, string(got.msg.Body))
	assert.False(t, got.msg.Timestamp.IsZero())
}

func TestAMQPChannelCloseMarksDriverClosed(t *testing.T) {
	ch := &fakeChannel{}
	d := newAMQPDriver(nil, ch)
	assert.False(t, d.Closed())

	ch.notify <- &amqp.Error{Code: 404, Reason: "NOT_FOUND - no exchange 'Order_Exchange'"}

	require.Eventually(t, d.Closed, time.Second, 5*time.Millisecond)
	err := d.Publish(context.Background(), OrderExchange, OrderAdd, []byte(`{}`))
	assert.True(t, errors.Is(err, ErrDriverClosed))
	assert.Empty(t, ch.sent)
}

func TestAMQPPublishOnClosedChannel(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	d := newAMQPDriver(nil, ch)

	err := d.Publish(context.Background(), TradeExchange, TradeAdd, []byte(`{}`))
	assert.True(t, errors.Is(err, ErrDriverClosed))
	assert.True(t, d.Closed())
}

func TestAMQPPublishOtherErrorKeepsDriverOpen(t *testing.T) {
	ch := &fakeChannel{err: errors.New("frame too large")}
	d := newAMQPDriver(nil, ch)
	defer d.Close()

	err := d.Publish(context.Background(), TradeExchange, TradeAdd, []byte(`{}`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDriverClosed))
	assert.False(t, d.Closed())
}

func TestBrokerRedialsDeadAMQPDriver(t *testing.T) {
	dead := &fakeChannel{err: amqp.ErrClosed}
	live := &fakeChannel{}
	first, second := newAMQPDriver(nil, dead), newAMQPDriver(nil, live)
	defer second.Close()

	b, dials := newRedialingBroker(first, second)
	for i := 0; i < 5; i++ {
		b.Publish(context.Background(), map[string]int{"n": i}, OrderExchange, OrderAdd)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(dials))
	assert.Len(t, live.sent, 4)
	assert.True(t, first.Closed())
	assert.NoError(t, b.Ping(context.Background()))
}
