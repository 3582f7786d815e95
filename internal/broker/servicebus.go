package broker

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
)

// messageSender is the part of *azservicebus.Sender the driver uses.
type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// ServiceBusDriver maps each exchange to a Service Bus topic and carries the
// routing key as the message subject.
type ServiceBusDriver struct {
	client    *azservicebus.Client
	source    string
	newSender func(topic string) (messageSender, error)

	mu      sync.Mutex
	senders map[string]messageSender
}

// NewServiceBusDriver creates a driver from a connection string.
func NewServiceBusDriver(connStr, source string) (*ServiceBusDriver, error) {
	if connStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}
	client, err := azservicebus.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}
	d := newServiceBusDriver(source, func(topic string) (messageSender, error) {
		s, err := client.NewSender(topic, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	d.client = client
	return d, nil
}

func newServiceBusDriver(source string, newSender func(topic string) (messageSender, error)) *ServiceBusDriver {
	return &ServiceBusDriver{
		source:    source,
		newSender: newSender,
		senders:   make(map[string]messageSender),
	}
}

// Publish sends body to the topic named exchange.
func (d *ServiceBusDriver) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	sender, err := d.sender(exchange)
	if err != nil {
		return err
	}

	subject := routingKey
	contentType := "application/json"
	msg := &azservicebus.Message{
		Body:        body,
		Subject:     &subject,
		ContentType: &contentType,
		ApplicationProperties: map[string]interface{}{
			"routing_key": routingKey,
			"source":      d.source,
			"time":        time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrapf(err, "failed to send to %s/%s", exchange, routingKey)
	}
	return nil
}

func (d *ServiceBusDriver) sender(topic string) (messageSender, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.senders[topic]; ok {
		return s, nil
	}
	s, err := d.newSender(topic)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Service Bus sender for %s", topic)
	}
	d.senders[topic] = s
	return s, nil
}

// Close closes every sender and the client.
func (d *ServiceBusDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx := context.Background()
	for topic, s := range d.senders {
		_ = s.Close(ctx)
		delete(d.senders, topic)
	}
	if d.client == nil {
		return nil
	}
	return d.client.Close(ctx)
}
