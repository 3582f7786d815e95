package broker

import (
	"context"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// KafkaDriver maps each exchange to a topic and uses the routing key as the
// message key.
type KafkaDriver struct {
	producer sarama.SyncProducer
}

// NewKafkaDriver creates a synchronous producer against brokers.
func NewKafkaDriver(brokers []string, clientID string) (*KafkaDriver, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Kafka producer")
	}
	return NewKafkaDriverWithProducer(producer), nil
}

// NewKafkaDriverWithProducer wraps an existing producer.
func NewKafkaDriverWithProducer(producer sarama.SyncProducer) *KafkaDriver {
	return &KafkaDriver{producer: producer}
}

// Publish sends body to topic exchange keyed by routingKey.
func (d *KafkaDriver) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := d.producer.SendMessage(&sarama.ProducerMessage{
		Topic: exchange,
		Key:   sarama.StringEncoder(routingKey),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to produce to %s/%s", exchange, routingKey)
	}
	return nil
}

// Close closes the producer.
func (d *KafkaDriver) Close() error {
	return d.producer.Close()
}
