package publish

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"

	"example.com/curve/curveerr"
)

// BrokerClient is the external collaborator this library publishes
// through; spec.md treats the broker itself as out of scope, so this
// is the seam a caller supplies a real client behind.
type BrokerClient interface {
	Send(ctx context.Context, topic string, key string, value []byte) error
}

// KafkaBrokerClient is a BrokerClient backed by segmentio/kafka-go,
// lazily creating one *kafka.Writer per topic, adapted from the
// reference stack's KafkaProducer.
type KafkaBrokerClient struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaBrokerClient constructs a KafkaBrokerClient.
func NewKafkaBrokerClient(brokers []string) *KafkaBrokerClient {
	return &KafkaBrokerClient{brokers: brokers, writers: make(map[string]*kafka.Writer)}
}

func (c *KafkaBrokerClient) writerForTopic(topic string) *kafka.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.writers[topic]; ok {
		return w
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(c.brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
		// kafka-go has no idempotent-producer knob comparable to
		// enable.idempotence; RequiredAcks=all plus the outbox's
		// at-least-once re-delivery is the closest equivalent this
		// client can offer.
		MaxAttempts: 1,
	}
	c.writers[topic] = w
	return w
}

// Send writes one message to topic, wrapping kafka-go's error as
// KindTransientBroker (network/timeout class errors, safe to retry) or
// KindPermanentBroker otherwise.
func (c *KafkaBrokerClient) Send(ctx context.Context, topic string, key string, value []byte) error {
	w := c.writerForTopic(topic)
	err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
	if err == nil {
		return nil
	}
	if isTransientKafkaError(err) {
		return curveerr.New(curveerr.KindTransientBroker, "kafka write failed transiently", err)
	}
	return curveerr.New(curveerr.KindPermanentBroker, "kafka write failed", err)
}

// temporary is satisfied by kafka.Error (and net.Error), which expose a
// Temporary() bool the way the standard library's network error types
// do; that's the only part of kafka-go's error surface this classifier
// depends on, rather than naming individual protocol error constants.
type temporary interface {
	Temporary() bool
}

func isTransientKafkaError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var te temporary
	if errors.As(err, &te) {
		return te.Temporary()
	}
	return false
}

// Close releases every writer this client created.
func (c *KafkaBrokerClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for topic, w := range c.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.writers, topic)
	}
	return firstErr
}
