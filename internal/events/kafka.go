package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DefaultPublishTimeout bounds a single publish made on the request path.
const DefaultPublishTimeout = 250 * time.Millisecond

// KafkaPublisher writes events to a Kafka topic keyed by document ID.
type KafkaPublisher struct {
	w       messageWriter
	timeout time.Duration
}

// NewKafka constructs a publisher for topic on brokers.
func NewKafka(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              1,
		BatchTimeout:           5 * time.Millisecond,
		WriteTimeout:           DefaultPublishTimeout,
		MaxAttempts:            2,
		AllowAutoTopicCreation: true,
	}, timeout: DefaultPublishTimeout}, nil
}

// Publish writes ev, giving up once the publish timeout elapses.
func (k *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}
	if err := k.w.WriteMessages(ctx, kafka.Message{Key: []byte(ev.DocumentID), Value: payload}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.w.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
