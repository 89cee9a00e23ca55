package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes receipt extractions to the primary topic.
// Values are JSON-encoded; the key is the receipt ID for per-receipt ordering.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher diverts unprocessable messages to the DLQ topic.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the producers rely on, kept as an
// interface so tests can substitute a mock.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
