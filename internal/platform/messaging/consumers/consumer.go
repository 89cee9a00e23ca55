package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/fuelvat/invoicing-core/internal/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one fetched message. A non-nil error leaves the
// offset uncommitted so the message is redelivered.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer reads receipt extraction messages off the queue.
type Consumer interface {
	Subscribe(ctx context.Context, topic string, groupID string, handler MessageHandler) error
	Close() error
}

// KafkaConsumer implements Consumer on a kafka-go reader with explicit
// offset commits.
type KafkaConsumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		logger: logger,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.ReceiptTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe starts the fetch loop in a goroutine and returns immediately.
// The loop runs until ctx is canceled. Offsets are committed only after the
// handler succeeds, so a failed receipt is either redelivered or diverted to
// the DLQ by the handler itself.
func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, groupID string, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic",
		"topic", topic,
		"group_id", groupID,
	)

	go func() {
		for {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer",
					"topic", topic,
					"group_id", groupID,
				)
				return
			}

			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Error("Failed to fetch message from Kafka",
					"topic", topic,
					"group_id", groupID,
					"error", err,
				)
				time.Sleep(time.Second)
				continue
			}

			c.logger.Debug("Received message from Kafka",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
			)

			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				c.logger.Error("Failed to process message, will not commit offset",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"key", string(msg.Key),
					"error", err,
				)
				continue
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.Error("Failed to commit message after successful processing",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"key", string(msg.Key),
					"error", err,
				)
				continue
			}

			c.logger.Debug("Message committed",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"key", string(msg.Key),
			)
		}
	}()

	return nil
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
