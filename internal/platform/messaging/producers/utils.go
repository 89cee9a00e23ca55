package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// createKafkaTopicIfNotExists makes sure a topic is present before a producer
// starts writing to it. Partition reads are retried because a broker that is
// still electing leaders reports transient errors.
func createKafkaTopicIfNotExists(conn *kafka.Conn, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	log.Info("Checking if Kafka topic exists", "topic", topicName)
	for attempt := 1; attempt <= 5; attempt++ {
		partitions, err = conn.ReadPartitions(topicName)
		if err == nil {
			break
		}
		log.Warn("Failed to read partitions, retrying", "topic", topicName, "attempt", attempt, "error", err)
		time.Sleep(2 * time.Second)
	}

	if len(partitions) > 0 {
		if err != nil {
			log.Warn("Kafka topic exists but the last partition read failed", "topic", topicName, "error", err)
		} else {
			log.Info("Kafka topic already exists", "topic", topicName)
		}
		return nil
	}

	log.Info("Kafka topic does not exist or is not accessible, creating it", "topic", topicName, "last_read_error", err)

	topicConfig := kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if topicConfig.NumPartitions == 0 {
		topicConfig.NumPartitions = 1
	}
	if topicConfig.ReplicationFactor == 0 {
		topicConfig.ReplicationFactor = 1
	}

	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}
	log.Info("Created Kafka topic", "topic", topicName)
	return nil
}
