package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/spec-kit/epcr-service/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 5 * time.Second
)

// KafkaRecorder publishes entries as JSON to a Kafka topic, keyed by resource id so
// one record's history stays on one partition. Writes are asynchronous: Record only
// enqueues, and broker failures are logged from the writer's completion callback.
type KafkaRecorder struct {
	writer messageWriter
}

// NewKafkaRecorder builds a recorder writing to topic on brokers.
func NewKafkaRecorder(brokers []string, topic string, logger *zap.Logger) *KafkaRecorder {
	return &KafkaRecorder{writer: newKafkaWriter(brokers, topic, logger)}
}

func newKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: kafkaBatchTimeout,
		WriteTimeout: kafkaWriteTimeout,
		Completion:   kafkaCompletion(logger),
	}
}

func kafkaCompletion(logger *zap.Logger) func([]kafka.Message, error) {
	return func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}
		logger.Error("audit kafka publish failed",
			zap.Int("messages", len(messages)),
			zap.Error(err))
	}
}

// Record implements Recorder.
func (r *KafkaRecorder) Record(ctx context.Context, entry *domain.AuditEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	key := string(entry.Resource)
	if entry.ResourceID != nil {
		key += ":" + *entry.ResourceID
	}
	if err := r.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("publish audit entry: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
