package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// KafkaRecorder publishes audit facts to a Kafka topic.
type KafkaRecorder struct {
	writer *kafka.Writer
}

// NewKafkaRecorder constructs a recorder on top of an existing writer.
func NewKafkaRecorder(writer *kafka.Writer) *KafkaRecorder {
	return &KafkaRecorder{writer: writer}
}

// Record publishes the fact as a JSON message keyed by resource.
func (r *KafkaRecorder) Record(ctx context.Context, fact Fact) error {
	data, err := json.Marshal(fact)
	if err != nil {
		return err
	}

	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fact.Resource),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}
