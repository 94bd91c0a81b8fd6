package queue

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewKafkaReader opens a consumer group subscription on the configured topic.
// The group offset takes precedence; StartOffset applies only when the group
// has none committed.
func NewKafkaReader(cfg ConsumerConfig) MessageReader {
	startOffset := kafka.FirstOffset
	if cfg.OffsetReset == OffsetLatest {
		startOffset = kafka.LastOffset
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
}

// NewMetadataClient returns a client used only for topic discovery.
func NewMetadataClient(brokers []string, timeout time.Duration) *kafka.Client {
	return &kafka.Client{
		Addr:    kafka.TCP(brokers...),
		Timeout: timeout,
	}
}

// NewKafkaWriter returns a synchronous writer bound to topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}
