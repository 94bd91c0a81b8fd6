package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/vibast-solutions/ms-go-order-emails/app/entity"
)

const DefaultTopic = "order-created"
const DefaultConsumerGroup = "email-sender-group"

var (
	ErrInvalidConfig = errors.New("invalid consumer configuration")
	ErrBroker        = errors.New("broker error")
	ErrUnexpected    = errors.New("unexpected consumer failure")
)

type OffsetReset string

const (
	OffsetEarliest OffsetReset = "earliest"
	OffsetLatest   OffsetReset = "latest"
)

// ConsumerConfig is the immutable broker connection configuration.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	OffsetReset OffsetReset
	PollTimeout time.Duration
}

// Validate checks the settings the consumer cannot start without.
func (c ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("%w: bootstrap servers are required", ErrInvalidConfig)
	}
	if c.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}
	return nil
}

// MessageReader is the subscription handle. *kafka.Reader satisfies it.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory opens a subscription once the topic is known to exist.
type ReaderFactory func(cfg ConsumerConfig) MessageReader

// Decoder turns a message payload into a validated order notification.
type Decoder interface {
	Decode(raw []byte) (entity.OrderNotification, error)
}

// Dispatcher delivers the confirmation email for a decoded notification.
type Dispatcher interface {
	SendOrderConfirmation(ctx context.Context, n entity.OrderNotification) error
}

// TopicWaiter reports whether a topic became visible within its attempt budget.
type TopicWaiter interface {
	TopicReady(ctx context.Context, topic string) (bool, error)
}
