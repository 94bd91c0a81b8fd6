package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/vibast-solutions/ms-go-order-emails/app/dto"
)

const RequestIDHeader = "request_id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderProducer struct {
	writer messageWriter
}

// NewOrderProducer constructs a producer for order confirmation events.
func NewOrderProducer(writer messageWriter) *OrderProducer {
	return &OrderProducer{writer: writer}
}

// Publish writes the order confirmation payload keyed by order id and returns
// the generated request id.
func (p *OrderProducer) Publish(ctx context.Context, req dto.OrderConfirmationRequest) (string, error) {
	value, err := req.Payload()
	if err != nil {
		return "", err
	}

	requestID := uuid.NewString()
	msg := kafka.Message{
		Key:   []byte(req.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: RequestIDHeader, Value: []byte(requestID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("write order event: %w", err)
	}
	return requestID, nil
}

func (p *OrderProducer) Close() error {
	return p.writer.Close()
}
