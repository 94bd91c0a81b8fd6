package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-order-emails/app/service"
)

const commitTimeout = 5 * time.Second

// State is a step of the consumer lifecycle.
type State int32

const (
	StateStarting State = iota
	StateProbing
	StateSubscribed
	StatePolling
	StateProcessing
	StateShuttingDown
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateProbing:
		return "probing"
	case StateSubscribed:
		return "subscribed"
	case StatePolling:
		return "polling"
	case StateProcessing:
		return "processing"
	case StateShuttingDown:
		return "shutting_down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type pollOutcome int

const (
	pollMessage pollOutcome = iota
	pollEmpty
	pollInterrupted
	pollFailed
)

type processOutcome int

const (
	processDelivered processOutcome = iota
	processDecodeFailed
	processDispatchFailed
	processPanicked
)

type processResult struct {
	outcome processOutcome
	err     error
}

// OrderConsumer owns the subscription and drives the poll, decode and
// dispatch cycle until ctx is cancelled or the broker fails.
type OrderConsumer struct {
	config     ConsumerConfig
	waiter     TopicWaiter
	newReader  ReaderFactory
	decoder    Decoder
	dispatcher Dispatcher
	logger     logrus.FieldLogger
	state      atomic.Int32
}

// NewOrderConsumer constructs the order confirmation consumer.
func NewOrderConsumer(config ConsumerConfig, waiter TopicWaiter, newReader ReaderFactory, decoder Decoder, dispatcher Dispatcher, logger logrus.FieldLogger) *OrderConsumer {
	if config.PollTimeout <= 0 {
		config.PollTimeout = time.Second
	}
	return &OrderConsumer{
		config:     config,
		waiter:     waiter,
		newReader:  newReader,
		decoder:    decoder,
		dispatcher: dispatcher,
		logger:     logger.WithField("topic", config.Topic),
	}
}

// State returns the current lifecycle state.
func (c *OrderConsumer) State() State {
	return State(c.state.Load())
}

func (c *OrderConsumer) setState(s State) {
	if State(c.state.Swap(int32(s))) != s {
		c.logger.WithField("state", s.String()).Debug("Consumer state changed")
	}
}

// Run blocks until ctx is cancelled (returns nil) or a fatal error occurs.
// Configuration errors wrap ErrInvalidConfig, broker failures wrap ErrBroker.
// The subscription, once opened, is closed on every return path.
func (c *OrderConsumer) Run(ctx context.Context) (err error) {
	c.setState(StateStarting)
	if err := c.config.Validate(); err != nil {
		c.logger.WithError(err).Error("Missing bootstrap servers or topic name")
		c.setState(StateClosed)
		return err
	}

	c.setState(StateProbing)
	if err := c.waitForTopic(ctx); err != nil {
		c.setState(StateClosed)
		if ctx.Err() != nil {
			c.logger.Info("Consumer interrupted while waiting for topic. Shutting down...")
			return nil
		}
		c.logger.WithError(err).Error("Topic check failed")
		return fmt.Errorf("%w: %w", ErrBroker, err)
	}

	reader := c.newReader(c.config)
	c.setState(StateSubscribed)
	c.logger.WithField("group_id", c.config.GroupID).Info("Subscribed to Kafka topic")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
			c.logger.WithField("panic", r).Error("Unexpected error")
		}
		c.setState(StateShuttingDown)
		c.logger.Info("Closing consumer...")
		if closeErr := reader.Close(); closeErr != nil {
			c.logger.WithError(closeErr).Warn("Failed to close consumer")
		}
		c.setState(StateClosed)
	}()

	return c.loop(ctx, reader)
}

// waitForTopic re-checks the topic without an overall limit until it exists.
// It fails when ctx is cancelled or the waiter reports an error.
func (c *OrderConsumer) waitForTopic(ctx context.Context) error {
	for {
		ready, err := c.waiter.TopicReady(ctx, c.config.Topic)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if ready {
			return nil
		}
		c.logger.Info("Topic is not available yet. Re-checking...")
	}
}

func (c *OrderConsumer) loop(ctx context.Context, reader MessageReader) error {
	for {
		c.setState(StatePolling)

		msg, outcome, err := c.poll(ctx, reader)
		switch outcome {
		case pollEmpty:
			continue
		case pollInterrupted:
			c.logger.Info("Consumer interrupted. Shutting down...")
			return nil
		case pollFailed:
			c.logger.WithError(err).Error("Kafka error occurred")
			return fmt.Errorf("%w: %w", ErrBroker, err)
		}

		c.setState(StateProcessing)
		result := c.process(ctx, msg)
		c.report(msg, result)
		c.commit(ctx, reader, msg)
	}
}

// poll waits at most PollTimeout for the next message. A timeout is an empty
// poll; any other broker error is fatal.
func (c *OrderConsumer) poll(ctx context.Context, reader MessageReader) (kafka.Message, pollOutcome, error) {
	if ctx.Err() != nil {
		return kafka.Message{}, pollInterrupted, nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, c.config.PollTimeout)
	defer cancel()

	msg, err := reader.FetchMessage(pollCtx)
	switch {
	case err == nil:
		return msg, pollMessage, nil
	case ctx.Err() != nil:
		return kafka.Message{}, pollInterrupted, nil
	case errors.Is(err, context.DeadlineExceeded):
		return kafka.Message{}, pollEmpty, nil
	default:
		return kafka.Message{}, pollFailed, err
	}
}

// process decodes and dispatches one message. It never panics and never
// returns a fatal outcome; the message is dropped on any failure. An
// interrupt does not abort a send that already started.
func (c *OrderConsumer) process(ctx context.Context, msg kafka.Message) (result processResult) {
	defer func() {
		if r := recover(); r != nil {
			result = processResult{outcome: processPanicked, err: fmt.Errorf("%w: %v", ErrUnexpected, r)}
		}
	}()

	notification, err := c.decoder.Decode(msg.Value)
	if err != nil {
		return processResult{outcome: processDecodeFailed, err: err}
	}

	sendCtx := service.WithRequestID(context.WithoutCancel(ctx), service.MessageRequestID(msg.Topic, msg.Partition, msg.Offset))
	if err := c.dispatcher.SendOrderConfirmation(sendCtx, notification); err != nil {
		return processResult{outcome: processDispatchFailed, err: err}
	}
	return processResult{outcome: processDelivered}
}

func (c *OrderConsumer) report(msg kafka.Message, result processResult) {
	fields := logrus.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	}
	if requestID, ok := headerValue(msg, RequestIDHeader); ok {
		fields["request_id"] = requestID
	}
	logger := c.logger.WithFields(fields)

	switch result.outcome {
	case processDelivered:
		logger.Debug("Message processed")
	case processDecodeFailed:
		logger.WithError(result.err).Warn("Invalid message, skipping")
	case processDispatchFailed:
		logger.WithError(result.err).Error("Error processing message, dropping")
	case processPanicked:
		logger.WithError(result.err).Error("Unexpected error processing message, dropping")
	}
}

// commit marks the message consumed whatever the processing outcome. A
// commit failure is logged; the message may then be redelivered.
func (c *OrderConsumer) commit(ctx context.Context, reader MessageReader, msg kafka.Message) {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	if err := reader.CommitMessages(commitCtx, msg); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("Failed to commit offset")
	}
}

func headerValue(msg kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
