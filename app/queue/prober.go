package queue

import (
	"context"
	"sort"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ProbeOutcome is the result of a single metadata probe.
type ProbeOutcome int

const (
	ProbeFound ProbeOutcome = iota
	ProbeNotFound
	ProbeError
)

func (o ProbeOutcome) String() string {
	switch o {
	case ProbeFound:
		return "found"
	case ProbeNotFound:
		return "not_found_retry"
	case ProbeError:
		return "error_retry"
	default:
		return "unknown"
	}
}

// MetadataFetcher reads cluster metadata. *kafka.Client satisfies it.
type MetadataFetcher interface {
	Metadata(ctx context.Context, req *kafka.MetadataRequest) (*kafka.MetadataResponse, error)
}

type ProbeConfig struct {
	MaxAttempts     int
	RetryInterval   time.Duration
	MetadataTimeout time.Duration
}

// TopicProber polls cluster metadata until a topic shows up.
type TopicProber struct {
	fetcher MetadataFetcher
	config  ProbeConfig
	logger  logrus.FieldLogger
	wait    func(ctx context.Context, d time.Duration) error
}

// NewTopicProber builds a prober. Non-positive settings fall back to one
// attempt, a two second interval and a ten second metadata timeout.
func NewTopicProber(fetcher MetadataFetcher, config ProbeConfig, logger logrus.FieldLogger) *TopicProber {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 2 * time.Second
	}
	if config.MetadataTimeout <= 0 {
		config.MetadataTimeout = 10 * time.Second
	}
	return &TopicProber{fetcher: fetcher, config: config, logger: logger, wait: sleepContext}
}

// Probe runs one metadata fetch. Transport errors are reported as ProbeError
// and are as retryable as a missing topic.
func (p *TopicProber) Probe(ctx context.Context, topic string) ProbeOutcome {
	fetchCtx, cancel := context.WithTimeout(ctx, p.config.MetadataTimeout)
	defer cancel()

	resp, err := p.fetcher.Metadata(fetchCtx, &kafka.MetadataRequest{})
	if err != nil {
		p.logger.WithError(err).Error("Error checking topic")
		return ProbeError
	}

	names := make([]string, 0, len(resp.Topics))
	found := false
	for _, t := range resp.Topics {
		names = append(names, t.Name)
		if t.Name == topic {
			found = true
		}
	}
	sort.Strings(names)
	p.logger.WithField("topics", names).Info("Available topics")

	if found {
		return ProbeFound
	}
	return ProbeNotFound
}

// TopicReady probes up to MaxAttempts times, sleeping RetryInterval after
// every miss. It returns false once the budget is spent and an error only
// when ctx is cancelled.
func (p *TopicProber) TopicReady(ctx context.Context, topic string) (bool, error) {
	logger := p.logger.WithField("topic", topic)

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		outcome := p.Probe(ctx, topic)
		if outcome == ProbeFound {
			logger.Info("Topic found")
			return true, nil
		}

		if outcome == ProbeNotFound {
			logger.WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": p.config.MaxAttempts,
			}).Warn("Topic not found, waiting")
		}

		if err := p.wait(ctx, p.config.RetryInterval); err != nil {
			return false, err
		}
	}

	logger.WithField("max_attempts", p.config.MaxAttempts).Error("Topic not found after retries")
	return false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
