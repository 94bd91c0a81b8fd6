package provider

import (
	"context"

	"github.com/sirupsen/logrus"
)

// NoopProvider logs the delivery instead of sending, for local runs.
type NoopProvider struct {
	logger logrus.FieldLogger
}

// NewNoopProvider constructs a no-op email provider.
func NewNoopProvider(logger logrus.FieldLogger) *NoopProvider {
	return &NoopProvider{logger: logger}
}

// SendRaw logs the recipient and message size and returns nil.
func (p *NoopProvider) SendRaw(_ context.Context, recipient string, raw []byte) error {
	p.logger.WithFields(logrus.Fields{
		"recipient": recipient,
		"bytes":     len(raw),
	}).Info("Noop provider skipped delivery")
	return nil
}
