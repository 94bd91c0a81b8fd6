package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-order-emails/app/entity"
	"github.com/vibast-solutions/ms-go-order-emails/app/lock"
	"github.com/vibast-solutions/ms-go-order-emails/app/preparer"
	"github.com/vibast-solutions/ms-go-order-emails/app/provider"
)

var ErrDispatch = errors.New("order confirmation dispatch failed")

const (
	sendLockTTL  = 2 * time.Minute
	sendLockWait = 10 * time.Second
)

// EmailHistory stores one row per dispatched broker message.
type EmailHistory interface {
	Create(ctx context.Context, requestID string, orderID string, recipient string, status int16) error
	UpdateStatus(ctx context.Context, requestID string, status int16) error
}

type EmailService struct {
	preparer preparer.EmailPreparer
	provider provider.EmailProvider
	history  EmailHistory
	locker   lock.Locker
	lockWait time.Duration
	logger   logrus.FieldLogger
}

// NewEmailService builds the email service with dependencies. history may be
// nil, in which case nothing is recorded.
func NewEmailService(preparer preparer.EmailPreparer, provider provider.EmailProvider, history EmailHistory, locker lock.Locker, logger logrus.FieldLogger) *EmailService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &EmailService{preparer: preparer, provider: provider, history: history, locker: locker, lockWait: sendLockWait, logger: logger}
}

// SendOrderConfirmation renders and sends one confirmation email. It never
// retries; any failure is returned wrapped in ErrDispatch.
func (s *EmailService) SendOrderConfirmation(ctx context.Context, n entity.OrderNotification) error {
	if n.Email == "" || n.OrderID == "" {
		return fmt.Errorf("%w: email and order_id are required", ErrDispatch)
	}

	requestID, _ := RequestIDFromContext(ctx)
	logger := s.logger.WithFields(logrus.Fields{
		"order_id":   n.OrderID,
		"recipient":  n.Email,
		"request_id": requestID,
	})

	lockKey := lock.OrderEmailKey(n.OrderID, n.Email)
	if s.acquireLock(ctx, logger, lockKey) {
		defer func() {
			if err := s.locker.Release(context.Background(), lockKey); err != nil {
				logger.WithError(err).Warn("Failed to release send lock")
			}
		}()
	}

	s.record(logger, requestID, func() error {
		return s.history.Create(ctx, requestID, n.OrderID, n.Email, entity.EmailStatusProcessing)
	})

	raw, err := s.preparer.Prepare(ctx, n.Email, n.OrderID)
	if err != nil {
		s.record(logger, requestID, func() error {
			return s.history.UpdateStatus(ctx, requestID, entity.EmailStatusPermanentFailure)
		})
		return fmt.Errorf("%w: prepare email: %w", ErrDispatch, err)
	}

	logger.Info("Sending order confirmation email")
	if err := s.provider.SendRaw(ctx, n.Email, raw); err != nil {
		s.record(logger, requestID, func() error {
			return s.history.UpdateStatus(ctx, requestID, entity.EmailStatusPermanentFailure)
		})
		return fmt.Errorf("%w: send: %w", ErrDispatch, err)
	}

	s.record(logger, requestID, func() error {
		return s.history.UpdateStatus(ctx, requestID, entity.EmailStatusSuccess)
	})
	logger.Info("Order confirmation email sent")
	return nil
}

// acquireLock waits up to lockWait for the send lock. On contention or a
// store error the email is sent without it.
func (s *EmailService) acquireLock(ctx context.Context, logger logrus.FieldLogger, key string) bool {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	err := s.locker.Acquire(lockCtx, key, sendLockTTL)
	switch {
	case err == nil:
		return true
	case errors.Is(err, lock.ErrNotAcquired), errors.Is(err, lock.ErrAlreadyHeld):
		logger.WithError(err).Warn("Send lock is held elsewhere, sending without it")
	default:
		logger.WithError(err).Error("Send lock unavailable, sending without it")
	}
	return false
}

// record writes history when enabled. History failures never block a send.
func (s *EmailService) record(logger logrus.FieldLogger, requestID string, write func() error) {
	if s.history == nil || requestID == "" {
		return
	}
	if err := write(); err != nil {
		logger.WithError(err).Warn("Failed to record email history")
	}
}
