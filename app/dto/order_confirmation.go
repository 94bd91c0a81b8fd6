package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-order-emails/app/entity"
)

const (
	FieldEmail   = "email"
	FieldOrderID = "order_id"
)

var (
	ErrEncoding         = errors.New("payload is not valid UTF-8")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrMissingField     = errors.New("missing field")
)

// MissingFieldError names the required field that was absent, null or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// Is lets errors.Is match ErrMissingField.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// OrderConfirmationDecoder turns broker payloads into order notifications.
type OrderConfirmationDecoder struct {
	logger logrus.FieldLogger
}

// NewOrderConfirmationDecoder builds a decoder that logs every decoded payload.
func NewOrderConfirmationDecoder(logger logrus.FieldLogger) *OrderConfirmationDecoder {
	return &OrderConfirmationDecoder{logger: logger}
}

// Decode logs the raw payload and decodes it.
func (d *OrderConfirmationDecoder) Decode(raw []byte) (entity.OrderNotification, error) {
	if utf8.Valid(raw) {
		d.logger.WithField("payload", string(raw)).Info("Decoded message")
	}
	return DecodeOrderConfirmation(raw)
}

// DecodeOrderConfirmation parses a JSON object carrying email and order_id.
// A JSON string whose content is such an object is accepted as well.
func DecodeOrderConfirmation(raw []byte) (entity.OrderNotification, error) {
	if !utf8.Valid(raw) {
		return entity.OrderNotification{}, ErrEncoding
	}

	value, err := parseJSON(raw)
	if err != nil {
		return entity.OrderNotification{}, err
	}

	if inner, ok := value.(string); ok {
		if value, err = parseJSON([]byte(inner)); err != nil {
			return entity.OrderNotification{}, err
		}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return entity.OrderNotification{}, fmt.Errorf("%w: expected a JSON object, got %T", ErrMalformedPayload, value)
	}

	email, err := stringField(obj, FieldEmail)
	if err != nil {
		return entity.OrderNotification{}, err
	}
	orderID, err := stringField(obj, FieldOrderID)
	if err != nil {
		return entity.OrderNotification{}, err
	}

	return entity.OrderNotification{Email: email, OrderID: orderID}, nil
}

func parseJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedPayload)
	}
	return value, nil
}

// stringField accepts strings and, for order ids emitted as numbers, JSON numbers.
func stringField(obj map[string]any, field string) (string, error) {
	var value string
	switch v := obj[field].(type) {
	case nil:
	case string:
		value = strings.TrimSpace(v)
	case json.Number:
		if field != FieldOrderID {
			return "", fmt.Errorf("%w: field %q must be a string", ErrMalformedPayload, field)
		}
		value = v.String()
	default:
		return "", fmt.Errorf("%w: field %q must be a string, got %T", ErrMalformedPayload, field, v)
	}
	if value == "" {
		return "", &MissingFieldError{Field: field}
	}
	return value, nil
}
