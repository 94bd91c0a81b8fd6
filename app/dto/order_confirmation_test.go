package dto

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-order-emails/app/entity"
)

func TestDecodeOrderConfirmation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   []byte
		want  entity.OrderNotification
		err   error
		field string
	}{
		{
			name: "valid object",
			raw:  []byte(`{"email": "a@b.com", "order_id": "123"}`),
			want: entity.OrderNotification{Email: "a@b.com", OrderID: "123"},
		},
		{
			name: "double encoded string",
			raw:  []byte(`"{\"email\": \"a@b.com\", \"order_id\": \"123\"}"`),
			want: entity.OrderNotification{Email: "a@b.com", OrderID: "123"},
		},
		{
			name: "extra fields ignored",
			raw:  []byte(`{"email":"user@x.com","order_id":"ORD-42","total":10}`),
			want: entity.OrderNotification{Email: "user@x.com", OrderID: "ORD-42"},
		},
		{
			name: "numeric order id",
			raw:  []byte(`{"email":"user@x.com","order_id":42}`),
			want: entity.OrderNotification{Email: "user@x.com", OrderID: "42"},
		},
		{name: "invalid utf8", raw: []byte{0xff, 0xfe, '{'}, err: ErrEncoding},
		{name: "not json", raw: []byte("not json"), err: ErrMalformedPayload},
		{name: "empty payload", raw: []byte(""), err: ErrMalformedPayload},
		{name: "trailing data", raw: []byte(`{"email":"a@b.com","order_id":"1"} {}`), err: ErrMalformedPayload},
		{name: "double encoded garbage", raw: []byte(`"not json"`), err: ErrMalformedPayload},
		{name: "array", raw: []byte(`[1,2]`), err: ErrMalformedPayload},
		{name: "email not a string", raw: []byte(`{"email":5,"order_id":"1"}`), err: ErrMalformedPayload},
		{name: "missing email", raw: []byte(`{"order_id":"1"}`), err: ErrMissingField, field: FieldEmail},
		{name: "empty email", raw: []byte(`{"email":"","order_id":"1"}`), err: ErrMissingField, field: FieldEmail},
		{name: "null order id", raw: []byte(`{"email":"a@b.com","order_id":null}`), err: ErrMissingField, field: FieldOrderID},
		{name: "blank order id", raw: []byte(`{"email":"a@b.com","order_id":"  "}`), err: ErrMissingField, field: FieldOrderID},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeOrderConfirmation(tc.raw)
			if tc.err == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tc.want {
					t.Fatalf("expected %+v, got %+v", tc.want, got)
				}
				return
			}

			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if tc.field != "" {
				var missing *MissingFieldError
				if !errors.As(err, &missing) || missing.Field != tc.field {
					t.Fatalf("expected missing field %q, got %v", tc.field, err)
				}
			}
		})
	}
}

func TestOrderConfirmationDecoderLogsPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	decoder := NewOrderConfirmationDecoder(logger)
	if _, err := decoder.Decode([]byte(`{"email":"a@b.com","order_id":"9"}`)); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !strings.Contains(buf.String(), `order_id`) || !strings.Contains(buf.String(), `"level":"info"`) {
		t.Fatalf("expected payload logged at info, got %s", buf.String())
	}
}

func TestOrderConfirmationDecoderInvalidUTF8NotLogged(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	decoder := NewOrderConfirmationDecoder(logger)
	if _, err := decoder.Decode([]byte{0xff}); !errors.Is(err, ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}
