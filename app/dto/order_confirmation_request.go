package dto

import (
	"encoding/json"
	"errors"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	ErrMissingFields    = errors.New("email and order_id are required")
	ErrInvalidRecipient = errors.New("email must be a valid email address")
)

// OrderConfirmationRequest is the event published for the consumer. Its JSON
// form is the wire envelope the decoder accepts.
type OrderConfirmationRequest struct {
	Email   string `json:"email"`
	OrderID string `json:"order_id"`
}

// FromEchoContext binds and normalizes a request from Echo.
func FromEchoContext(ctx echo.Context) (OrderConfirmationRequest, error) {
	var req OrderConfirmationRequest
	if err := ctx.Bind(&req); err != nil {
		return OrderConfirmationRequest{}, err
	}
	req.normalize()
	return req, nil
}

// Validate checks required fields and the recipient format.
func (r *OrderConfirmationRequest) Validate() error {
	if r.Email == "" || r.OrderID == "" {
		return ErrMissingFields
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return ErrInvalidRecipient
	}
	return nil
}

// Payload encodes the request as a broker message value.
func (r OrderConfirmationRequest) Payload() ([]byte, error) {
	return json.Marshal(r)
}

// normalize trims whitespace for all fields.
func (r *OrderConfirmationRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.OrderID = strings.TrimSpace(r.OrderID)
}
