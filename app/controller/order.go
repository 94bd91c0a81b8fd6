package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-order-emails/app/dto"
)

type Publisher interface {
	Publish(ctx context.Context, req dto.OrderConfirmationRequest) (string, error)
}

type OrderController struct {
	publisher Publisher
	logger    logrus.FieldLogger
}

// NewOrderController constructs the HTTP order confirmation controller.
func NewOrderController(publisher Publisher, logger logrus.FieldLogger) *OrderController {
	return &OrderController{publisher: publisher, logger: logger}
}

// RequestConfirmation validates the request and enqueues an order event for
// the email consumer.
func (c *OrderController) RequestConfirmation(ctx echo.Context) error {
	req, err := dto.FromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	requestID, err := c.publisher.Publish(ctx.Request().Context(), req)
	if err != nil {
		c.logger.WithError(err).WithField("order_id", req.OrderID).Error("Failed to publish order event")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to queue order confirmation"})
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{
		"message":    "order confirmation accepted",
		"request_id": requestID,
	})
}
