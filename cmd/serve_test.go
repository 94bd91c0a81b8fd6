package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-order-emails/app/controller"
	"github.com/vibast-solutions/ms-go-order-emails/app/dto"
	"github.com/vibast-solutions/ms-go-order-emails/app/queue"
	"github.com/vibast-solutions/ms-go-order-emails/config"
)

type publisherStub struct {
	published []dto.OrderConfirmationRequest
}

func (p *publisherStub) Publish(_ context.Context, req dto.OrderConfirmationRequest) (string, error) {
	p.published = append(p.published, req)
	return "req-1", nil
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newOrderEmailsTestServer(pub *publisherStub) *http.Server {
	orderController := controller.NewOrderController(pub, discardLogger())
	e := setupHTTPServer(orderController, discardLogger())
	return &http.Server{Handler: e}
}

func TestSetupHTTPServerHealthRoute(t *testing.T) {
	server := newOrderEmailsTestServer(&publisherStub{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health payload: %s", rec.Body.String())
	}
}

func TestSetupHTTPServerOrderConfirmationRoute(t *testing.T) {
	pub := &publisherStub{}
	server := newOrderEmailsTestServer(pub)

	req := httptest.NewRequest(http.MethodPost, "/orders/confirmation", bytes.NewBufferString(`{"email":"a@b.com","order_id":"ORD-1"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}
	if len(pub.published) != 1 || pub.published[0].OrderID != "ORD-1" {
		t.Fatalf("unexpected published requests %+v", pub.published)
	}
}

func TestSetupHTTPServerUnknownRoute(t *testing.T) {
	server := newOrderEmailsTestServer(&publisherStub{})

	req := httptest.NewRequest(http.MethodPost, "/email/send/raw", nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestNewLogger(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.Config
		wantErr bool
		level   logrus.Level
	}{
		{name: "json info", cfg: config.Config{LogLevel: "info", LogFormat: "json"}, level: logrus.InfoLevel},
		{name: "text debug", cfg: config.Config{LogLevel: "debug", LogFormat: "text"}, level: logrus.DebugLevel},
		{name: "bad level", cfg: config.Config{LogLevel: "loud", LogFormat: "json"}, wantErr: true},
		{name: "bad format", cfg: config.Config{LogLevel: "info", LogFormat: "xml"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := newLogger(&tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newLogger: %v", err)
			}
			if logger.GetLevel() != tc.level {
				t.Fatalf("expected level %s, got %s", tc.level, logger.GetLevel())
			}
		})
	}
}

func TestBuildEmailProviderAndLocker(t *testing.T) {
	logger := discardLogger()
	res := &resources{}
	defer res.Close()

	for _, name := range []string{"", "smtp", "noop"} {
		if _, err := buildEmailProvider(&config.Config{EmailProvider: name}, logger); err != nil {
			t.Fatalf("provider %q: %v", name, err)
		}
	}
	if _, err := buildEmailProvider(&config.Config{EmailProvider: "carrier-pigeon"}, logger); err == nil {
		t.Fatalf("expected unsupported provider error")
	}

	if _, err := buildLocker(&config.Config{LockDriver: "none"}, res); err != nil {
		t.Fatalf("none locker: %v", err)
	}
	if _, err := buildLocker(&config.Config{LockDriver: "zookeeper"}, res); err == nil {
		t.Fatalf("expected unsupported locker error")
	}
	if _, err := buildLocker(&config.Config{LockDriver: "mysql"}, res); err == nil {
		t.Fatalf("expected missing MYSQL_DSN error")
	}

	history, err := buildHistory(&config.Config{}, res)
	if err != nil || history != nil {
		t.Fatalf("expected disabled history, got %v %v", history, err)
	}
}

func TestConsumeExitError(t *testing.T) {
	logger := discardLogger()

	cases := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "interrupt", err: nil},
		{name: "broker error", err: fmt.Errorf("%w: coordinator gone", queue.ErrBroker)},
		{name: "unexpected", err: fmt.Errorf("%w: boom", queue.ErrUnexpected)},
		{name: "invalid config", err: fmt.Errorf("%w: topic is required", queue.ErrInvalidConfig), wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := consumeExitError(tc.err, logger)
			if tc.wantErr != (err != nil) {
				t.Fatalf("expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}
