package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("KAFKA_TOPIC", "order-created")
	t.Setenv("SMTP_PORT", "1025")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "kafka-1:9092" || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.KafkaGroupID != "email-sender-group" {
		t.Fatalf("expected default group, got %s", cfg.KafkaGroupID)
	}
	if cfg.KafkaOffsetReset != "earliest" {
		t.Fatalf("expected earliest, got %s", cfg.KafkaOffsetReset)
	}
	if cfg.KafkaPollTimeout != time.Second || cfg.KafkaProbeInterval != 2*time.Second || cfg.KafkaMetadataTimeout != 10*time.Second {
		t.Fatalf("unexpected timings: %+v", cfg)
	}
	if cfg.KafkaProbeAttempts != 30 {
		t.Fatalf("expected 30 probe attempts, got %d", cfg.KafkaProbeAttempts)
	}
	if cfg.SMTPPort != 1025 {
		t.Fatalf("expected smtp port 1025, got %d", cfg.SMTPPort)
	}
	if cfg.EmailProvider != "smtp" || cfg.LockDriver != "none" || cfg.EmailHistoryEnabled {
		t.Fatalf("unexpected optional defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("SMTP_PORT", "smtp")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric SMTP_PORT")
	}
}

func TestLoadRejectsUnknownOffsetReset(t *testing.T) {
	t.Setenv("KAFKA_OFFSET_RESET", "middle")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown offset reset policy")
	}
}

func TestLoadRejectsZeroProbeAttempts(t *testing.T) {
	t.Setenv("KAFKA_PROBE_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero probe attempts")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		err  error
	}{
		{name: "missing brokers", cfg: Config{KafkaTopic: "orders"}, err: ErrMissingBrokers},
		{name: "missing topic", cfg: Config{KafkaBrokers: []string{"kafka:9092"}}, err: ErrMissingTopic},
		{name: "valid", cfg: Config{KafkaBrokers: []string{"kafka:9092"}, KafkaTopic: "orders"}, err: nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}
