package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingBrokers = errors.New("KAFKA_BOOTSTRAP_SERVERS is required")
	ErrMissingTopic   = errors.New("KAFKA_TOPIC is required")
)

type Config struct {
	KafkaBrokers         []string
	KafkaTopic           string
	KafkaGroupID         string
	KafkaOffsetReset     string
	KafkaPollTimeout     time.Duration
	KafkaProbeAttempts   int
	KafkaProbeInterval   time.Duration
	KafkaMetadataTimeout time.Duration

	SMTPServer   string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	EmailProvider string
	AWSRegion     string

	LockDriver    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN     string
	MySQLMaxOpen int
	MySQLMaxIdle int
	MySQLMaxLife time.Duration

	EmailHistoryEnabled bool

	HTTPHost string
	HTTPPort string

	LogLevel  string
	LogFormat string
}

// Load reads the environment (and an optional .env file) into a Config.
// Malformed numeric and duration values fail here rather than on first use.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BOOTSTRAP_SERVERS")),
		KafkaTopic:       strings.TrimSpace(os.Getenv("KAFKA_TOPIC")),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "email-sender-group"),
		KafkaOffsetReset: strings.ToLower(getEnv("KAFKA_OFFSET_RESET", "earliest")),
		SMTPServer:       os.Getenv("SMTP_SERVER"),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFrom:        os.Getenv("EMAIL_FROM"),
		EmailProvider:    strings.ToLower(getEnv("EMAIL_PROVIDER", "smtp")),
		AWSRegion:        getEnv("AWS_REGION", "eu-west-1"),
		LockDriver:       strings.ToLower(getEnv("LOCK_DRIVER", "none")),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		MySQLDSN:         os.Getenv("MYSQL_DSN"),
		HTTPHost:         getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	if cfg.KafkaOffsetReset != "earliest" && cfg.KafkaOffsetReset != "latest" {
		return nil, fmt.Errorf("KAFKA_OFFSET_RESET must be earliest or latest, got %q", cfg.KafkaOffsetReset)
	}

	var err error
	if cfg.KafkaPollTimeout, err = getDuration("KAFKA_POLL_TIMEOUT", time.Second); err != nil {
		return nil, err
	}
	if cfg.KafkaProbeAttempts, err = getInt("KAFKA_PROBE_ATTEMPTS", 30); err != nil {
		return nil, err
	}
	if cfg.KafkaProbeInterval, err = getDuration("KAFKA_PROBE_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.KafkaMetadataTimeout, err = getDuration("KAFKA_METADATA_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MySQLMaxOpen, err = getInt("MYSQL_MAX_OPEN", 10); err != nil {
		return nil, err
	}
	if cfg.MySQLMaxIdle, err = getInt("MYSQL_MAX_IDLE", 5); err != nil {
		return nil, err
	}
	if cfg.MySQLMaxLife, err = getDuration("MYSQL_MAX_LIFETIME", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.EmailHistoryEnabled, err = getBool("EMAIL_HISTORY_ENABLED", false); err != nil {
		return nil, err
	}

	if cfg.KafkaProbeAttempts < 1 {
		return nil, fmt.Errorf("KAFKA_PROBE_ATTEMPTS must be at least 1")
	}
	if cfg.KafkaProbeInterval <= 0 {
		return nil, fmt.Errorf("KAFKA_PROBE_INTERVAL must be positive")
	}

	return cfg, nil
}

// Validate reports the broker settings the consumer cannot start without.
func (c *Config) Validate() error {
	if len(c.KafkaBrokers) == 0 {
		return ErrMissingBrokers
	}
	if c.KafkaTopic == "" {
		return ErrMissingTopic
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
