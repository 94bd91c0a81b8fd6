package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-order-emails/app/lock"
	"github.com/vibast-solutions/ms-go-order-emails/app/provider"
	"github.com/vibast-solutions/ms-go-order-emails/app/repository"
	"github.com/vibast-solutions/ms-go-order-emails/app/service"
	"github.com/vibast-solutions/ms-go-order-emails/config"
)

// resources collects the optional backing stores so they can be closed together.
type resources struct {
	db  *sql.DB
	rdb *redis.Client
}

func (r *resources) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
	if r.rdb != nil {
		_ = r.rdb.Close()
	}
}

func (r *resources) mysql(cfg *config.Config) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	if cfg.MySQLDSN == "" {
		return nil, fmt.Errorf("MYSQL_DSN is required")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MySQLMaxOpen)
	db.SetMaxIdleConns(cfg.MySQLMaxIdle)
	db.SetConnMaxLifetime(cfg.MySQLMaxLife)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	r.db = db
	return db, nil
}

func (r *resources) redis(cfg *config.Config) (*redis.Client, error) {
	if r.rdb != nil {
		return r.rdb, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	r.rdb = rdb
	return rdb, nil
}

func buildEmailProvider(cfg *config.Config, logger logrus.FieldLogger) (provider.EmailProvider, error) {
	switch strings.ToLower(cfg.EmailProvider) {
	case "", "smtp":
		return provider.NewSMTPProvider(provider.SMTPConfig{
			Host:     cfg.SMTPServer,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			Source:   cfg.EmailFrom,
		}), nil
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, err
		}
		return provider.NewSESProvider(awsCfg, cfg.EmailFrom), nil
	case "noop":
		return provider.NewNoopProvider(logger), nil
	default:
		return nil, fmt.Errorf("unsupported EMAIL_PROVIDER: %s", cfg.EmailProvider)
	}
}

func buildLocker(cfg *config.Config, res *resources) (lock.Locker, error) {
	switch strings.ToLower(cfg.LockDriver) {
	case "", "none":
		return lock.NoopLocker{}, nil
	case "redis":
		rdb, err := res.redis(cfg)
		if err != nil {
			return nil, err
		}
		return lock.NewRedisLocker(rdb), nil
	case "mysql":
		db, err := res.mysql(cfg)
		if err != nil {
			return nil, err
		}
		return lock.NewMySQLLocker(db), nil
	default:
		return nil, fmt.Errorf("unsupported LOCK_DRIVER: %s", cfg.LockDriver)
	}
}

// buildHistory returns nil when history is disabled; the service then skips it.
func buildHistory(cfg *config.Config, res *resources) (service.EmailHistory, error) {
	if !cfg.EmailHistoryEnabled {
		return nil, nil
	}
	db, err := res.mysql(cfg)
	if err != nil {
		return nil, err
	}
	return repository.NewEmailHistoryRepository(db), nil
}
