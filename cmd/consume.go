package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-order-emails/app/dto"
	"github.com/vibast-solutions/ms-go-order-emails/app/preparer"
	"github.com/vibast-solutions/ms-go-order-emails/app/queue"
	"github.com/vibast-solutions/ms-go-order-emails/app/service"
	"github.com/vibast-solutions/ms-go-order-emails/config"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume broker messages",
	Long:  "Consume messages from Kafka topics.",
}

// init registers consume subcommands.
func init() {
	consumeCmd.AddCommand(consumeOrdersCmd)
	rootCmd.AddCommand(consumeCmd)
}

var consumeOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Start the order confirmation consumer",
	Long:  "Wait for the order topic, then read order events and send one confirmation email per event.",
	Args:  cobra.NoArgs,
	RunE:  runConsumeOrders,
}

// runConsumeOrders wires the consumer and blocks until SIGINT/SIGTERM or a
// fatal broker error.
func runConsumeOrders(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Error("Missing bootstrap servers or topic name")
		return err
	}

	consumer, closeAll, err := buildOrderConsumer(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to build consumer")
		return err
	}
	defer closeAll()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		select {
		case sig := <-quit:
			logger.WithField("signal", sig.String()).Info("Received shutdown signal, stopping consumer...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return consumeExitError(consumer.Run(ctx), logger)
}

// consumeExitError maps the consumer result to the process exit. Broker and
// unexpected failures take the same shutdown path as an interrupt and exit
// zero; only configuration errors exit non-zero.
func consumeExitError(err error, logger logrus.FieldLogger) error {
	switch {
	case err == nil:
		logger.Info("Consumer stopped")
		return nil
	case errors.Is(err, queue.ErrInvalidConfig):
		logger.WithError(err).Error("Consumer configuration is invalid")
		return err
	default:
		logger.WithError(err).Error("Consumer stopped after fatal error")
		return nil
	}
}

func buildOrderConsumer(cfg *config.Config, logger *logrus.Logger) (*queue.OrderConsumer, func(), error) {
	res := &resources{}

	emailProvider, err := buildEmailProvider(cfg, logger)
	if err != nil {
		res.Close()
		return nil, nil, fmt.Errorf("build email provider: %w", err)
	}
	locker, err := buildLocker(cfg, res)
	if err != nil {
		res.Close()
		return nil, nil, fmt.Errorf("build locker: %w", err)
	}
	history, err := buildHistory(cfg, res)
	if err != nil {
		res.Close()
		return nil, nil, fmt.Errorf("build email history: %w", err)
	}

	renderer, err := preparer.NewEmbeddedRenderer()
	if err != nil {
		res.Close()
		return nil, nil, fmt.Errorf("load templates: %w", err)
	}
	emailPreparer := preparer.NewChain(
		preparer.NewOrderConfirmationStep(renderer),
		preparer.NewMultipartPreparer(cfg.EmailFrom),
	)
	emailService := service.NewEmailService(emailPreparer, emailProvider, history, locker, logger)

	prober := queue.NewTopicProber(
		queue.NewMetadataClient(cfg.KafkaBrokers, cfg.KafkaMetadataTimeout),
		queue.ProbeConfig{
			MaxAttempts:     cfg.KafkaProbeAttempts,
			RetryInterval:   cfg.KafkaProbeInterval,
			MetadataTimeout: cfg.KafkaMetadataTimeout,
		},
		logger,
	)

	consumer := queue.NewOrderConsumer(
		queue.ConsumerConfig{
			Brokers:     cfg.KafkaBrokers,
			Topic:       cfg.KafkaTopic,
			GroupID:     cfg.KafkaGroupID,
			OffsetReset: queue.OffsetReset(cfg.KafkaOffsetReset),
			PollTimeout: cfg.KafkaPollTimeout,
		},
		prober,
		queue.NewKafkaReader,
		dto.NewOrderConfirmationDecoder(logger),
		emailService,
		logger,
	)

	return consumer, res.Close, nil
}
