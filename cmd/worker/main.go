package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardforge/connector/internal/capture"
	"github.com/cardforge/connector/internal/charge"
	"github.com/cardforge/connector/internal/config"
	"github.com/cardforge/connector/internal/events"
	"github.com/cardforge/connector/internal/gateway"
	"github.com/cardforge/connector/internal/gateway/epdq"
	"github.com/cardforge/connector/internal/gateway/sandbox"
	"github.com/cardforge/connector/internal/gateway/smartpay"
	"github.com/cardforge/connector/internal/gateway/worldpay"
	"github.com/cardforge/connector/internal/gatewayaccount"
	"github.com/cardforge/connector/internal/infra"
	"github.com/cardforge/connector/internal/ledger"
	"github.com/cardforge/connector/internal/logging"
	"github.com/cardforge/connector/internal/metrics"
	"github.com/cardforge/connector/internal/parity"
	"github.com/cardforge/connector/internal/refund"
	"github.com/cardforge/connector/internal/status"
)

// The worker runs the scheduled processes: the capture batch on a short
// interval and the expunge pass on a long one.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var publisher events.Publisher = events.NewLoggerPublisher(logger)
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			logger.Error("connect rabbitmq", "error", err)
			os.Exit(1)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	accounts := gatewayaccount.NewPostgresRepository(db)
	charges := charge.NewPostgresRepository(db)
	refunds := refund.NewPostgresRepository(db)

	client := gateway.NewClient(cfg.GatewayTimeout, logger)
	registry := gateway.NewRegistry(
		worldpay.New(client, cfg.WorldpayURL, logger),
		smartpay.New(client, cfg.SmartpayURL, logger),
		epdq.New(client, cfg.EpdqURL, logger),
		sandbox.New(),
	)

	recorder := metrics.NewLogRecorder(logger)
	chargeSvc := charge.NewService(charges, accounts, status.NewTransitions(), publisher, logger)

	captureSvc := capture.NewService(charges, chargeSvc, accounts, registry, cfg.CaptureMaxRetries, logger)
	captureProcess := capture.NewProcess(charges, captureSvc, cfg.CaptureBatchSize,
		cfg.CaptureRetryInterval, cfg.CaptureMaxRetries, recorder, logger)

	reader := ledger.NewClient(cfg.LedgerURL, cfg.GatewayTimeout)
	checker := parity.NewChecker(reader, refunds, logger)
	expunger := parity.NewExpunger(charges, checker, parity.ExpungerConfig{
		Enabled:              cfg.ExpungeEnabled,
		MinAge:               cfg.ExpungeMinAge,
		ExcludeCheckedWithin: cfg.ExpungeExcludeCheckedWithin,
	}, recorder, logger)

	logger.Info("worker started",
		"capture_poll_interval", cfg.CapturePollInterval.String(),
		"expunge_poll_interval", cfg.ExpungePollInterval.String())

	go runEvery(ctx, cfg.CapturePollInterval, func() {
		if err := captureProcess.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("capture batch failed", "error", err)
		}
	})
	go runEvery(ctx, cfg.ExpungePollInterval, func() {
		if _, err := expunger.Run(ctx, cfg.ExpungeBatchSize); err != nil && ctx.Err() == nil {
			logger.Error("expunge run failed", "error", err)
		}
	})

	<-ctx.Done()
	logger.Info("worker exiting")
}

// runEvery invokes fn immediately and then on every tick until ctx ends.
func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	fn()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
