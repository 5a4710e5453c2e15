package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benvon/portfolio/internal/config"
	"github.com/benvon/portfolio/internal/logger"
	"github.com/benvon/portfolio/internal/queue"
	"github.com/benvon/portfolio/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.LogFormat, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_not_configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		zapLogger.Info("notifier_shutdown_signal_received")
		cancel()
	}()

	relay, err := queue.ConnectWithRetry(ctx, queue.DefaultBackoff, zapLogger, func() (*queue.RabbitMQRelay, error) {
		return queue.NewRabbitMQRelay(cfg.RabbitMQURL)
	})
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := relay.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	deliveries, errs, err := relay.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("notifier_started")

	if err := workers.Consume(ctx, workers.NewNotifier(zapLogger), deliveries, errs); err != nil {
		zapLogger.Error("notifier_stopped_with_error", zap.Error(err))
		return
	}

	zapLogger.Info("notifier_stopped")
}
