package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/prohmpiriya/eventic-admission/internal/di"
	"github.com/prohmpiriya/eventic-admission/internal/repository"
	"github.com/prohmpiriya/eventic-admission/internal/worker"
	"github.com/prohmpiriya/eventic-admission/pkg/config"
	"github.com/prohmpiriya/eventic-admission/pkg/database"
	"github.com/prohmpiriya/eventic-admission/pkg/kafka"
	"github.com/prohmpiriya/eventic-admission/pkg/logger"
	"github.com/prohmpiriya/eventic-admission/pkg/retry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "outbox-relay",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Outbox Relay...", zap.String("topic", cfg.Outbox.Topic))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	db, err := database.NewPostgres(ctx, di.PostgresConfig(cfg))
	if err != nil {
		appLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Initialize Kafka producer
	producerCfg := kafka.DefaultProducerConfig()
	producerCfg.Brokers = cfg.Kafka.Brokers
	producerCfg.ClientID = cfg.Kafka.ClientID + "-outbox"
	producer, err := kafka.NewProducer(ctx, producerCfg)
	if err != nil {
		appLog.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected", zap.Strings("brokers", cfg.Kafka.Brokers))

	relay := worker.NewOutboxRelay(repository.NewPostgresOutboxRepository(db.Pool()), producer, &worker.OutboxRelayConfig{
		PollInterval:         cfg.Outbox.PollInterval,
		BatchSize:            cfg.Outbox.BatchSize,
		RetryInterval:        cfg.Outbox.RetryInterval,
		CleanupInterval:      cfg.Outbox.CleanupInterval,
		CleanupRetentionDays: cfg.Outbox.CleanupRetentionDays,
		Publish:              retry.DefaultConfig(),
	})
	if err := relay.Start(ctx); err != nil {
		appLog.Fatal("Failed to start outbox relay", zap.Error(err))
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down outbox relay...")
	relay.Stop()
	cancel()
}
