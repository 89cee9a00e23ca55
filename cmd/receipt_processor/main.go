package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fuelvat/invoicing-core/internal/config"
	"github.com/fuelvat/invoicing-core/internal/data/mongo"
	"github.com/fuelvat/invoicing-core/internal/data/postgres"
	"github.com/fuelvat/invoicing-core/internal/logger"
	"github.com/fuelvat/invoicing-core/internal/platform/messaging/consumers"
	"github.com/fuelvat/invoicing-core/internal/platform/messaging/producers"
	"github.com/fuelvat/invoicing-core/internal/platform/persistence"
	"github.com/fuelvat/invoicing-core/internal/receipt_processor/consumer"
	"github.com/fuelvat/invoicing-core/internal/receipt_processor/service"
	"github.com/fuelvat/invoicing-core/internal/resolver"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("receipt_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Receipt Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	priceRepo := postgres.NewPriceRepository(log, postgresDB)
	receiptRepo := mongo.NewReceiptRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// NewDLQProducer returns nil when DLQTopic is not configured. The handler
	// checks its publisher interface against nil, so the interface must stay
	// nil rather than wrap a nil *DLQProducer.
	var dlqPublisher producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlqPublisher = dlqProducer
	}

	// Initialize resolution service behind a worker pool
	baseService := service.NewResolutionService(log, priceRepo, receiptRepo, resolver.NewEngine())
	resolutionService, err := service.NewWorkerPoolResolutionService(
		baseService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize receipt event handler
	receiptEventHandler := consumer.NewReceiptEventHandler(
		log,
		resolutionService,
		dlqPublisher,
	)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.ReceiptTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.ReceiptTopic, cfg.Kafka.ConsumerGroup, receiptEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", resolutionService.Running())
	resolutionService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Receipt Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Receipt Processor shutdown completed with errors")
	} else {
		log.Info("Receipt Processor shutdown completed successfully")
	}
}
