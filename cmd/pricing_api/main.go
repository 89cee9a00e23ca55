package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fuelvat/invoicing-core/internal/config"
	"github.com/fuelvat/invoicing-core/internal/data/mongo"
	"github.com/fuelvat/invoicing-core/internal/data/postgres"
	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
	"github.com/fuelvat/invoicing-core/internal/logger"
	"github.com/fuelvat/invoicing-core/internal/platform/messaging/producers"
	"github.com/fuelvat/invoicing-core/internal/platform/persistence"
	"github.com/fuelvat/invoicing-core/internal/pricing_api"
	"github.com/fuelvat/invoicing-core/internal/pricing_api/service"
	"github.com/fuelvat/invoicing-core/internal/resolver"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("pricing_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	// Initialize Kafka producer (publishes receipt extractions for the processor)
	kafkaProducer, err := producers.NewReceiptExtractionProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize receipt extraction Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	priceRepo := postgres.NewPriceRepository(log, postgresDB)
	receiptRepo := mongo.NewReceiptRepository(log, mongoDB.Database())

	// Initialize services
	authorizer := pricing.NewOperatorList(cfg.Ledger.OperatorIDs)
	ledgerService := service.NewLedgerService(log, priceRepo, authorizer)
	receiptService := service.NewReceiptService(log, receiptRepo, priceRepo, kafkaProducer, resolver.NewEngine())
	invoiceService := service.NewInvoiceService(log, receiptRepo)

	// Initialize REST server
	server := pricing_api.NewServer(log, cfg, ledgerService, receiptService, invoiceService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
