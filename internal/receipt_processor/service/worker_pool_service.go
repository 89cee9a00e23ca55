package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fuelvat/invoicing-core/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolResolutionService implements the ResolutionService interface by
// fanning resolutions out over a bounded worker pool. The engine itself is
// stateless, so resolutions for different receipts run concurrently without
// coordination.
type WorkerPoolResolutionService struct {
	baseService ResolutionService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolResolutionService(
	baseService ResolutionService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolResolutionService, error) {
	// Create a new worker pool with the specified size
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolResolutionService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ResolveExtraction submits a receipt extraction to the worker pool.
func (s *WorkerPoolResolutionService) ResolveExtraction(ctx context.Context, extraction *shared.ReceiptExtraction) error {
	logger := s.logger
	if extraction.CorrelationID != "" {
		logger = s.logger.With("correlation_id", extraction.CorrelationID)
	}

	logger.Info("Submitting receipt to worker pool",
		"receipt_id", extraction.ReceiptID.String(),
	)

	// Create a channel to receive the result of the resolution
	resultChan := make(chan error, 1)

	// Store the result channel in the result map
	receiptID := extraction.ReceiptID.String()
	s.mu.Lock()
	s.results[receiptID] = resultChan
	s.mu.Unlock()

	// Create a copy of the extraction to avoid data races
	extractionCopy := *extraction

	// Submit the task to the worker pool
	err := s.pool.Submit(func() {
		// Resolve the receipt using the base service
		err := s.baseService.ResolveExtraction(ctx, &extractionCopy)

		// Send the result to the channel
		resultChan <- err

		// Remove the result channel from the map
		s.mu.Lock()
		delete(s.results, receiptID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, receiptID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit receipt to worker pool",
			"receipt_id", extraction.ReceiptID.String(),
			"error", err,
		)
		return err
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolResolutionService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolResolutionService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolResolutionService) Capacity() int {
	return s.pool.Cap()
}
