package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
	"github.com/fuelvat/invoicing-core/internal/domain/shared"
	"github.com/fuelvat/invoicing-core/internal/resolver"
)

// ResolutionServiceImpl implements the ResolutionService interface
type ResolutionServiceImpl struct {
	priceRepo   pricing.Repository
	receiptRepo receipt.Repository
	engine      *resolver.Engine
	logger      *slog.Logger
}

// NewResolutionService creates a new resolution service
func NewResolutionService(
	logger *slog.Logger,
	priceRepo pricing.Repository,
	receiptRepo receipt.Repository,
	engine *resolver.Engine,
) ResolutionService {
	return &ResolutionServiceImpl{
		priceRepo:   priceRepo,
		receiptRepo: receiptRepo,
		engine:      engine,
		logger:      logger,
	}
}

// ResolveExtraction runs the resolution engine over one receipt extraction and
// persists the outcome. Errors are infrastructure failures only; a receipt the
// engine cannot place is saved as a flagged manual-review outcome, not failed.
func (s *ResolutionServiceImpl) ResolveExtraction(ctx context.Context, extraction *shared.ReceiptExtraction) error {
	logger := s.logger
	if extraction.CorrelationID != "" {
		logger = s.logger.With("correlation_id", extraction.CorrelationID)
	}

	snapshot, err := s.priceRepo.Snapshot(ctx)
	if err != nil {
		logger.Error("Failed to load ledger snapshot", "receipt_id", extraction.ReceiptID.String(), "error", err)
		return fmt.Errorf("failed to load ledger snapshot: %w", err)
	}

	in := receipt.Input{
		Rate:        extraction.Rate,
		Volume:      extraction.Volume,
		Amount:      extraction.Amount,
		Date:        extraction.Date,
		ProductText: extraction.ProductText,
		NeedsReview: extraction.NeedsReview,
	}
	outcome := s.engine.Resolve(in, snapshot, resolver.BuildIndex(snapshot))

	resolved := &receipt.Resolved{
		ReceiptID:     extraction.ReceiptID,
		Input:         in,
		ProductID:     outcome.ProductID,
		ProductLabel:  outcome.ProductLabel,
		Confidence:    outcome.Confidence,
		Method:        outcome.Method,
		Details:       outcome.Details,
		CorrelationID: extraction.CorrelationID,
		ResolvedAt:    time.Now().UTC(),
	}

	if err := s.receiptRepo.Save(ctx, resolved); err != nil {
		logger.Error("Failed to save resolved receipt", "receipt_id", extraction.ReceiptID.String(), "error", err)
		return fmt.Errorf("failed to save resolved receipt %s: %w", extraction.ReceiptID.String(), err)
	}

	logger.Info("Receipt resolved",
		"receipt_id", extraction.ReceiptID.String(),
		"confidence", string(resolved.Confidence),
		"method", string(resolved.Method),
		"product_label", resolved.ProductLabel,
	)
	return nil
}
