package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
	"github.com/fuelvat/invoicing-core/internal/domain/shared"
	"github.com/fuelvat/invoicing-core/internal/platform/messaging/producers"
	"github.com/fuelvat/invoicing-core/internal/resolver"
)

// ErrNoProductSelected indicates a confirmation attempt on a receipt that has
// no resolved product and no manual override
var ErrNoProductSelected = errors.New("receipt has no resolved product; a manual product selection is required")

// ErrUnknownProduct indicates a manual override naming a product the ledger
// has never priced
var ErrUnknownProduct = errors.New("override product is not present in the price ledger")

// ReceiptServiceImpl implements the ReceiptService interface
type ReceiptServiceImpl struct {
	receiptRepo receipt.Repository
	priceRepo   pricing.Repository
	producer    producers.MessagePublisher
	engine      *resolver.Engine
	logger      *slog.Logger
}

// NewReceiptService creates a new receipt service
func NewReceiptService(logger *slog.Logger, receiptRepo receipt.Repository, priceRepo pricing.Repository, producer producers.MessagePublisher, engine *resolver.Engine) ReceiptService {
	return &ReceiptServiceImpl{
		receiptRepo: receiptRepo,
		priceRepo:   priceRepo,
		producer:    producer,
		engine:      engine,
		logger:      logger,
	}
}

// IngestReceipt publishes an OCR extraction for asynchronous resolution by the
// receipt processor. Receipts without an ID are assigned one so the caller can
// poll for the outcome.
func (s *ReceiptServiceImpl) IngestReceipt(ctx context.Context, extraction *shared.ReceiptExtraction) (uuid.UUID, error) {
	if extraction.ReceiptID == uuid.Nil {
		extraction.ReceiptID = uuid.New()
	}
	if extraction.Timestamp.IsZero() {
		extraction.Timestamp = time.Now().UTC()
	}

	key := extraction.ReceiptID.String()
	if err := s.producer.Publish(ctx, key, extraction); err != nil {
		s.logger.Error("Failed to publish receipt extraction",
			"receipt_id", extraction.ReceiptID,
			"error", err,
		)
		return uuid.Nil, err
	}

	s.logger.Info("Receipt extraction published", "receipt_id", extraction.ReceiptID)
	return extraction.ReceiptID, nil
}

// ResolveReceipt runs the resolution engine synchronously against the current
// ledger snapshot and persists the outcome. Used when the caller wants the
// verdict in the response rather than through the async pipeline.
func (s *ReceiptServiceImpl) ResolveReceipt(ctx context.Context, receiptID uuid.UUID, in receipt.Input, correlationID string) (*receipt.Resolved, error) {
	snapshot, err := s.priceRepo.Snapshot(ctx)
	if err != nil {
		s.logger.Error("Failed to load ledger snapshot", "error", err)
		return nil, err
	}

	outcome := s.engine.Resolve(in, snapshot, resolver.BuildIndex(snapshot))

	resolved := &receipt.Resolved{
		ReceiptID:     receiptID,
		Input:         in,
		ProductID:     outcome.ProductID,
		ProductLabel:  outcome.ProductLabel,
		Confidence:    outcome.Confidence,
		Method:        outcome.Method,
		Details:       outcome.Details,
		CorrelationID: correlationID,
		ResolvedAt:    time.Now().UTC(),
	}

	if err := s.receiptRepo.Save(ctx, resolved); err != nil {
		s.logger.Error("Failed to save resolved receipt", "receipt_id", receiptID, "error", err)
		return nil, err
	}

	s.logger.Info("Receipt resolved",
		"receipt_id", receiptID,
		"confidence", string(resolved.Confidence),
		"method", string(resolved.Method),
	)
	return resolved, nil
}

// GetReceipt retrieves one resolved receipt
func (s *ReceiptServiceImpl) GetReceipt(ctx context.Context, receiptID uuid.UUID) (*receipt.Resolved, error) {
	return s.receiptRepo.GetByReceiptID(ctx, receiptID)
}

// ListPendingReceipts returns paginated unconfirmed receipts plus the total
// pending count
func (s *ReceiptServiceImpl) ListPendingReceipts(ctx context.Context, page, perPage int) ([]*receipt.Resolved, int64, error) {
	offset := (page - 1) * perPage

	receipts, err := s.receiptRepo.ListPending(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.receiptRepo.CountPending(ctx)
	if err != nil {
		return nil, 0, err
	}

	return receipts, total, nil
}

// ConfirmReceipt marks a receipt as confirmed, optionally recording a manual
// product override first. A receipt with no resolved product cannot be
// confirmed without an override.
func (s *ReceiptServiceImpl) ConfirmReceipt(ctx context.Context, receiptID uuid.UUID, overrideProductID *uuid.UUID) (*receipt.Resolved, error) {
	resolved, err := s.receiptRepo.GetByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, err
	}

	if overrideProductID != nil {
		records, err := s.priceRepo.IntervalsForProduct(ctx, *overrideProductID)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, ErrUnknownProduct
		}

		resolved.Override(*overrideProductID, records[0].ProductLabel)
		if err := s.receiptRepo.Save(ctx, resolved); err != nil {
			s.logger.Error("Failed to save receipt override", "receipt_id", receiptID, "error", err)
			return nil, err
		}
		s.logger.Info("Receipt product overridden",
			"receipt_id", receiptID,
			"product_id", overrideProductID,
			"product_label", resolved.ProductLabel,
		)
	} else if resolved.ProductID == nil {
		return nil, ErrNoProductSelected
	}

	if err := s.receiptRepo.Confirm(ctx, receiptID); err != nil {
		return nil, err
	}

	s.logger.Info("Receipt confirmed", "receipt_id", receiptID)
	return s.receiptRepo.GetByReceiptID(ctx, receiptID)
}
