package service

import (
	"context"
	"log/slog"

	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
	"github.com/fuelvat/invoicing-core/internal/invoice"
)

// InvoiceServiceImpl implements the InvoiceService interface
type InvoiceServiceImpl struct {
	receiptRepo receipt.Repository
	logger      *slog.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(logger *slog.Logger, receiptRepo receipt.Repository) InvoiceService {
	return &InvoiceServiceImpl{
		receiptRepo: receiptRepo,
		logger:      logger,
	}
}

// Preview aggregates all confirmed receipts into invoice line items
func (s *InvoiceServiceImpl) Preview(ctx context.Context) ([]invoice.LineItem, error) {
	confirmed, err := s.receiptRepo.ListConfirmed(ctx)
	if err != nil {
		s.logger.Error("Failed to list confirmed receipts", "error", err)
		return nil, err
	}

	items, err := invoice.Aggregate(confirmed)
	if err != nil {
		s.logger.Error("Failed to aggregate confirmed receipts", "error", err)
		return nil, err
	}

	return items, nil
}
