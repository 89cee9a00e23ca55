package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
)

// LedgerServiceImpl implements the LedgerService interface
type LedgerServiceImpl struct {
	priceRepo  pricing.Repository
	authorizer pricing.Authorizer
	logger     *slog.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(logger *slog.Logger, priceRepo pricing.Repository, authorizer pricing.Authorizer) LedgerService {
	return &LedgerServiceImpl{
		priceRepo:  priceRepo,
		authorizer: authorizer,
		logger:     logger,
	}
}

// OpenInterval opens a new price interval after checking the actor is an
// authorized operator. The repository closes the previously open interval for
// the product inside the same transaction.
func (s *LedgerServiceImpl) OpenInterval(ctx context.Context, actor, productLabel string, price decimal.Decimal, validFrom time.Time, reason string) (*pricing.PriceRecord, error) {
	if !s.authorizer.CanEditPrices(actor) {
		s.logger.Warn("Rejected unauthorized price interval open", "actor", actor, "product_label", productLabel)
		return nil, pricing.ErrUnauthorized
	}

	rec, err := s.priceRepo.OpenInterval(ctx, actor, productLabel, price, validFrom, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Price interval opened",
		"record_id", rec.ID,
		"product_id", rec.ProductID,
		"product_label", rec.ProductLabel,
		"price", rec.Price.String(),
		"valid_from", rec.ValidFrom,
		"actor", actor,
	)
	return rec, nil
}

// EditInterval applies a partial update to an existing record after checking
// authorization. The repository appends the field-by-field diff to the edit log.
func (s *LedgerServiceImpl) EditInterval(ctx context.Context, actor string, recordID uuid.UUID, changes pricing.IntervalChanges, reason string) (*pricing.PriceRecord, error) {
	if !s.authorizer.CanEditPrices(actor) {
		s.logger.Warn("Rejected unauthorized price interval edit", "actor", actor, "record_id", recordID)
		return nil, pricing.ErrUnauthorized
	}

	rec, err := s.priceRepo.EditInterval(ctx, actor, recordID, changes, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Price interval edited", "record_id", rec.ID, "product_id", rec.ProductID, "actor", actor)
	return rec, nil
}

// CurrentIntervals returns all open price intervals
func (s *LedgerServiceImpl) CurrentIntervals(ctx context.Context) ([]*pricing.PriceRecord, error) {
	return s.priceRepo.CurrentIntervals(ctx)
}

// IntervalsForProduct returns the full interval history for one product
func (s *LedgerServiceImpl) IntervalsForProduct(ctx context.Context, productID uuid.UUID) ([]*pricing.PriceRecord, error) {
	return s.priceRepo.IntervalsForProduct(ctx, productID)
}

// History returns the edit log for one record, oldest entry first
func (s *LedgerServiceImpl) History(ctx context.Context, recordID uuid.UUID) ([]*pricing.EditLogEntry, error) {
	return s.priceRepo.History(ctx, recordID)
}
