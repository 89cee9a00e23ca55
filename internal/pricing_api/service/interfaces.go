package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
	"github.com/fuelvat/invoicing-core/internal/domain/shared"
	"github.com/fuelvat/invoicing-core/internal/invoice"
)

// LedgerService defines the interface for price interval ledger operations
type LedgerService interface {
	// OpenInterval opens a new price interval for the product with the given
	// label, closing the previously open interval if one exists
	// Returns pricing.ErrUnauthorized if the actor is not an operator
	OpenInterval(ctx context.Context, actor, productLabel string, price decimal.Decimal, validFrom time.Time, reason string) (*pricing.PriceRecord, error)

	// EditInterval applies a partial update to an existing price record
	// Returns pricing.ErrUnauthorized if the actor is not an operator and
	// pricing.ErrRecordNotFound if the record does not exist
	EditInterval(ctx context.Context, actor string, recordID uuid.UUID, changes pricing.IntervalChanges, reason string) (*pricing.PriceRecord, error)

	// CurrentIntervals returns all open price intervals, at most one per product
	CurrentIntervals(ctx context.Context) ([]*pricing.PriceRecord, error)

	// IntervalsForProduct returns the full interval history for one product,
	// most recent first
	IntervalsForProduct(ctx context.Context, productID uuid.UUID) ([]*pricing.PriceRecord, error)

	// History returns the append-only edit log for one record, oldest first
	History(ctx context.Context, recordID uuid.UUID) ([]*pricing.EditLogEntry, error)
}

// ReceiptService defines the interface for receipt ingestion, resolution and
// confirmation
type ReceiptService interface {
	// IngestReceipt publishes an OCR extraction for asynchronous resolution
	// and returns the receipt ID assigned to it
	IngestReceipt(ctx context.Context, extraction *shared.ReceiptExtraction) (uuid.UUID, error)

	// ResolveReceipt runs the resolution engine synchronously against the
	// current ledger snapshot and persists the outcome
	ResolveReceipt(ctx context.Context, receiptID uuid.UUID, in receipt.Input, correlationID string) (*receipt.Resolved, error)

	// GetReceipt retrieves one resolved receipt
	// Returns receipt.ErrReceiptNotFound if no outcome exists for the ID
	GetReceipt(ctx context.Context, receiptID uuid.UUID) (*receipt.Resolved, error)

	// ListPendingReceipts returns paginated unconfirmed receipts plus the total
	// pending count, flagged and low confidence first
	ListPendingReceipts(ctx context.Context, page, perPage int) ([]*receipt.Resolved, int64, error)

	// ConfirmReceipt marks a receipt as confirmed. A non-nil overrideProductID
	// records a manual product selection before confirming; receipts without a
	// resolved product cannot be confirmed without one
	ConfirmReceipt(ctx context.Context, receiptID uuid.UUID, overrideProductID *uuid.UUID) (*receipt.Resolved, error)
}

// InvoiceService defines the interface for invoice preview aggregation
type InvoiceService interface {
	// Preview aggregates all confirmed receipts into invoice line items
	Preview(ctx context.Context) ([]invoice.LineItem, error)
}
