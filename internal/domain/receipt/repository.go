package receipt

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores resolution outcomes between the processor and the user
// confirmation flow.
type Repository interface {
	// Save inserts or replaces a resolved receipt keyed by receipt ID. Re-running
	// the resolver over the same receipt overwrites the previous outcome.
	Save(ctx context.Context, resolved *Resolved) error

	// GetByReceiptID retrieves one resolved receipt.
	// Returns ErrReceiptNotFound if no outcome exists for the ID.
	GetByReceiptID(ctx context.Context, receiptID uuid.UUID) (*Resolved, error)

	// ListPending returns unconfirmed receipts, flagged and low confidence first,
	// newest resolution first within a tier.
	ListPending(ctx context.Context, limit, offset int) ([]*Resolved, error)

	// CountPending returns the number of unconfirmed receipts.
	CountPending(ctx context.Context) (int64, error)

	// ListConfirmed returns confirmed receipts ready for invoice aggregation.
	ListConfirmed(ctx context.Context) ([]*Resolved, error)

	// Confirm marks a resolved receipt as confirmed by the user.
	Confirm(ctx context.Context, receiptID uuid.UUID) error
}

// ErrReceiptNotFound indicates a missing resolution outcome
type ErrReceiptNotFound struct {
	ReceiptID uuid.UUID
}

func (e ErrReceiptNotFound) Error() string {
	return "resolved receipt not found: " + e.ReceiptID.String()
}

// Is matches any ErrReceiptNotFound when the target carries a nil ID
func (e ErrReceiptNotFound) Is(target error) bool {
	t, ok := target.(ErrReceiptNotFound)
	if !ok {
		return false
	}
	if t.ReceiptID == uuid.Nil {
		return true
	}
	return e.ReceiptID == t.ReceiptID
}
