package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntervalChanges is a partial update for EditInterval. Nil fields are left
// untouched. ClearValidTo re-opens a closed interval and is mutually exclusive
// with ValidTo.
type IntervalChanges struct {
	Price        *decimal.Decimal
	ValidFrom    *time.Time
	ValidTo      *time.Time
	ClearValidTo bool
}

// Repository is the transactional store behind the price interval ledger.
//
// OpenInterval must be atomic with respect to concurrent opens for the same
// product: the lookup of the product's currently open record and the paired
// close/insert happen inside one database transaction keyed by product identity.
type Repository interface {
	// OpenInterval creates a new open record for the product identified by
	// productLabel (creating the product if it is unknown). Any previously open
	// record for the same product is closed with validTo = validFrom - 1ms and a
	// CLOSED edit entry referencing the new record. A CREATED entry is appended
	// for the new record.
	OpenInterval(ctx context.Context, actor, productLabel string, price decimal.Decimal, validFrom time.Time, reason string) (*PriceRecord, error)

	// EditInterval applies a partial update to an existing record, appending an
	// UPDATED edit entry carrying the field-by-field diff. Supplying a non-nil
	// ValidTo forces the record closed; ClearValidTo re-opens it.
	EditInterval(ctx context.Context, actor string, recordID uuid.UUID, changes IntervalChanges, reason string) (*PriceRecord, error)

	// CurrentIntervals returns all open records, at most one per product.
	CurrentIntervals(ctx context.Context) ([]*PriceRecord, error)

	// IntervalsForProduct returns every record for one product, open and closed,
	// most recent ValidFrom first.
	IntervalsForProduct(ctx context.Context, productID uuid.UUID) ([]*PriceRecord, error)

	// Snapshot returns every record in the ledger in arbitrary order. This is
	// the read-only view the resolution engine consumes.
	Snapshot(ctx context.Context) ([]*PriceRecord, error)

	// History returns the edit log for one record, oldest entry first.
	History(ctx context.Context, recordID uuid.UUID) ([]*EditLogEntry, error)
}

// ErrRecordNotFound indicates a missing price record
type ErrRecordNotFound struct {
	RecordID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "price record not found: " + e.RecordID.String()
}

// Is matches any ErrRecordNotFound when the target carries a nil ID
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.RecordID == uuid.Nil {
		return true
	}
	return e.RecordID == t.RecordID
}

// ErrOpenIntervalExists indicates that re-opening a record would leave two open
// intervals for the same product
type ErrOpenIntervalExists struct {
	ProductID uuid.UUID
}

func (e ErrOpenIntervalExists) Error() string {
	return "product already has an open price interval: " + e.ProductID.String()
}
