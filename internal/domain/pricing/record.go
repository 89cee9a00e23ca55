package pricing

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common validation errors
var (
	ErrNonPositivePrice = errors.New("price must be positive")
	ErrEmptyLabel       = errors.New("product label cannot be empty")
	ErrInvalidDate      = errors.New("validity date is invalid")
	ErrUnauthorized     = errors.New("caller is not authorized to mutate the price ledger")
)

// EditAction identifies the kind of mutation recorded in a price record's edit log
type EditAction string

const (
	EditActionCreated EditAction = "CREATED"
	EditActionUpdated EditAction = "UPDATED"
	EditActionClosed  EditAction = "CLOSED"
)

// FieldDiff captures a single field change for the edit log
type FieldDiff struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// EditLogEntry is one append-only audit entry for a price record.
// Records are never overwritten in place; every mutation appends one of these.
type EditLogEntry struct {
	ID       uuid.UUID   `json:"id"`
	RecordID uuid.UUID   `json:"record_id"`
	At       time.Time   `json:"at"`
	Actor    string      `json:"actor"`
	Action   EditAction  `json:"action"`
	Diffs    []FieldDiff `json:"diffs,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

// PriceRecord is one price validity interval for one fuel product.
// ValidTo == nil means the interval is still open (in effect through "now").
type PriceRecord struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductLabel string          `json:"product_label"`
	Price        decimal.Decimal `json:"price"`
	ValidFrom    time.Time       `json:"valid_from"`
	ValidTo      *time.Time      `json:"valid_to,omitempty"`
	IsOpen       bool            `json:"is_open"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewPriceRecord validates inputs and builds an open interval for the given product.
// Closing the product's previously open interval is the repository's job; see
// Repository.OpenInterval.
func NewPriceRecord(productID uuid.UUID, productLabel string, price decimal.Decimal, validFrom time.Time) (*PriceRecord, error) {
	if strings.TrimSpace(productLabel) == "" {
		return nil, ErrEmptyLabel
	}
	if !price.IsPositive() {
		return nil, ErrNonPositivePrice
	}
	if validFrom.IsZero() {
		return nil, ErrInvalidDate
	}

	now := time.Now().UTC()
	return &PriceRecord{
		ID:           uuid.New(),
		ProductID:    productID,
		ProductLabel: productLabel,
		Price:        price,
		ValidFrom:    validFrom,
		ValidTo:      nil,
		IsOpen:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidThrough returns the effective end of the interval: ValidTo for closed
// records, the supplied "now" for open ones.
func (r *PriceRecord) ValidThrough(now time.Time) time.Time {
	if r.ValidTo != nil {
		return *r.ValidTo
	}
	return now
}

// Covers reports whether t falls inside [ValidFrom, ValidThrough(now)] inclusive.
func (r *PriceRecord) Covers(t, now time.Time) bool {
	return !t.Before(r.ValidFrom) && !t.After(r.ValidThrough(now))
}
