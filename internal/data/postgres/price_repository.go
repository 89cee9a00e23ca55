// Package postgres provides the PostgreSQL implementation of the price
// interval ledger. All interval mutations run inside database transactions
// keyed by product identity so concurrent operators cannot race the
// close-previous/insert-new sequence.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
	"github.com/fuelvat/invoicing-core/internal/platform/persistence"
)

const recordColumns = "id, product_id, product_label, price, valid_from, valid_to, is_open, created_at, updated_at"

// PriceRepository implements the pricing.Repository interface for PostgreSQL
type PriceRepository struct {
	db     persistence.TxQuerier // *pgxpool.Pool in production, pgxmock in tests
	logger *slog.Logger
}

// NewPriceRepository creates a new PostgreSQL price ledger repository
func NewPriceRepository(logger *slog.Logger, db *persistence.PostgresDB) pricing.Repository {
	return &PriceRepository{
		db:     db.Pool(),
		logger: logger,
	}
}

// OpenInterval opens a new price interval for the product named by
// productLabel, closing the product's previously open interval in the same
// transaction. The product row is locked FOR UPDATE first, which serializes
// concurrent opens for the same product.
func (r *PriceRepository) OpenInterval(ctx context.Context, actor, productLabel string, price decimal.Decimal, validFrom time.Time, reason string) (*pricing.PriceRecord, error) {
	// Validation precedes any write.
	record, err := pricing.NewPriceRecord(uuid.Nil, productLabel, price, validFrom)
	if err != nil {
		return nil, err
	}

	err = persistence.ExecuteTx(ctx, r.db, func(tx pgx.Tx) error {
		productID, err := r.upsertProduct(ctx, tx, productLabel)
		if err != nil {
			return err
		}
		record.ProductID = productID

		if err := r.lockProduct(ctx, tx, productID); err != nil {
			return err
		}

		open, err := r.openRecordForProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if open != nil {
			if err := r.closeRecord(ctx, tx, actor, open, record, validFrom.Add(-time.Millisecond)); err != nil {
				return err
			}
		}

		return r.insertRecord(ctx, tx, actor, record, reason)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// EditInterval applies a partial update to one record, recording the
// field-by-field diff in an UPDATED edit entry. Setting ValidTo forces the
// record closed; clearing it re-opens the record unless the product already
// has another open interval.
func (r *PriceRepository) EditInterval(ctx context.Context, actor string, recordID uuid.UUID, changes pricing.IntervalChanges, reason string) (*pricing.PriceRecord, error) {
	if changes.Price != nil && !changes.Price.IsPositive() {
		return nil, pricing.ErrNonPositivePrice
	}
	if changes.ValidFrom != nil && changes.ValidFrom.IsZero() {
		return nil, pricing.ErrInvalidDate
	}

	var updated *pricing.PriceRecord
	err := persistence.ExecuteTx(ctx, r.db, func(tx pgx.Tx) error {
		rec, err := r.getRecordForUpdate(ctx, tx, recordID)
		if err != nil {
			return err
		}

		diffs := applyChanges(rec, changes)
		if len(diffs) == 0 {
			updated = rec
			return nil
		}

		if changes.ClearValidTo {
			other, err := r.openRecordForProduct(ctx, tx, rec.ProductID)
			if err != nil {
				return err
			}
			if other != nil && other.ID != rec.ID {
				return pricing.ErrOpenIntervalExists{ProductID: rec.ProductID}
			}
		}

		rec.UpdatedAt = time.Now().UTC()
		query := `
			UPDATE price_records
			SET price = $1, valid_from = $2, valid_to = $3, is_open = $4, updated_at = $5
			WHERE id = $6
		`
		if _, err := tx.Exec(ctx, query, rec.Price, rec.ValidFrom, rec.ValidTo, rec.IsOpen, rec.UpdatedAt, rec.ID); err != nil {
			r.logger.Error("Failed to update price record", "id", rec.ID.String(), "error", err)
			return fmt.Errorf("failed to update price record: %w", err)
		}

		if err := r.appendEdit(ctx, tx, rec.ID, actor, pricing.EditActionUpdated, diffs, reason); err != nil {
			return err
		}

		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// CurrentIntervals returns all open records, at most one per product
func (r *PriceRepository) CurrentIntervals(ctx context.Context) ([]*pricing.PriceRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM price_records
		WHERE is_open = TRUE
		ORDER BY product_label
	`
	return r.queryRecords(ctx, query)
}

// IntervalsForProduct returns all records for one product, most recent valid_from first
func (r *PriceRepository) IntervalsForProduct(ctx context.Context, productID uuid.UUID) ([]*pricing.PriceRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM price_records
		WHERE product_id = $1
		ORDER BY valid_from DESC
	`
	return r.queryRecords(ctx, query, productID)
}

// Snapshot returns every record in the ledger for the resolution engine
func (r *PriceRepository) Snapshot(ctx context.Context) ([]*pricing.PriceRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM price_records
	`
	return r.queryRecords(ctx, query)
}

// History returns the edit log for one record, oldest entry first
func (r *PriceRepository) History(ctx context.Context, recordID uuid.UUID) ([]*pricing.EditLogEntry, error) {
	query := `
		SELECT id, record_id, at, actor, action, diffs, reason
		FROM price_record_edits
		WHERE record_id = $1
		ORDER BY at ASC
	`
	rows, err := r.db.Query(ctx, query, recordID)
	if err != nil {
		r.logger.Error("Failed to query edit log", "record_id", recordID.String(), "error", err)
		return nil, fmt.Errorf("failed to query edit log: %w", err)
	}
	defer rows.Close()

	var entries []*pricing.EditLogEntry
	for rows.Next() {
		var entry pricing.EditLogEntry
		var diffs []byte
		if err := rows.Scan(&entry.ID, &entry.RecordID, &entry.At, &entry.Actor, &entry.Action, &diffs, &entry.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan edit log entry: %w", err)
		}
		if len(diffs) > 0 {
			if err := json.Unmarshal(diffs, &entry.Diffs); err != nil {
				return nil, fmt.Errorf("failed to decode edit log diffs: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *PriceRepository) upsertProduct(ctx context.Context, tx pgx.Tx, label string) (uuid.UUID, error) {
	query := `
		INSERT INTO products (id, label)
		VALUES ($1, $2)
		ON CONFLICT (label) DO UPDATE SET label = EXCLUDED.label
		RETURNING id
	`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, uuid.New(), label).Scan(&id); err != nil {
		r.logger.Error("Failed to upsert product", "label", label, "error", err)
		return uuid.Nil, fmt.Errorf("failed to upsert product: %w", err)
	}
	return id, nil
}

func (r *PriceRepository) lockProduct(ctx context.Context, tx pgx.Tx, productID uuid.UUID) error {
	query := `
		SELECT id
		FROM products
		WHERE id = $1
		FOR UPDATE
	`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, productID).Scan(&id); err != nil {
		r.logger.Error("Failed to lock product row", "product_id", productID.String(), "error", err)
		return fmt.Errorf("failed to lock product row: %w", err)
	}
	return nil
}

func (r *PriceRepository) openRecordForProduct(ctx context.Context, tx pgx.Tx, productID uuid.UUID) (*pricing.PriceRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM price_records
		WHERE product_id = $1 AND is_open = TRUE
	`
	rec, err := scanRecord(tx.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No open interval for this product
		}
		r.logger.Error("Failed to get open record", "product_id", productID.String(), "error", err)
		return nil, fmt.Errorf("failed to get open record: %w", err)
	}
	return rec, nil
}

func (r *PriceRepository) getRecordForUpdate(ctx context.Context, tx pgx.Tx, recordID uuid.UUID) (*pricing.PriceRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM price_records
		WHERE id = $1
		FOR UPDATE
	`
	rec, err := scanRecord(tx.QueryRow(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrRecordNotFound{RecordID: recordID}
		}
		r.logger.Error("Failed to lock price record", "id", recordID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock price record: %w", err)
	}
	return rec, nil
}

func (r *PriceRepository) closeRecord(ctx context.Context, tx pgx.Tx, actor string, open, successor *pricing.PriceRecord, validTo time.Time) error {
	query := `
		UPDATE price_records
		SET valid_to = $1, is_open = FALSE, updated_at = NOW()
		WHERE id = $2
	`
	if _, err := tx.Exec(ctx, query, validTo, open.ID); err != nil {
		r.logger.Error("Failed to close price record", "id", open.ID.String(), "error", err)
		return fmt.Errorf("failed to close price record: %w", err)
	}

	diffs := []pricing.FieldDiff{
		{Field: "valid_to", From: "", To: validTo.UTC().Format(time.RFC3339Nano)},
		{Field: "is_open", From: "true", To: "false"},
	}
	reason := "superseded by interval " + successor.ID.String()
	return r.appendEdit(ctx, tx, open.ID, actor, pricing.EditActionClosed, diffs, reason)
}

func (r *PriceRepository) insertRecord(ctx context.Context, tx pgx.Tx, actor string, rec *pricing.PriceRecord, reason string) error {
	query := `
		INSERT INTO price_records (id, product_id, product_label, price, valid_from, valid_to, is_open, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.Exec(ctx, query,
		rec.ID,
		rec.ProductID,
		rec.ProductLabel,
		rec.Price,
		rec.ValidFrom,
		rec.ValidTo,
		rec.IsOpen,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert price record", "id", rec.ID.String(), "error", err)
		return fmt.Errorf("failed to insert price record: %w", err)
	}

	return r.appendEdit(ctx, tx, rec.ID, actor, pricing.EditActionCreated, nil, reason)
}

func (r *PriceRepository) appendEdit(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, actor string, action pricing.EditAction, diffs []pricing.FieldDiff, reason string) error {
	var diffJSON []byte
	if len(diffs) > 0 {
		var err error
		diffJSON, err = json.Marshal(diffs)
		if err != nil {
			return fmt.Errorf("failed to encode edit diffs: %w", err)
		}
	}

	query := `
		INSERT INTO price_record_edits (id, record_id, at, actor, action, diffs, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, query, uuid.New(), recordID, time.Now().UTC(), actor, action, diffJSON, reason); err != nil {
		r.logger.Error("Failed to append edit log entry", "record_id", recordID.String(), "error", err)
		return fmt.Errorf("failed to append edit log entry: %w", err)
	}
	return nil
}

func (r *PriceRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*pricing.PriceRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query price records", "error", err)
		return nil, fmt.Errorf("failed to query price records: %w", err)
	}
	defer rows.Close()

	var records []*pricing.PriceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// applyChanges mutates rec in place and returns the field-level diff.
// Setting valid_to is a one-way close; ClearValidTo explicitly reverses it.
func applyChanges(rec *pricing.PriceRecord, changes pricing.IntervalChanges) []pricing.FieldDiff {
	var diffs []pricing.FieldDiff

	if changes.Price != nil && !changes.Price.Equal(rec.Price) {
		diffs = append(diffs, pricing.FieldDiff{Field: "price", From: rec.Price.String(), To: changes.Price.String()})
		rec.Price = *changes.Price
	}
	if changes.ValidFrom != nil && !changes.ValidFrom.Equal(rec.ValidFrom) {
		diffs = append(diffs, pricing.FieldDiff{Field: "valid_from", From: rec.ValidFrom.UTC().Format(time.RFC3339Nano), To: changes.ValidFrom.UTC().Format(time.RFC3339Nano)})
		rec.ValidFrom = *changes.ValidFrom
	}
	if changes.ValidTo != nil {
		from := ""
		if rec.ValidTo != nil {
			from = rec.ValidTo.UTC().Format(time.RFC3339Nano)
		}
		if rec.ValidTo == nil || !rec.ValidTo.Equal(*changes.ValidTo) {
			diffs = append(diffs, pricing.FieldDiff{Field: "valid_to", From: from, To: changes.ValidTo.UTC().Format(time.RFC3339Nano)})
			to := *changes.ValidTo
			rec.ValidTo = &to
		}
		if rec.IsOpen {
			diffs = append(diffs, pricing.FieldDiff{Field: "is_open", From: "true", To: "false"})
			rec.IsOpen = false
		}
	} else if changes.ClearValidTo && rec.ValidTo != nil {
		diffs = append(diffs, pricing.FieldDiff{Field: "valid_to", From: rec.ValidTo.UTC().Format(time.RFC3339Nano), To: ""})
		rec.ValidTo = nil
		if !rec.IsOpen {
			diffs = append(diffs, pricing.FieldDiff{Field: "is_open", From: "false", To: "true"})
			rec.IsOpen = true
		}
	}

	return diffs
}

func scanRecord(row pgx.Row) (*pricing.PriceRecord, error) {
	var rec pricing.PriceRecord
	err := row.Scan(
		&rec.ID,
		&rec.ProductID,
		&rec.ProductLabel,
		&rec.Price,
		&rec.ValidFrom,
		&rec.ValidTo,
		&rec.IsOpen,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
