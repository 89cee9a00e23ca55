package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
)

const (
	// ReceiptCollectionName is the name of the resolved receipts collection in MongoDB
	ReceiptCollectionName = "resolved_receipts"
)

// ReceiptRepository implements the receipt.Repository interface for MongoDB
type ReceiptRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReceiptRepository creates a new MongoDB resolved-receipt repository
func NewReceiptRepository(logger *slog.Logger, db *mongo.Database) receipt.Repository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts the resolution outcome keyed by receipt ID. Re-running the
// resolver over the same receipt replaces the previous outcome.
func (r *ReceiptRepository) Save(ctx context.Context, resolved *receipt.Resolved) error {
	collection := r.db.Collection(ReceiptCollectionName)

	filter := bson.M{"receipt_id": resolved.ReceiptID}
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, filter, resolved, opts)
	if err != nil {
		r.logger.Error("Failed to save resolved receipt",
			"receipt_id", resolved.ReceiptID.String(),
			"error", err)
		return fmt.Errorf("failed to save resolved receipt: %w", err)
	}

	return nil
}

// GetByReceiptID retrieves one resolved receipt.
// Returns ErrReceiptNotFound if no outcome exists for the ID.
func (r *ReceiptRepository) GetByReceiptID(ctx context.Context, receiptID uuid.UUID) (*receipt.Resolved, error) {
	collection := r.db.Collection(ReceiptCollectionName)

	filter := bson.M{"receipt_id": receiptID}
	var resolved receipt.Resolved
	err := collection.FindOne(ctx, filter).Decode(&resolved)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, receipt.ErrReceiptNotFound{ReceiptID: receiptID}
		}
		r.logger.Error("Failed to get resolved receipt",
			"receipt_id", receiptID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get resolved receipt: %w", err)
	}

	return &resolved, nil
}

// ListPending returns unconfirmed receipts. Flagged and low-confidence
// receipts sort first so the review queue surfaces what needs a human; within
// a tier the newest resolution comes first.
func (r *ReceiptRepository) ListPending(ctx context.Context, limit, offset int) ([]*receipt.Resolved, error) {
	collection := r.db.Collection(ReceiptCollectionName)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"confirmed": false}}},
		{{Key: "$addFields", Value: bson.M{
			"review_rank": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{"case": bson.M{"$eq": bson.A{"$confidence", string(receipt.ConfidenceFlagged)}}, "then": 0},
					bson.M{"case": bson.M{"$eq": bson.A{"$confidence", string(receipt.ConfidenceLow)}}, "then": 1},
					bson.M{"case": bson.M{"$eq": bson.A{"$confidence", string(receipt.ConfidenceMedium)}}, "then": 2},
				},
				"default": 3,
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "review_rank", Value: 1}, {Key: "resolved_at", Value: -1}}}},
		{{Key: "$skip", Value: int64(offset)}},
		{{Key: "$limit", Value: int64(limit)}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to list pending receipts", "error", err)
		return nil, fmt.Errorf("failed to list pending receipts: %w", err)
	}
	defer cursor.Close(ctx)

	var receipts []*receipt.Resolved
	if err := cursor.All(ctx, &receipts); err != nil {
		return nil, fmt.Errorf("failed to decode pending receipts: %w", err)
	}
	return receipts, nil
}

// CountPending returns the number of unconfirmed receipts
func (r *ReceiptRepository) CountPending(ctx context.Context) (int64, error) {
	collection := r.db.Collection(ReceiptCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"confirmed": false})
	if err != nil {
		r.logger.Error("Failed to count pending receipts", "error", err)
		return 0, fmt.Errorf("failed to count pending receipts: %w", err)
	}
	return count, nil
}

// ListConfirmed returns confirmed receipts ready for invoice aggregation
func (r *ReceiptRepository) ListConfirmed(ctx context.Context) ([]*receipt.Resolved, error) {
	collection := r.db.Collection(ReceiptCollectionName)

	opts := options.Find().SetSort(bson.D{{Key: "confirmed_at", Value: 1}})
	cursor, err := collection.Find(ctx, bson.M{"confirmed": true}, opts)
	if err != nil {
		r.logger.Error("Failed to list confirmed receipts", "error", err)
		return nil, fmt.Errorf("failed to list confirmed receipts: %w", err)
	}
	defer cursor.Close(ctx)

	var receipts []*receipt.Resolved
	if err := cursor.All(ctx, &receipts); err != nil {
		return nil, fmt.Errorf("failed to decode confirmed receipts: %w", err)
	}
	return receipts, nil
}

// Confirm marks a resolved receipt as confirmed by the user
func (r *ReceiptRepository) Confirm(ctx context.Context, receiptID uuid.UUID) error {
	collection := r.db.Collection(ReceiptCollectionName)

	filter := bson.M{"receipt_id": receiptID}
	update := bson.M{"$set": bson.M{
		"confirmed":    true,
		"confirmed_at": time.Now().UTC(),
	}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to confirm receipt",
			"receipt_id", receiptID.String(),
			"error", err)
		return fmt.Errorf("failed to confirm receipt: %w", err)
	}
	if result.MatchedCount == 0 {
		return receipt.ErrReceiptNotFound{ReceiptID: receiptID}
	}

	return nil
}
