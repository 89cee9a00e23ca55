package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fuelvat/invoicing-core/internal/domain/shared"
	"github.com/fuelvat/invoicing-core/internal/platform/messaging/producers"
	"github.com/fuelvat/invoicing-core/internal/receipt_processor/service"
	"github.com/google/uuid"
)

// ReceiptEventHandler handles incoming receipt extraction messages from Kafka
type ReceiptEventHandler struct {
	resolutionService service.ResolutionService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewReceiptEventHandler creates a new handler
func NewReceiptEventHandler(
	logger *slog.Logger,
	resolutionService service.ResolutionService,
	producer producers.DeadLetterPublisher,
) *ReceiptEventHandler {
	return &ReceiptEventHandler{
		resolutionService: resolutionService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *ReceiptEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var extraction shared.ReceiptExtraction
	if err := json.Unmarshal(value, &extraction); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal receipt extraction from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	if extraction.ReceiptID == uuid.Nil {
		// A receipt with no identity can never be confirmed or invoiced, so
		// retrying is pointless
		h.logger.Error("Receipt extraction carries no receipt ID", "message_key", string(key))
		if h.producer != nil {
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, "receipt extraction carries no receipt ID"); dlqErr == nil {
				return nil
			}
		}
		return fmt.Errorf("receipt extraction carries no receipt ID")
	}

	// Add correlation ID to logger
	logger := h.logger
	if extraction.CorrelationID != "" {
		logger = h.logger.With("correlation_id", extraction.CorrelationID)
	}

	logger.Info("Received receipt extraction for resolution",
		"receipt_id", extraction.ReceiptID.String(),
		"needs_review", extraction.NeedsReview,
	)

	if err := h.resolutionService.ResolveExtraction(ctx, &extraction); err != nil {
		logger.Error("Failed to resolve receipt",
			"receipt_id", extraction.ReceiptID.String(),
			"error", err,
		)
		return fmt.Errorf("resolving receipt %s failed: %w", extraction.ReceiptID.String(), err)
	}

	logger.Info("Successfully resolved receipt", "receipt_id", extraction.ReceiptID.String())
	return nil // Success, commit offset
}
