package shared

import (
	"time"

	"github.com/google/uuid"
)

// ReceiptExtraction is the Kafka message the OCR step publishes for every
// captured receipt. Fields mirror receipt.Input plus routing metadata; values
// are raw OCR output and may be empty or unparsable.
type ReceiptExtraction struct {
	ReceiptID     uuid.UUID `json:"receipt_id"`
	Rate          string    `json:"rate"`
	Volume        string    `json:"volume"`
	Amount        string    `json:"amount"`
	Date          string    `json:"date"` // expected DD-MM-YY
	ProductText   string    `json:"product_text,omitempty"`
	NeedsReview   bool      `json:"needs_review"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
