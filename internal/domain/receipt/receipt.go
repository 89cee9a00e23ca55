package receipt

import (
	"time"

	"github.com/google/uuid"
)

// Confidence tags how sure the resolver is about a resolved receipt
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceFlagged Confidence = "FLAGGED"
)

// Method identifies which resolution strategy produced the result
type Method string

const (
	MethodIntervalMatch Method = "INTERVAL_MATCH"
	MethodTextMatch     Method = "TEXT_MATCH"
	MethodManualReview  Method = "MANUAL_REVIEW"
)

// Input is the noisy OCR extraction for one photographed receipt. All fields
// are raw strings; nothing here is guaranteed to parse.
type Input struct {
	Rate        string `json:"rate" bson:"rate"`
	Volume      string `json:"volume" bson:"volume"`
	Amount      string `json:"amount" bson:"amount"`
	Date        string `json:"date" bson:"date"` // expected DD-MM-YY
	ProductText string `json:"product_text,omitempty" bson:"product_text,omitempty"`
	NeedsReview bool   `json:"needs_review" bson:"needs_review"`
}

// MatchDetails carries the evidence behind an automated resolution.
type MatchDetails struct {
	MatchedRecordID uuid.UUID `json:"matched_record_id" bson:"matched_record_id"`
	PriceAccuracy   float64   `json:"price_accuracy" bson:"price_accuracy"`
	DateAccuracy    float64   `json:"date_accuracy" bson:"date_accuracy"`
	TextConfidence  float64   `json:"text_confidence" bson:"text_confidence"`
}

// Resolved is a receipt input plus resolution metadata.
//
// Invariant: ConfidenceHigh or ConfidenceMedium implies ProductID and
// Details.MatchedRecordID are populated. ConfidenceFlagged carries no product
// until a human overrides it, and an override is always recorded as
// MethodManualReview with ConfidenceMedium.
type Resolved struct {
	ReceiptID     uuid.UUID     `json:"receipt_id" bson:"receipt_id"`
	Input         Input         `json:"input" bson:"input"`
	ProductID     *uuid.UUID    `json:"product_id,omitempty" bson:"product_id,omitempty"`
	ProductLabel  string        `json:"product_label,omitempty" bson:"product_label,omitempty"`
	Confidence    Confidence    `json:"confidence" bson:"confidence"`
	Method        Method        `json:"method" bson:"method"`
	Details       *MatchDetails `json:"details,omitempty" bson:"details,omitempty"`
	Confirmed     bool          `json:"confirmed" bson:"confirmed"`
	CorrelationID string        `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	ResolvedAt    time.Time     `json:"resolved_at" bson:"resolved_at"`
	ConfirmedAt   *time.Time    `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
}

// NeedsHuman reports whether the receipt cannot flow to invoicing without a
// manual selection or confirmation.
func (r *Resolved) NeedsHuman() bool {
	return r.Confidence == ConfidenceFlagged || r.Confidence == ConfidenceLow
}

// Override records a human product selection. Regardless of which automated
// path ran first, the result is a medium-confidence manual review.
func (r *Resolved) Override(productID uuid.UUID, productLabel string) {
	id := productID
	r.ProductID = &id
	r.ProductLabel = productLabel
	r.Confidence = ConfidenceMedium
	r.Method = MethodManualReview
	r.Details = nil
}
