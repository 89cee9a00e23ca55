package handler

// OpenIntervalRequest represents a request to open a new price interval
type OpenIntervalRequest struct {
	ProductLabel string `json:"product_label" binding:"required"`
	Price        string `json:"price" binding:"required"`
	ValidFrom    string `json:"valid_from" binding:"required"`
	Reason       string `json:"reason,omitempty"`
}

// EditIntervalRequest represents a partial update to an existing price record.
// Omitted fields are left untouched; clear_valid_to re-opens a closed record.
type EditIntervalRequest struct {
	Price        *string `json:"price,omitempty"`
	ValidFrom    *string `json:"valid_from,omitempty"`
	ValidTo      *string `json:"valid_to,omitempty"`
	ClearValidTo bool    `json:"clear_valid_to,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// PriceRecordResponse represents a price interval in API responses
type PriceRecordResponse struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id"`
	ProductLabel string `json:"product_label"`
	Price        string `json:"price"`
	ValidFrom    string `json:"valid_from"`
	ValidTo      string `json:"valid_to,omitempty"`
	IsOpen       bool   `json:"is_open"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// FieldDiffResponse represents one field change in an edit log entry
type FieldDiffResponse struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// EditLogEntryResponse represents an edit log entry in API responses
type EditLogEntryResponse struct {
	ID       string              `json:"id"`
	RecordID string              `json:"record_id"`
	At       string              `json:"at"`
	Actor    string              `json:"actor"`
	Action   string              `json:"action"`
	Diffs    []FieldDiffResponse `json:"diffs,omitempty"`
	Reason   string              `json:"reason,omitempty"`
}

// IngestReceiptRequest represents a raw OCR extraction submitted for
// resolution. Everything is a raw string; no field is guaranteed to parse.
type IngestReceiptRequest struct {
	ReceiptID   string `json:"receipt_id,omitempty"`
	Rate        string `json:"rate"`
	Volume      string `json:"volume"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	ProductText string `json:"product_text,omitempty"`
	NeedsReview bool   `json:"needs_review"`
}

// ConfirmReceiptRequest represents a receipt confirmation, optionally carrying
// a manual product selection
type ConfirmReceiptRequest struct {
	ProductID string `json:"product_id,omitempty"`
}

// MatchDetailsResponse represents resolution evidence in API responses
type MatchDetailsResponse struct {
	MatchedRecordID string  `json:"matched_record_id"`
	PriceAccuracy   float64 `json:"price_accuracy"`
	DateAccuracy    float64 `json:"date_accuracy"`
	TextConfidence  float64 `json:"text_confidence"`
}

// ReceiptResponse represents a resolved receipt in API responses
type ReceiptResponse struct {
	ReceiptID    string                `json:"receipt_id"`
	Rate         string                `json:"rate"`
	Volume       string                `json:"volume"`
	Amount       string                `json:"amount"`
	Date         string                `json:"date"`
	ProductText  string                `json:"product_text,omitempty"`
	NeedsReview  bool                  `json:"needs_review"`
	ProductID    string                `json:"product_id,omitempty"`
	ProductLabel string                `json:"product_label,omitempty"`
	Confidence   string                `json:"confidence"`
	Method       string                `json:"method"`
	Details      *MatchDetailsResponse `json:"details,omitempty"`
	Confirmed    bool                  `json:"confirmed"`
	ResolvedAt   string                `json:"resolved_at"`
	ConfirmedAt  string                `json:"confirmed_at,omitempty"`
}

// ReceiptListResponse represents a list of resolved receipts in API responses
type ReceiptListResponse struct {
	Receipts []ReceiptResponse `json:"receipts"`
}

// LineItemResponse represents one invoice line in API responses
type LineItemResponse struct {
	ProductID     string `json:"product_id"`
	ProductLabel  string `json:"product_label"`
	ReceiptCount  int    `json:"receipt_count"`
	Quantity      string `json:"quantity"`
	AmountInclVAT string `json:"amount_incl_vat"`
	AmountExVAT   string `json:"amount_ex_vat"`
	VATAmount     string `json:"vat_amount"`
}

// InvoicePreviewResponse represents the invoice preview in API responses
type InvoicePreviewResponse struct {
	LineItems []LineItemResponse `json:"line_items"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
