package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fuelvat/invoicing-core/internal/domain/receipt"
	"github.com/fuelvat/invoicing-core/internal/domain/shared"
	"github.com/fuelvat/invoicing-core/internal/pricing_api/middleware"
	"github.com/fuelvat/invoicing-core/internal/pricing_api/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReceiptHandler handles HTTP requests for receipt operations
type ReceiptHandler struct {
	receiptService service.ReceiptService
	logger         *slog.Logger
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(logger *slog.Logger, receiptService service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		logger:         logger,
	}
}

// Ingest accepts a raw OCR extraction and queues it for asynchronous
// resolution by the receipt processor
func (h *ReceiptHandler) Ingest(c *gin.Context) {
	var req IngestReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receiptID, ok := parseOptionalReceiptID(req.ReceiptID)
	if !ok {
		RespondBadRequest(c, "Invalid receipt ID")
		return
	}

	extraction := &shared.ReceiptExtraction{
		ReceiptID:     receiptID,
		Rate:          req.Rate,
		Volume:        req.Volume,
		Amount:        req.Amount,
		Date:          req.Date,
		ProductText:   req.ProductText,
		NeedsReview:   req.NeedsReview,
		CorrelationID: middleware.GetCorrelationID(c),
		Timestamp:     time.Now().UTC(),
	}

	id, err := h.receiptService.IngestReceipt(c.Request.Context(), extraction)
	if err != nil {
		h.logger.Error("Failed to ingest receipt", "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"receipt_id": id,
		"status":     "PENDING",
	})
}

// Resolve runs the resolution engine synchronously and returns the outcome
func (h *ReceiptHandler) Resolve(c *gin.Context) {
	var req IngestReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	receiptID, ok := parseOptionalReceiptID(req.ReceiptID)
	if !ok {
		RespondBadRequest(c, "Invalid receipt ID")
		return
	}
	if receiptID == uuid.Nil {
		receiptID = uuid.New()
	}

	in := receipt.Input{
		Rate:        req.Rate,
		Volume:      req.Volume,
		Amount:      req.Amount,
		Date:        req.Date,
		ProductText: req.ProductText,
		NeedsReview: req.NeedsReview,
	}

	resolved, err := h.receiptService.ResolveReceipt(c.Request.Context(), receiptID, in, middleware.GetCorrelationID(c))
	if err != nil {
		h.logger.Error("Failed to resolve receipt", "receipt_id", receiptID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapResolvedToResponse(resolved))
}

// GetByID retrieves a resolved receipt by its ID, returns 404 if not found
func (h *ReceiptHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid receipt ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid receipt ID")
		return
	}

	resolved, err := h.receiptService.GetReceipt(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, receipt.ErrReceiptNotFound{}) {
			RespondNotFound(c, "Receipt not found")
			return
		}
		h.logger.Error("Failed to get receipt", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapResolvedToResponse(resolved))
}

// GetPending retrieves paginated unconfirmed receipts awaiting confirmation,
// flagged and low confidence first
func (h *ReceiptHandler) GetPending(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	receipts, total, err := h.receiptService.ListPendingReceipts(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list pending receipts", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]ReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		responses = append(responses, mapResolvedToResponse(r))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Confirm marks a receipt as confirmed, optionally recording a manual product
// selection first
func (h *ReceiptHandler) Confirm(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid receipt ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid receipt ID")
		return
	}

	var req ConfirmReceiptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	var overrideProductID *uuid.UUID
	if req.ProductID != "" {
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			h.logger.Error("Invalid product ID", "product_id", req.ProductID, "error", err)
			RespondBadRequest(c, "Invalid product ID")
			return
		}
		overrideProductID = &productID
	}

	resolved, err := h.receiptService.ConfirmReceipt(c.Request.Context(), id, overrideProductID)
	if err != nil {
		switch {
		case errors.Is(err, receipt.ErrReceiptNotFound{}):
			RespondNotFound(c, "Receipt not found")
		case errors.Is(err, service.ErrNoProductSelected),
			errors.Is(err, service.ErrUnknownProduct):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to confirm receipt", "id", idParam, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapResolvedToResponse(resolved))
}

// parseOptionalReceiptID parses a receipt ID, treating an empty string as
// "assign one"
func parseOptionalReceiptID(raw string) (uuid.UUID, bool) {
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// mapResolvedToResponse maps a resolved receipt to a response DTO
func mapResolvedToResponse(r *receipt.Resolved) ReceiptResponse {
	response := ReceiptResponse{
		ReceiptID:    r.ReceiptID.String(),
		Rate:         r.Input.Rate,
		Volume:       r.Input.Volume,
		Amount:       r.Input.Amount,
		Date:         r.Input.Date,
		ProductText:  r.Input.ProductText,
		NeedsReview:  r.Input.NeedsReview,
		ProductLabel: r.ProductLabel,
		Confidence:   string(r.Confidence),
		Method:       string(r.Method),
		Confirmed:    r.Confirmed,
		ResolvedAt:   r.ResolvedAt.Format(time.RFC3339),
	}
	if r.ProductID != nil {
		response.ProductID = r.ProductID.String()
	}
	if r.Details != nil {
		response.Details = &MatchDetailsResponse{
			MatchedRecordID: r.Details.MatchedRecordID.String(),
			PriceAccuracy:   r.Details.PriceAccuracy,
			DateAccuracy:    r.Details.DateAccuracy,
			TextConfidence:  r.Details.TextConfidence,
		}
	}
	if r.ConfirmedAt != nil {
		response.ConfirmedAt = r.ConfirmedAt.Format(time.RFC3339)
	}
	return response
}
