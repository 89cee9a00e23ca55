package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/fuelvat/invoicing-core/internal/domain/pricing"
	"github.com/fuelvat/invoicing-core/internal/pricing_api/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperatorIDHeader carries the identity of the operator performing a ledger
// mutation. The ledger service decides whether that identity is authorized.
const OperatorIDHeader = "X-Operator-ID"

// IntervalHandler handles HTTP requests for price interval operations
type IntervalHandler struct {
	ledgerService service.LedgerService
	logger        *slog.Logger
}

// NewIntervalHandler creates a new interval handler
func NewIntervalHandler(logger *slog.Logger, ledgerService service.LedgerService) *IntervalHandler {
	return &IntervalHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// Create handles opening a new price interval, closing the product's
// previously open interval if one exists
func (h *IntervalHandler) Create(c *gin.Context) {
	actor := c.GetHeader(OperatorIDHeader)
	if actor == "" {
		RespondUnauthorized(c, "Missing "+OperatorIDHeader+" header")
		return
	}

	var req OpenIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		h.logger.Error("Invalid price", "price", req.Price, "error", err)
		RespondBadRequest(c, "Invalid price")
		return
	}

	validFrom, ok := parseTimestamp(req.ValidFrom)
	if !ok {
		h.logger.Error("Invalid valid_from", "valid_from", req.ValidFrom)
		RespondBadRequest(c, "Invalid valid_from: expected RFC 3339 timestamp or YYYY-MM-DD date")
		return
	}

	rec, err := h.ledgerService.OpenInterval(c.Request.Context(), actor, req.ProductLabel, price, validFrom, req.Reason)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapRecordToResponse(rec))
}

// Edit applies a partial update to an existing price record
func (h *IntervalHandler) Edit(c *gin.Context) {
	actor := c.GetHeader(OperatorIDHeader)
	if actor == "" {
		RespondUnauthorized(c, "Missing "+OperatorIDHeader+" header")
		return
	}

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid record ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	var req EditIntervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.ValidTo != nil && req.ClearValidTo {
		RespondBadRequest(c, "valid_to and clear_valid_to are mutually exclusive")
		return
	}

	var changes pricing.IntervalChanges
	changes.ClearValidTo = req.ClearValidTo
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			h.logger.Error("Invalid price", "price", *req.Price, "error", err)
			RespondBadRequest(c, "Invalid price")
			return
		}
		changes.Price = &price
	}
	if req.ValidFrom != nil {
		validFrom, ok := parseTimestamp(*req.ValidFrom)
		if !ok {
			RespondBadRequest(c, "Invalid valid_from: expected RFC 3339 timestamp or YYYY-MM-DD date")
			return
		}
		changes.ValidFrom = &validFrom
	}
	if req.ValidTo != nil {
		validTo, ok := parseTimestamp(*req.ValidTo)
		if !ok {
			RespondBadRequest(c, "Invalid valid_to: expected RFC 3339 timestamp or YYYY-MM-DD date")
			return
		}
		changes.ValidTo = &validTo
	}

	rec, err := h.ledgerService.EditInterval(c.Request.Context(), actor, id, changes, req.Reason)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondOK(c, mapRecordToResponse(rec))
}

// GetCurrent returns all open price intervals, at most one per product
func (h *IntervalHandler) GetCurrent(c *gin.Context) {
	records, err := h.ledgerService.CurrentIntervals(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get current intervals", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]PriceRecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, mapRecordToResponse(rec))
	}
	RespondOK(c, responses)
}

// GetByProductID returns the full interval history for one product
func (h *IntervalHandler) GetByProductID(c *gin.Context) {
	idParam := c.Param("id")
	productID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid product ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid product ID")
		return
	}

	records, err := h.ledgerService.IntervalsForProduct(c.Request.Context(), productID)
	if err != nil {
		h.logger.Error("Failed to get product intervals", "product_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]PriceRecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, mapRecordToResponse(rec))
	}
	RespondOK(c, responses)
}

// GetHistory returns the append-only edit log for one record, oldest first
func (h *IntervalHandler) GetHistory(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid record ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid record ID")
		return
	}

	entries, err := h.ledgerService.History(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get record history", "record_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]EditLogEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapEditLogEntryToResponse(entry))
	}
	RespondOK(c, responses)
}

// respondLedgerError maps ledger errors onto HTTP status codes
func (h *IntervalHandler) respondLedgerError(c *gin.Context, err error) {
	var notFound pricing.ErrRecordNotFound
	var openExists pricing.ErrOpenIntervalExists
	switch {
	case errors.Is(err, pricing.ErrUnauthorized):
		RespondForbidden(c, "Actor is not authorized to edit prices")
	case errors.Is(err, pricing.ErrEmptyLabel),
		errors.Is(err, pricing.ErrNonPositivePrice),
		errors.Is(err, pricing.ErrInvalidDate):
		RespondBadRequest(c, err.Error())
	case errors.As(err, &notFound):
		RespondNotFound(c, "Price record not found")
	case errors.As(err, &openExists):
		RespondConflict(c, "Product already has an open price interval")
	default:
		h.logger.Error("Ledger operation failed", "error", err)
		RespondInternalError(c)
	}
}

// parseTimestamp accepts an RFC 3339 timestamp or a bare date
func parseTimestamp(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// mapRecordToResponse maps a price record to a response DTO
func mapRecordToResponse(rec *pricing.PriceRecord) PriceRecordResponse {
	response := PriceRecordResponse{
		ID:           rec.ID.String(),
		ProductID:    rec.ProductID.String(),
		ProductLabel: rec.ProductLabel,
		Price:        rec.Price.String(),
		ValidFrom:    rec.ValidFrom.Format(time.RFC3339Nano),
		IsOpen:       rec.IsOpen,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    rec.UpdatedAt.Format(time.RFC3339),
	}
	if rec.ValidTo != nil {
		response.ValidTo = rec.ValidTo.Format(time.RFC3339Nano)
	}
	return response
}

// mapEditLogEntryToResponse maps an edit log entry to a response DTO
func mapEditLogEntryToResponse(entry *pricing.EditLogEntry) EditLogEntryResponse {
	diffs := make([]FieldDiffResponse, 0, len(entry.Diffs))
	for _, d := range entry.Diffs {
		diffs = append(diffs, FieldDiffResponse{Field: d.Field, From: d.From, To: d.To})
	}
	return EditLogEntryResponse{
		ID:       entry.ID.String(),
		RecordID: entry.RecordID.String(),
		At:       entry.At.Format(time.RFC3339),
		Actor:    entry.Actor,
		Action:   string(entry.Action),
		Diffs:    diffs,
		Reason:   entry.Reason,
	}
}
