package handler

import (
	"errors"
	"log/slog"

	"github.com/fuelvat/invoicing-core/internal/invoice"
	"github.com/fuelvat/invoicing-core/internal/pricing_api/service"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles HTTP requests for invoice preview
type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logger         *slog.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(logger *slog.Logger, invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// Preview aggregates all confirmed receipts into invoice line items
func (h *InvoiceHandler) Preview(c *gin.Context) {
	items, err := h.invoiceService.Preview(c.Request.Context())
	if err != nil {
		if errors.Is(err, invoice.ErrUnconfirmedReceipt) || errors.Is(err, invoice.ErrUnresolvedReceipt) {
			h.logger.Error("Confirmed receipts violate the invoicing contract", "error", err)
			RespondConflict(c, err.Error())
			return
		}
		h.logger.Error("Failed to build invoice preview", "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]LineItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, LineItemResponse{
			ProductID:     item.ProductID.String(),
			ProductLabel:  item.ProductLabel,
			ReceiptCount:  item.ReceiptCount,
			Quantity:      item.Quantity.String(),
			AmountInclVAT: item.AmountInclVAT.StringFixed(2),
			AmountExVAT:   item.AmountExVAT.StringFixed(2),
			VATAmount:     item.VATAmount.StringFixed(2),
		})
	}

	RespondOK(c, InvoicePreviewResponse{LineItems: responses})
}
