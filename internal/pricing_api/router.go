package pricing_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fuelvat/invoicing-core/internal/pricing_api/handler"
	"github.com/fuelvat/invoicing-core/internal/pricing_api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	intervalHandler *handler.IntervalHandler,
	receiptHandler *handler.ReceiptHandler,
	invoiceHandler *handler.InvoiceHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Price interval ledger operations
		intervals := v1.Group("/intervals")
		{
			intervals.POST("", intervalHandler.Create)
			intervals.GET("/current", intervalHandler.GetCurrent)
			intervals.PATCH("/:id", intervalHandler.Edit)
			intervals.GET("/:id/history", intervalHandler.GetHistory)
		}

		// Product interval history
		products := v1.Group("/products")
		{
			products.GET("/:id/intervals", intervalHandler.GetByProductID)
		}

		// Receipt resolution operations
		receipts := v1.Group("/receipts")
		{
			receipts.POST("", receiptHandler.Ingest)
			receipts.POST("/resolve", receiptHandler.Resolve)
			receipts.GET("/pending", receiptHandler.GetPending)
			receipts.GET("/:id", receiptHandler.GetByID)
			receipts.POST("/:id/confirm", receiptHandler.Confirm)
		}

		// Invoice preview
		invoices := v1.Group("/invoices")
		{
			invoices.GET("/preview", invoiceHandler.Preview)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
