package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request correlation ID on the wire.
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key the correlation ID is stored under.
	CorrelationIDKey = "correlation_id"
)

// CorrelationID propagates the caller's correlation ID, minting one when the
// request arrives without it. The ID is echoed back in the response header and
// made available to downstream handlers through the gin context.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, id)
		c.Set(CorrelationIDKey, id)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID, or "" when none was
// set on the context.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
