// Package middleware provides HTTP middleware for the orchestrator's
// API. This file implements request ID generation and correlation.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the correlation id between client and
	// server in both directions.
	RequestIDHeader = "X-Request-ID"

	// requestIDKey is the gin context key the id is stashed under.
	requestIDKey = "request_id"
)

// RequestID tags every request with a correlation id: an inbound
// X-Request-ID is honoured (so a caller chaining calls across services
// can keep one id across hops), otherwise a fresh UUID is minted. The
// id is echoed back on the response and picked up by StructuredLogger.
// The response header is set before the rest of the chain runs, so a
// request that panics downstream still returns its id to the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the correlation id RequestID assigned to this
// request, or "" when the middleware isn't installed.
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
