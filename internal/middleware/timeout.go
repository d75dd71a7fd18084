// Package middleware provides HTTP middleware for the orchestrator's
// API. This file implements request timeout enforcement.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultRequestTimeout bounds any single API request. Every route in
// this service is a store query or a queue enqueue — pipeline
// execution happens in the worker process, never inline — so nothing
// legitimate should run longer than this.
const defaultRequestTimeout = 30 * time.Second

// Timeout enforces the default per-request deadline.
func Timeout() gin.HandlerFunc {
	return TimeoutWithDuration(defaultRequestTimeout)
}

// TimeoutWithDuration aborts a request with 408 once it has run for
// longer than timeout. The deadline is installed on the request
// context, so store queries running under c.Request.Context() are
// cancelled rather than left running after the response is written.
// The handler chain runs in its own goroutine; the deadline firing is
// treated as a failed request, never a hang.
func TimeoutWithDuration(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		finished := make(chan struct{})
		go func() {
			c.Next()
			close(finished)
		}()

		select {
		case <-finished:
		case <-ctx.Done():
			c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{
				"error":   "request timeout",
				"timeout": timeout.String(),
			})
		}
	}
}
