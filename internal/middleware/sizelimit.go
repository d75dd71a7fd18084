// Package middleware: request body size limits.
//
// Job submissions, event ingestion, and plugin registration all arrive
// as small JSON bodies; a job names data that already lives on disk (a
// target_path, a reference_path) rather than uploading the binary —
// this engine has no multipart upload surface, so
// the limits here guard against oversized or malformed JSON payloads,
// not large file transfers.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// MaxRequestBodySize bounds any request body this API accepts by
	// default, ahead of the per-route limits below.
	MaxRequestBodySize int64 = 10 * 1024 * 1024 // 10 MB

	// MaxJSONPayloadSize bounds job/event/plugin submission bodies.
	// A job's options map or a plugin registration body is never this
	// large in practice; the limit exists to reject a malformed or
	// abusive client before it reaches JSON decoding.
	MaxJSONPayloadSize int64 = 5 * 1024 * 1024 // 5 MB
)

// RequestSizeLimiter rejects any request whose declared Content-Length
// exceeds maxSize, and additionally wraps the body in a MaxBytesReader
// so a client that lies about Content-Length (or omits it) still can't
// exceed the limit once the handler starts reading.
func RequestSizeLimiter(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxSize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":       "request entity too large",
				"message":     "request body exceeds the maximum allowed size",
				"max_size_mb": float64(maxSize) / (1024 * 1024),
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// JSONSizeLimiter bounds the create-job/create-event/create-plugin
// routes, all of which decode a JSON body.
func JSONSizeLimiter() gin.HandlerFunc {
	return RequestSizeLimiter(MaxJSONPayloadSize)
}

// DefaultSizeLimiter is the router-wide fallback applied ahead of any
// route-specific limiter.
func DefaultSizeLimiter() gin.HandlerFunc {
	return RequestSizeLimiter(MaxRequestBodySize)
}
