// Package middleware provides HTTP middleware for the orchestrator's
// API. This file implements structured request logging via zerolog.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aetherframe/orchestrator/internal/logger"
)

// StructuredLoggerConfig customizes StructuredLoggerWithConfig.
type StructuredLoggerConfig struct {
	SkipPaths       []string
	SkipHealthCheck bool
	LogQuery        bool
}

// DefaultStructuredLoggerConfig skips /health, logs everything else
// including query parameters.
func DefaultStructuredLoggerConfig() StructuredLoggerConfig {
	return StructuredLoggerConfig{SkipHealthCheck: true, LogQuery: true}
}

// StructuredLogger logs every request at INFO/WARN/ERROR depending on
// its status code, tagged with the request id so it can be correlated
// with downstream logs.
func StructuredLogger() gin.HandlerFunc {
	return StructuredLoggerWithConfig(DefaultStructuredLoggerConfig())
}

// StructuredLoggerWithConfig is StructuredLogger with skip/log-query
// behavior configured explicitly.
func StructuredLoggerWithConfig(config StructuredLoggerConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths)+1)
	for _, p := range config.SkipPaths {
		skip[p] = true
	}
	if config.SkipHealthCheck {
		skip["/health"] = true
	}

	log := logger.HTTP()

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] {
			c.Next()
			return
		}

		start := time.Now()
		raw := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}

		event = event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP())

		if config.LogQuery && raw != "" {
			event = event.Str("query", raw)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request handled")
	}
}
