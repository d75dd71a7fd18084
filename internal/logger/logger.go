package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Global logger instance
var (
	Log zerolog.Logger
)

// Initialize sets up the global logger with configuration
func Initialize(level string, pretty bool) {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	if pretty {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	// Set global logger
	Log = log.With().
		Str("service", "aetherframe").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("Logger initialized")
}

// GetLogger returns the global logger instance
func GetLogger() *zerolog.Logger {
	return &Log
}

// Database creates a logger for database/store events
func Database() *zerolog.Logger {
	l := Log.With().Str("component", "database").Logger()
	return &l
}

// HTTP creates a logger for HTTP request events
func HTTP() *zerolog.Logger {
	l := Log.With().Str("component", "http").Logger()
	return &l
}

// Plugins creates a logger for plugin registry/discovery events
func Plugins() *zerolog.Logger {
	l := Log.With().Str("component", "plugins").Logger()
	return &l
}

// Pipeline creates a logger for pipeline executor events
func Pipeline() *zerolog.Logger {
	l := Log.With().Str("component", "pipeline").Logger()
	return &l
}

// Orchestrator creates a logger for orchestrator/worker events
func Orchestrator() *zerolog.Logger {
	l := Log.With().Str("component", "orchestrator").Logger()
	return &l
}

// Queue creates a logger for task queue events
func Queue() *zerolog.Logger {
	l := Log.With().Str("component", "queue").Logger()
	return &l
}
