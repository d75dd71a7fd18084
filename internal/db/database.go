// Package db provides PostgreSQL database access and management for the
// orchestration engine.
//
// Purpose:
// - Establish and maintain a PostgreSQL connection pool
// - Initialize the six-table schema on startup (plugins, jobs, findings,
//   artifacts, trace_events, events)
// - Provide per-entity repositories for the rest of the application
// - Validate database configuration before building a connection string
//
// Implementation Details:
// - Uses database/sql with the lib/pq PostgreSQL driver
// - Connection pool configured for a single analysis-engine process
// - Schema initialization runs CREATE TABLE IF NOT EXISTS on startup
package db

import (
	"database/sql"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Config holds database configuration.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Database represents the database connection.
type Database struct {
	db *sql.DB
}

// validateConfig validates database configuration to prevent SQL
// injection via a malformed connection string.
func validateConfig(config Config) error {
	if config.Host == "" {
		return fmt.Errorf("database host cannot be empty")
	}
	if net.ParseIP(config.Host) == nil {
		hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-\.]{0,253}[a-zA-Z0-9])?$`)
		if !hostnameRegex.MatchString(config.Host) {
			return fmt.Errorf("invalid database host: %s", config.Host)
		}
	}

	if config.Port == "" {
		return fmt.Errorf("database port cannot be empty")
	}
	port, err := strconv.Atoi(config.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid database port: %s (must be 1-65535)", config.Port)
	}

	if config.User == "" {
		return fmt.Errorf("database user cannot be empty")
	}
	userRegex := regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	if !userRegex.MatchString(config.User) {
		return fmt.Errorf("invalid database user: %s (only alphanumeric, underscore, and hyphen allowed)", config.User)
	}

	if config.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	dbNameRegex := regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	if !dbNameRegex.MatchString(config.DBName) {
		return fmt.Errorf("invalid database name: %s (only alphanumeric, underscore, and hyphen allowed)", config.DBName)
	}

	validSSLModes := []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	if config.SSLMode != "" {
		valid := false
		for _, mode := range validSSLModes {
			if config.SSLMode == mode {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid SSL mode: %s (must be one of: %s)", config.SSLMode, strings.Join(validSSLModes, ", "))
		}
	}

	return nil
}

// NewDatabase creates a new database connection with connection pooling.
func NewDatabase(config Config) (*Database, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: sqlDB}, nil
}

// NewDatabaseForTesting builds a Database from an existing *sql.DB,
// intended for sqlmock-backed repository tests. Do not use outside
// tests.
func NewDatabaseForTesting(sqlDB *sql.DB) *Database {
	return &Database{db: sqlDB}
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Migrate runs the schema migrations for all six entities.
func (d *Database) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS plugins (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			version VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS jobs (
			id BIGSERIAL PRIMARY KEY,
			pipeline_id VARCHAR(255) NOT NULL,
			target_type VARCHAR(50) NOT NULL,
			target_path TEXT NOT NULL,
			options JSONB DEFAULT '{}',
			tags JSONB DEFAULT '[]',
			created_by VARCHAR(255),
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			current_stage VARCHAR(255),
			progress INT NOT NULL DEFAULT 0,
			result JSONB,
			error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			claimed_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS findings (
			id BIGSERIAL PRIMARY KEY,
			job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			plugin_id VARCHAR(255) NOT NULL,
			stage VARCHAR(255) NOT NULL,
			category VARCHAR(100) NOT NULL,
			severity VARCHAR(50) NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			detail TEXT,
			evidence JSONB DEFAULT '[]',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS artifacts (
			id BIGSERIAL PRIMARY KEY,
			job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			plugin_id VARCHAR(255) NOT NULL,
			stage VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			type VARCHAR(50) NOT NULL,
			path TEXT,
			inline_data TEXT,
			content_type VARCHAR(255),
			size_bytes BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS trace_events (
			id BIGSERIAL PRIMARY KEY,
			job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			plugin_id VARCHAR(255) NOT NULL,
			sequence BIGINT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			source VARCHAR(50) NOT NULL,
			type VARCHAR(50) NOT NULL,
			target TEXT,
			detail JSONB DEFAULT '{}'
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			type VARCHAR(100) NOT NULL,
			job_id BIGINT REFERENCES jobs(id) ON DELETE CASCADE,
			message TEXT,
			data JSONB DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_pipeline_id ON jobs(pipeline_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_job_id ON findings(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity)`,
		`CREATE INDEX IF NOT EXISTS idx_findings_category ON findings(category)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_job_id ON artifacts(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trace_events_job_id_seq ON trace_events(job_id, timestamp, sequence)`,
		`CREATE INDEX IF NOT EXISTS idx_events_job_id ON events(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
	}

	for i, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	return nil
}
