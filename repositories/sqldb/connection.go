package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/upb/mindscreen/config"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// DB wraps the sql.DB connection pool together with its SQL dialect
type DB struct {
	*sql.DB
	driver string
	logger *zap.Logger
}

// NewDB opens a connection pool for the configured driver
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	driverName := cfg.Driver
	if driverName == "" {
		driverName = config.DriverPostgres
	}

	db, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driverName == config.DriverSQLite && cfg.SQLitePath == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("driver", driverName),
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		driver: driverName,
		logger: logger,
	}, nil
}

// Wrap adapts an already opened pool, e.g. a sqlmock connection in tests
func Wrap(db *sql.DB, driver string, logger *zap.Logger) *DB {
	return &DB{DB: db, driver: driver, logger: logger}
}

// Driver returns the SQL driver name
func (db *DB) Driver() string {
	return db.driver
}

// Rebind converts $N placeholders to the driver's syntax
func (db *DB) Rebind(query string) string {
	if db.driver != config.DriverSQLite {
		return query
	}
	// SQLite numbers positional parameters as ?N
	return strings.ReplaceAll(query, "$", "?")
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema creates the tables for the active dialect
func (db *DB) InitSchema(ctx context.Context) error {
	schema := postgresSchema
	if db.driver == config.DriverSQLite {
		schema = sqliteSchema
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	db.logger.Info("database schema initialized successfully", zap.String("driver", db.driver))
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS questionnaires (
	id UUID PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	version VARCHAR(50) NOT NULL,
	questions JSONB NOT NULL,
	required_questions JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assessments (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	questionnaire_id UUID NOT NULL REFERENCES questionnaires(id) ON DELETE CASCADE,
	responses JSONB,
	status VARCHAR(20) NOT NULL,
	raw_score DOUBLE PRECISION,
	started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS risk_scores (
	id UUID PRIMARY KEY,
	assessment_id UUID NOT NULL UNIQUE REFERENCES assessments(id) ON DELETE CASCADE,
	user_id UUID NOT NULL,
	risk_level VARCHAR(20) NOT NULL,
	risk_score DOUBLE PRECISION NOT NULL,
	contributing_factors JSONB NOT NULL,
	recommendations JSONB NOT NULL,
	model_used VARCHAR(50) NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL,
	fallback BOOLEAN NOT NULL DEFAULT false,
	calculated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id UUID PRIMARY KEY,
	user_id UUID,
	action VARCHAR(100) NOT NULL,
	resource_type VARCHAR(100) NOT NULL,
	resource_id UUID,
	details JSONB,
	ip_address VARCHAR(45),
	user_agent TEXT,
	request_id VARCHAR(255),
	timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_assessments_user_id ON assessments(user_id, started_at);
CREATE INDEX IF NOT EXISTS idx_risk_scores_user_id ON risk_scores(user_id, calculated_at);
CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp)
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS questionnaires (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL,
	questions TEXT NOT NULL,
	required_questions TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS assessments (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	questionnaire_id TEXT NOT NULL REFERENCES questionnaires(id) ON DELETE CASCADE,
	responses TEXT,
	status TEXT NOT NULL,
	raw_score REAL,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS risk_scores (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL UNIQUE REFERENCES assessments(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	risk_score REAL NOT NULL,
	contributing_factors TEXT NOT NULL,
	recommendations TEXT NOT NULL,
	model_used TEXT NOT NULL,
	confidence_score REAL NOT NULL,
	fallback BOOLEAN NOT NULL DEFAULT 0,
	calculated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	action TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id TEXT,
	details TEXT,
	ip_address TEXT,
	user_agent TEXT,
	request_id TEXT,
	timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_user_id ON assessments(user_id, started_at);
CREATE INDEX IF NOT EXISTS idx_risk_scores_user_id ON risk_scores(user_id, calculated_at);
CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp)
`
