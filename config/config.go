package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/mindscreen/internal/risk"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderOllama = "ollama"
	ProviderHash   = "hash"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Embedding     EmbeddingConfig
	Knowledge     KnowledgeConfig
	Retrieval     RetrievalConfig
	Classifier    ClassifierConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// DatabaseConfig holds database configuration.
// For postgres, ConnectionString (from DATABASE_URL) takes precedence over individual fields.
type DatabaseConfig struct {
	Driver           string
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	SQLitePath       string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider          string
	OllamaHost        string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RequestsPerSecond float64
	Burst             int
	HashDimensions    int
}

// KnowledgeConfig locates the knowledge base. An empty Path uses the built-in documents.
type KnowledgeConfig struct {
	Path  string
	Watch bool
	// Bounds on rebuilds started by a search: an invalidated index, or one
	// whose startup build failed.
	RebuildTimeout       time.Duration
	RebuildRetryInterval time.Duration
}

// RetrievalConfig holds query-time settings
type RetrievalConfig struct {
	DefaultTopK    int
	MaxTopK        int
	QueryTimeout   time.Duration
	CacheSize      int
	CacheTTL       time.Duration
	CacheCleanup   time.Duration
	ResourcesLimit int
}

// ClassifierConfig declares the features entering the risk score
type ClassifierConfig struct {
	Features []string
}

// AuditConfig sizes the async audit worker pool
type AuditConfig struct {
	BufferSize      int
	Workers         int
	ShutdownTimeout time.Duration
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: loadDatabaseConfig(),
		Embedding: EmbeddingConfig{
			Provider:          strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderOllama)),
			OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
			Model:             getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Timeout:           getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			MaxRetries:        getEnvAsInt("EMBEDDING_MAX_RETRIES", 3),
			RetryBaseDelay:    getEnvAsDuration("EMBEDDING_RETRY_BASE_DELAY", 500*time.Millisecond),
			RequestsPerSecond: getEnvAsFloat("EMBEDDING_REQUESTS_PER_SECOND", 20),
			Burst:             getEnvAsInt("EMBEDDING_BURST", 5),
			HashDimensions:    getEnvAsInt("EMBEDDING_HASH_DIMENSIONS", 384),
		},
		Knowledge: KnowledgeConfig{
			Path:                 getEnv("KNOWLEDGE_PATH", ""),
			Watch:                getEnvAsBool("KNOWLEDGE_WATCH", false),
			RebuildTimeout:       getEnvAsDuration("KNOWLEDGE_REBUILD_TIMEOUT", 2*time.Minute),
			RebuildRetryInterval: getEnvAsDuration("KNOWLEDGE_REBUILD_RETRY_INTERVAL", 30*time.Second),
		},
		Retrieval: RetrievalConfig{
			DefaultTopK:    getEnvAsInt("RETRIEVAL_DEFAULT_TOP_K", 5),
			MaxTopK:        getEnvAsInt("RETRIEVAL_MAX_TOP_K", 50),
			QueryTimeout:   getEnvAsDuration("RETRIEVAL_QUERY_TIMEOUT", 10*time.Second),
			CacheSize:      getEnvAsInt("QUERY_CACHE_SIZE", 1000),
			CacheTTL:       getEnvAsDuration("QUERY_CACHE_TTL", 15*time.Minute),
			CacheCleanup:   getEnvAsDuration("QUERY_CACHE_CLEANUP_INTERVAL", time.Minute),
			ResourcesLimit: getEnvAsInt("RESOURCES_DEFAULT_LIMIT", 5),
		},
		Classifier: ClassifierConfig{
			Features: getEnvAsList("CLASSIFIER_FEATURES", risk.CoreFeatures()),
		},
		Audit: AuditConfig{
			BufferSize:      getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			Workers:         getEnvAsInt("AUDIT_WORKERS", 4),
			ShutdownTimeout: getEnvAsDuration("AUDIT_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.ConnectionString == "" && c.Database.Host == "" {
			return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
		}
		if c.Database.ConnectionString == "" {
			if c.Database.User == "" {
				return fmt.Errorf("database user is required")
			}
			if c.Database.Database == "" {
				return fmt.Errorf("database name is required")
			}
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Embedding.Provider {
	case ProviderOllama:
		if c.Embedding.OllamaHost == "" {
			return fmt.Errorf("ollama host is required")
		}
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding model is required")
		}
	case ProviderHash:
		if c.Embedding.HashDimensions <= 0 {
			return fmt.Errorf("hash embedding dimensions must be positive")
		}
	default:
		return fmt.Errorf("unsupported embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Timeout <= 0 {
		return fmt.Errorf("embedding timeout must be positive")
	}

	if c.Retrieval.DefaultTopK <= 0 {
		return fmt.Errorf("default top-k must be positive")
	}
	if c.Retrieval.MaxTopK < c.Retrieval.DefaultTopK {
		return fmt.Errorf("max top-k must be at least the default top-k")
	}
	if c.Retrieval.QueryTimeout <= 0 {
		return fmt.Errorf("retrieval query timeout must be positive")
	}

	for _, f := range c.Classifier.Features {
		if !risk.IsFeature(f) {
			return fmt.Errorf("unknown classifier feature %q", f)
		}
	}

	if c.Audit.Workers <= 0 || c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit workers and buffer size must be positive")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return sqliteDSN(c.SQLitePath)
	}
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func sqliteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("driver=sqlite path=%s", c.SQLitePath)
	}
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DB_DRIVER plus DATABASE_URL, DB_* or SQLITE_PATH
func loadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		Driver:          strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		SQLitePath:      getEnv("SQLITE_PATH", "mindscreen.db"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		cfg.ConnectionString = dbURL
		return cfg
	}
	cfg.Host = getEnv("DB_HOST", "localhost")
	cfg.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.User = getEnv("DB_USER", "dev")
	cfg.Password = getEnv("DB_PASSWORD", "")
	cfg.Database = getEnv("DB_NAME", "mindscreen")
	cfg.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	out := make([]string, 0)
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
