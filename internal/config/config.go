// Package config provides environment-driven configuration for the memory engine.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL Secret
	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string

	OllamaURL           string
	EmbeddingModel      string
	EmbeddingDimensions int
	ExtractionModel     string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword Secret
	Neo4jDatabase string

	ChunkSize         int
	ChunkOverlap      int
	IngestConcurrency int
	CrawlRatePerSec   float64
	CrawlMaxPages     int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     Secret(envOrDefault("DATABASE_URL", "")),
		Port:            envOrDefault("PORT", "3040"),
		ListenHost:      envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		OllamaURL:       envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		EmbeddingModel:  envOrDefault("EMBEDDING_MODEL", "qwen3-embedding:0.6b"),
		ExtractionModel: envOrDefault("EXTRACTION_MODEL", "qwen3:4b"),
		Neo4jURI:        envOrDefault("NEO4J_URI", ""),
		Neo4jUser:       envOrDefault("NEO4J_USER", "neo4j"),
		Neo4jPassword:   Secret(envOrDefault("NEO4J_PASSWORD", "")),
		Neo4jDatabase:   envOrDefault("NEO4J_DATABASE", ""),
	}

	var err error

	if cfg.EmbeddingDimensions, err = envInt("EMBEDDING_DIMENSIONS", 1024, 1, 4096); err != nil {
		return nil, err
	}

	if cfg.ChunkSize, err = envInt("CHUNK_SIZE", 200, 20, 4000); err != nil {
		return nil, err
	}

	if cfg.ChunkOverlap, err = envInt("CHUNK_OVERLAP", 40, 0, 1000); err != nil {
		return nil, err
	}

	if cfg.IngestConcurrency, err = envInt("INGEST_CONCURRENCY", 4, 1, 32); err != nil {
		return nil, err
	}

	if cfg.CrawlMaxPages, err = envInt("CRAWL_MAX_PAGES", 100, 1, 10000); err != nil {
		return nil, err
	}

	rate, err := strconv.ParseFloat(envOrDefault("CRAWL_RATE_PER_SEC", "2"), 64)
	if err != nil || rate <= 0 || rate > 100 {
		return nil, fmt.Errorf("CRAWL_RATE_PER_SEC must be a number between 0 and 100")
	}
	cfg.CrawlRatePerSec = rate

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3002")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// GraphEnabled reports whether a graph engine endpoint is configured. Without
// one, ingestion still succeeds on the document side and graph operations are
// reported as unavailable.
func (c *Config) GraphEnabled() bool {
	return c.Neo4jURI != ""
}

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateOllama(); err != nil {
		return err
	}

	if err := c.validateNeo4j(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	dbHost := dbURL.Hostname()
	if dbHost != "localhost" && dbHost != "127.0.0.1" && dbHost != "::1" {
		sslmode := dbURL.Query().Get("sslmode")
		if sslmode == "disable" {
			return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbHost)
		}
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Validate LISTEN_HOST is a loopback address to prevent accidental external exposure.
	if c.ListenHost != "127.0.0.1" && c.ListenHost != "::1" && c.ListenHost != "localhost" {
		return fmt.Errorf("LISTEN_HOST must be a loopback address (127.0.0.1, ::1, or localhost), got %q", c.ListenHost)
	}

	return nil
}

func (c *Config) validateOllama() error {
	ollamaURL, err := url.ParseRequestURI(c.OllamaURL)
	if err != nil {
		return fmt.Errorf("OLLAMA_URL is not a valid URL: %w", err)
	}

	ollamaHost := ollamaURL.Hostname()
	if ollamaHost != "localhost" && ollamaHost != "127.0.0.1" && ollamaHost != "::1" {
		return fmt.Errorf("OLLAMA_URL must point to localhost (127.0.0.1, ::1, or localhost)")
	}

	return nil
}

func (c *Config) validateNeo4j() error {
	if c.Neo4jURI == "" {
		return nil
	}

	u, err := url.Parse(c.Neo4jURI)
	if err != nil {
		return fmt.Errorf("NEO4J_URI is not a valid URI: %w", err)
	}

	switch u.Scheme {
	case "neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc":
	default:
		return fmt.Errorf("NEO4J_URI scheme must be neo4j:// or bolt:// (optionally +s/+ssc), got %q", u.Scheme)
	}

	if c.Neo4jPassword.Value() == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required when NEO4J_URI is set")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func envInt(key string, def, min, max int) (int, error) {
	v, err := strconv.Atoi(envOrDefault(key, strconv.Itoa(def)))
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, min, max)
	}

	return v, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
