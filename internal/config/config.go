package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the environment-driven settings consumed by the service.
// The auth core itself only sees the values it needs; loading lives here so
// the packages stay env-free and testable.
type Config struct {
	HTTPAddr string
	GRPCAddr string

	// Identity store
	PGDSN          string
	PGMaxOpenConns int
	PGMaxIdleConns int
	PGConnLifetime time.Duration
	PGConnIdleTime time.Duration

	// Token validation
	JWTSecret   string
	TokenLeeway time.Duration

	// API key handling
	APIKeyHeader string

	// Developer bypass credential. Disabled unless explicitly enabled;
	// never enable in production-labeled deployments.
	DevBypassEnabled bool
	DevAPIKey        string
	DevUserID        string
	DevRole          string
	DevOrgID         string
	DevScopes        string

	// Organization scoping
	TopRole string

	// HTTP middleware
	RateBurst     int
	RatePerSecond int
	MaxBodyBytes  int64
}

// Load reads configuration from the environment, applying defaults that
// match a local development setup.
func Load() Config {
	return Config{
		HTTPAddr: getenv("RAGGATE_HTTP_ADDR", ":8080"),
		GRPCAddr: getenv("RAGGATE_GRPC_ADDR", ":9090"),

		PGDSN:          os.Getenv("RAGGATE_PG_DSN"),
		PGMaxOpenConns: getint("RAGGATE_PG_MAX_OPEN_CONNS", 10),
		PGMaxIdleConns: getint("RAGGATE_PG_MAX_IDLE_CONNS", 2),
		PGConnLifetime: getdur("RAGGATE_PG_CONN_LIFETIME", 30*time.Minute),
		PGConnIdleTime: getdur("RAGGATE_PG_CONN_IDLE_TIME", 5*time.Minute),

		JWTSecret:   os.Getenv("RAGGATE_JWT_SECRET"),
		TokenLeeway: getdur("RAGGATE_TOKEN_LEEWAY", 0),

		APIKeyHeader: getenv("RAGGATE_API_KEY_HEADER", "X-API-Key"),

		DevBypassEnabled: getbool("RAGGATE_DEV_BYPASS", false),
		DevAPIKey:        getenv("RAGGATE_DEV_API_KEY", "dev-api-key-12345"),
		DevUserID:        getenv("RAGGATE_DEV_USER_ID", "dev-user"),
		DevRole:          getenv("RAGGATE_DEV_ROLE", "super_admin"),
		DevOrgID:         getenv("RAGGATE_DEV_ORG_ID", "dev-org"),
		DevScopes:        getenv("RAGGATE_DEV_SCOPES", "read,write,admin"),

		TopRole: getenv("RAGGATE_TOP_ROLE", "super_admin"),

		RateBurst:     getint("RAGGATE_RATE_BURST", 20),
		RatePerSecond: getint("RAGGATE_RATE_PER_SECOND", 10),
		MaxBodyBytes:  int64(getint("RAGGATE_MAX_BODY_BYTES", 1<<20)),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getbool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func getdur(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
