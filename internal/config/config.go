package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config centralises runtime configuration. It is built once at start-up and not mutated.
type Config struct {
	HTTPPort        string
	DatabaseDriver  string
	DatabaseURL     string
	UploadDir       string
	MaxUploadBytes  int64
	CORS            CORS
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	LogLevel        string
	LogFormat       string
	GinMode         string
}

// CORS is the static cross-origin policy applied to every route.
type CORS struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// AllowsAnyOrigin reports whether the origin list is the wildcard.
func (c CORS) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// AllowsOrigin reports whether origin is on the allow-list.
func (c CORS) AllowsOrigin(origin string) bool {
	for _, candidate := range c.AllowedOrigins {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}

const (
	defaultOrigins = "https://sanatanaparampare.vercel.app,http://localhost:3000,http://127.0.0.1:3000"
	defaultHeaders = "Origin,Content-Type,Accept,Authorization,X-Requested-With"
	defaultMethods = "GET,POST,PUT,DELETE,OPTIONS,PATCH"
)

// Load reads configuration from environment variables providing sane defaults.
// Values from a .env file fill in variables that are not already set.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	httpPort := getEnv("HTTP_PORT", "")
	if httpPort == "" {
		httpPort = getEnv("PORT", "8080")
	}

	cfg := Config{
		HTTPPort:       httpPort,
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseURL:    resolveDatabaseURL(),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: getInt64Env("UPLOAD_MAX_BYTES", 5<<20),
		CORS: CORS{
			AllowedOrigins:   splitCSV(getEnv("CORS_ALLOWED_ORIGINS", defaultOrigins)),
			AllowedMethods:   splitCSV(getEnv("CORS_ALLOWED_METHODS", defaultMethods)),
			AllowedHeaders:   splitCSV(getEnv("CORS_ALLOWED_HEADERS", defaultHeaders)),
			AllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getDurationEnv("CORS_MAX_AGE", time.Hour),
		},
		ReadTimeoutSec:  getIntEnv("HTTP_READ_TIMEOUT", 15),
		WriteTimeoutSec: getIntEnv("HTTP_WRITE_TIMEOUT", 15),
		IdleTimeoutSec:  getIntEnv("HTTP_IDLE_TIMEOUT", 60),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		GinMode:         getEnv("GIN_MODE", "release"),
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("database configuration missing: provide DATABASE_URL or PG* env vars")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if cfg.CORS.AllowCredentials && cfg.CORS.AllowsAnyOrigin() {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be * when credentials are allowed")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// resolveDatabaseURL prefers a full URL and falls back to libpq-style PG* parts.
func resolveDatabaseURL() string {
	for _, key := range []string{"DATABASE_URL", "POSTGRES_URL", "PGURL"} {
		if url := coerceDatabaseURL(os.Getenv(key)); url != "" {
			return url
		}
	}

	host := firstNonEmpty(os.Getenv("PGHOST"), os.Getenv("POSTGRES_HOST"))
	user := firstNonEmpty(os.Getenv("PGUSER"), os.Getenv("POSTGRES_USER"))
	if host == "" || user == "" {
		return ""
	}
	password := firstNonEmpty(os.Getenv("PGPASSWORD"), os.Getenv("POSTGRES_PASSWORD"))
	database := firstNonEmpty(os.Getenv("PGDATABASE"), os.Getenv("POSTGRES_DB"), user)
	port := firstNonEmpty(os.Getenv("PGPORT"), os.Getenv("POSTGRES_PORT"), "5432")
	sslMode := firstNonEmpty(os.Getenv("PGSSLMODE"), "disable")

	dsn := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
		User:   neturl.User(user),
	}
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}
	query := dsn.Query()
	query.Set("sslmode", sslMode)
	dsn.RawQuery = query.Encode()
	return dsn.String()
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "postgres://"):
		return raw
	case strings.HasPrefix(raw, "postgresql://"):
		return "postgres://" + strings.TrimPrefix(raw, "postgresql://")
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
