// Package config provides configuration loading and management for the vidshare service.
// It handles environment variable parsing and provides default values for all settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// godotenv.Load() does not override already-set environment variables,
// preserving OS env > .env.local > .env precedence.
func init() {
	// Load .env.local first so its values win over the shared .env
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}
}

// Media backends accepted in VIDSHARE_MEDIA_BACKEND.
const (
	MediaBackendNone  = ""
	MediaBackendS3    = "s3"
	MediaBackendMinIO = "minio"
)

// Config captures environment-driven settings for the vidshare service.
type Config struct {
	Env         string // Deployment environment (dev, staging, prod)
	Port        string // HTTP server port
	DatabaseDSN string // PostgreSQL connection string; empty selects the in-memory store
	NATSURL     string // NATS server URL; empty disables event publishing
	RedisURL    string // Redis URL for cross-replica like locks; empty uses in-process locks

	// Media host
	MediaBackend   string        // "s3", "minio" or empty for none
	S3Endpoint     string        // S3-compatible storage endpoint
	S3Region       string        // S3 region
	S3Bucket       string        // S3 bucket name
	S3AccessKey    string        // S3 access key
	S3SecretKey    string        // S3 secret key
	MinIOUseSSL    bool          // Use TLS to reach MinIO
	MediaPublicURL string        // Base URL media is served from; derived when empty
	MediaTimeout   time.Duration // Per-attempt media host timeout
	MediaRetries   int           // Retries after a failed media host attempt

	// Uploads
	UploadDir        string   // Where multipart uploads are spooled
	MaxUploadSize    int64    // Maximum multipart request size in bytes
	AllowedMimeTypes []string // Allowed sniffed types; "video/*" style wildcards allowed

	// Authentication
	JWTSecret   string // HS256 shared secret
	JWKSURL     string // EdDSA key set URL
	JWTIssuer   string // Expected issuer; empty skips the check
	JWTAudience string // Expected audience; empty skips the check
	IdentityURL string // Optional user service for user existence checks

	// HTTP edge
	CORSAllowedOrigins []string // Allowed origins for CORS (empty means deny all)
	RateLimitPerMinute int      // Requests per client IP per minute; 0 disables

	TracingEnabled bool // Export spans to stdout
}

// Default configuration values used when environment variables are not set
const (
	defaultPort          = "8080"
	defaultEnv           = "dev"
	defaultS3Region      = "us-east-1"
	defaultMediaTimeout  = 2 * time.Minute
	defaultMediaRetries  = 3
	defaultMaxUploadSize = 512 << 20
	defaultRateLimit     = 300
)

var defaultMimeTypes = []string{"video/mp4", "video/webm", "video/quicktime", "image/jpeg", "image/png", "image/webp", "image/gif"}

// Load reads environment variables and produces a Config suitable for wiring the service.
// Returns an error if required parameters are missing or invalid.
func Load() (Config, error) {
	cfg := Config{
		Env:            getEnv("VIDSHARE_ENV", defaultEnv),
		Port:           getEnv("VIDSHARE_PORT", defaultPort),
		DatabaseDSN:    os.Getenv("VIDSHARE_DB_DSN"),
		NATSURL:        os.Getenv("VIDSHARE_NATS_URL"),
		RedisURL:       os.Getenv("VIDSHARE_REDIS_URL"),
		MediaBackend:   strings.ToLower(os.Getenv("VIDSHARE_MEDIA_BACKEND")),
		S3Endpoint:     os.Getenv("VIDSHARE_S3_ENDPOINT"),
		S3Region:       getEnv("VIDSHARE_S3_REGION", defaultS3Region),
		S3Bucket:       os.Getenv("VIDSHARE_S3_BUCKET"),
		S3AccessKey:    os.Getenv("VIDSHARE_S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("VIDSHARE_S3_SECRET_KEY"),
		MinIOUseSSL:    parseBool(os.Getenv("VIDSHARE_MINIO_USE_SSL")),
		MediaPublicURL: os.Getenv("VIDSHARE_MEDIA_PUBLIC_URL"),
		UploadDir:      getEnv("VIDSHARE_UPLOAD_DIR", os.TempDir()),
		JWTSecret:      os.Getenv("VIDSHARE_JWT_SECRET"),
		JWKSURL:        os.Getenv("VIDSHARE_JWKS_URL"),
		JWTIssuer:      os.Getenv("VIDSHARE_JWT_ISSUER"),
		JWTAudience:    os.Getenv("VIDSHARE_JWT_AUDIENCE"),
		IdentityURL:    os.Getenv("VIDSHARE_IDENTITY_URL"),
		TracingEnabled: parseBool(os.Getenv("VIDSHARE_TRACING")),
	}

	var err error
	if cfg.MediaTimeout, err = getDuration("VIDSHARE_MEDIA_TIMEOUT", defaultMediaTimeout); err != nil {
		return cfg, err
	}
	if cfg.MediaRetries, err = getInt("VIDSHARE_MEDIA_RETRIES", defaultMediaRetries); err != nil {
		return cfg, err
	}
	if cfg.RateLimitPerMinute, err = getInt("VIDSHARE_RATE_LIMIT_PER_MINUTE", defaultRateLimit); err != nil {
		return cfg, err
	}
	size, err := getInt("VIDSHARE_MAX_UPLOAD_SIZE", defaultMaxUploadSize)
	if err != nil {
		return cfg, err
	}
	cfg.MaxUploadSize = int64(size)

	cfg.AllowedMimeTypes = getList("VIDSHARE_ALLOWED_MIME_TYPES", defaultMimeTypes)
	cfg.CORSAllowedOrigins = getList("VIDSHARE_CORS_ALLOWED_ORIGINS", nil)

	// Validate required parameters
	if cfg.JWTSecret == "" && cfg.JWKSURL == "" {
		return cfg, fmt.Errorf("one of VIDSHARE_JWT_SECRET or VIDSHARE_JWKS_URL is required")
	}

	switch cfg.MediaBackend {
	case MediaBackendNone:
	case MediaBackendS3, MediaBackendMinIO:
		if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
			return cfg, fmt.Errorf("VIDSHARE_S3_ENDPOINT and VIDSHARE_S3_BUCKET are required for media backend %q", cfg.MediaBackend)
		}
	default:
		return cfg, fmt.Errorf("unknown VIDSHARE_MEDIA_BACKEND %q", cfg.MediaBackend)
	}

	if cfg.MaxUploadSize <= 0 {
		return cfg, fmt.Errorf("VIDSHARE_MAX_UPLOAD_SIZE must be positive")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable value, returning a fallback if not set or empty
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

// getList splits a comma-separated variable, trimming whitespace and dropping empty items.
func getList(key string, fallback []string) []string {
	v, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseBool converts a string to a boolean value, returning false if parsing fails
func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
