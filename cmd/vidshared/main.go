// cmd/vidshared/main.go
// Package main implements the entry point for the vidshare API service.
// It initializes all components and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidshare/vidshare-api-go/internal/auth"
	"github.com/vidshare/vidshare-api-go/internal/config"
	"github.com/vidshare/vidshare-api-go/internal/event"
	"github.com/vidshare/vidshare-api-go/internal/identity"
	"github.com/vidshare/vidshare-api-go/internal/lock"
	"github.com/vidshare/vidshare-api-go/internal/media"
	"github.com/vidshare/vidshare-api-go/internal/server"
	"github.com/vidshare/vidshare-api-go/internal/service"
	"github.com/vidshare/vidshare-api-go/internal/storage"
	"github.com/vidshare/vidshare-api-go/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging for the application
	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	if cfg.TracingEnabled {
		if _, err := telemetry.InitTracer(version); err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry tracer: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			telemetry.ShutdownTracer(ctx)
		}()
	}

	// Initialize storage backend (PostgreSQL or in-memory)
	var store storage.Store
	if cfg.DatabaseDSN != "" {
		pg, err := storage.NewPostgres(cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("failed to initialize postgres storage: %w", err)
		}
		store = pg
	} else {
		logger.Warn("VIDSHARE_DB_DSN not set, using in-memory storage")
		store = storage.NewMemory()
	}
	if closer, ok := store.(interface{ Close() }); ok {
		defer closer.Close()
	}

	// Initialize event publisher (NATS JetStream or no-op)
	pub := event.NewNoop()
	if cfg.NATSURL != "" {
		pub = event.NewPublisher(cfg.NATSURL)
	}
	defer pub.Close()

	host, err := newMediaHost(ctx, cfg)
	if err != nil {
		return err
	}
	resilient := media.NewResilient(host, media.ResilientOptions{
		Name:    cfg.MediaBackend,
		Timeout: cfg.MediaTimeout,
		Retries: cfg.MediaRetries,
		Logger:  logger,
	})

	// Like toggles are serialized across replicas when Redis is available
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		rl, err := lock.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rl.Close()
		locker = rl
	}

	deps := service.Deps{
		Store:            store,
		Events:           pub,
		Media:            resilient,
		Locker:           locker,
		Logger:           logger,
		AllowedMimeTypes: cfg.AllowedMimeTypes,
	}
	if cfg.IdentityURL != "" {
		deps.Users = identity.New(cfg.IdentityURL)
	}

	var verifier auth.Verifier
	if cfg.JWKSURL != "" {
		verifier = auth.NewJWKSVerifier(cfg.JWKSURL, cfg.JWTIssuer, cfg.JWTAudience)
	} else {
		verifier = auth.NewHMAC(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o700); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	// Create HTTP handler with all routes and middleware
	handler, err := server.New(server.Options{
		Services:           service.New(deps),
		Store:              store,
		Verifier:           verifier,
		Logger:             logger,
		UploadDir:          cfg.UploadDir,
		MaxUploadSize:      cfg.MaxUploadSize,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		return fmt.Errorf("failed to build handler: %w", err)
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Uploads stream the whole file through the request, so there is no
		// overall read or write timeout; media calls carry their own.
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "env", cfg.Env, "version", version,
			"media_backend", cfg.MediaBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// newMediaHost builds the configured media backend.
func newMediaHost(ctx context.Context, cfg config.Config) (media.Host, error) {
	switch cfg.MediaBackend {
	case config.MediaBackendS3:
		h, err := media.NewS3Host(cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey, cfg.MediaPublicURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 media host: %w", err)
		}
		return h, nil
	case config.MediaBackendMinIO:
		h, err := media.NewMinIOHost(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey, cfg.MediaPublicURL, cfg.MinIOUseSSL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO media host: %w", err)
		}
		return h, nil
	default:
		slog.Warn("No media backend configured, uploads are disabled")
		return media.Disabled{}, nil
	}
}
