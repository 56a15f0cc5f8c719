package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/picprompt/internal/config"
	"github.com/msomdec/picprompt/internal/domain"
	"github.com/msomdec/picprompt/internal/handler"
	"github.com/msomdec/picprompt/internal/metrics"
	"github.com/msomdec/picprompt/internal/provider"
	"github.com/msomdec/picprompt/internal/repository/postgres"
	"github.com/msomdec/picprompt/internal/repository/sqlite"
	"github.com/msomdec/picprompt/internal/service"
	"github.com/msomdec/picprompt/internal/storage/s3store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	if cfg.ProviderAPIKey == "" {
		slog.Warn("CLIPDROP_API is not set; generation requests will be rejected by the provider")
	}

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied", "driver", cfg.DatabaseDriver)

	files, err := openImageStore(ctx, cfg, db)
	if err != nil {
		slog.Error("failed to open image store", "store", cfg.ImageStore, "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	imageProvider := provider.New(provider.Config{
		Endpoint: cfg.ProviderURL,
		APIKey:   cfg.ProviderAPIKey,
		Timeout:  cfg.ProviderTimeout,
	}, nil)

	opts := []service.GenerationOption{service.WithRecorder(m)}
	if files != nil {
		opts = append(opts, service.WithImageStore(files))
	}

	authService := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost, cfg.TokenTTL)
	accountService := service.NewAccountService(db.Users(), files)
	generationService := service.NewGenerationService(db.Users(), db.Generations(), imageProvider, opts...)
	limiter := service.NewTokenBucket(cfg.GenerateRate/60, cfg.GenerateBurst)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, accountService, generationService, limiter, cfg.CookieSecure)
	mux.Handle("GET /metrics", m.Handler())

	cors := handler.NewCORSMiddleware(cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           m.Middleware(cors.Handler(handler.SecurityHeaders(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		// Generation waits on the provider, so writes need headroom past its timeout.
		WriteTimeout:   cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "imageStore", cfg.ImageStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openDatabase(ctx context.Context, cfg *config.Config) (domain.Database, error) {
	if cfg.DatabaseDriver == config.DriverPostgres {
		return postgres.New(ctx, cfg.DatabaseURL)
	}
	return sqlite.New(cfg.DatabasePath)
}

// openImageStore returns nil for inline storage.
func openImageStore(ctx context.Context, cfg *config.Config, db domain.Database) (domain.FileStore, error) {
	switch cfg.ImageStore {
	case config.ImageStoreDatabase:
		return db.FileStore(), nil
	case config.ImageStoreS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, nil
	}
}
