// @title           Mood Board Backend API
// @version         1.0.0
// @description     Backend API for wedding mood boards. It stores each couple's boards, ingests image uploads into object storage, keeps the boards durably in sync and publishes realtime progress events.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"moodboard-backend/internal/config"
	"moodboard-backend/internal/database"
	"moodboard-backend/internal/docstore"
	"moodboard-backend/internal/imaging"
	"moodboard-backend/internal/ingest"
	"moodboard-backend/internal/legacymedia"
	"moodboard-backend/internal/logging"
	"moodboard-backend/internal/objectstore"
	"moodboard-backend/internal/realtime"
	"moodboard-backend/internal/session"
	"moodboard-backend/internal/supabase"
	"moodboard-backend/internal/vibes"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	docs, closeDocs, err := newDocumentStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}
	defer closeDocs()

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize blob store: %v", err)
	}
	uploader := objectstore.NewUploader(blobs)

	deps := session.Dependencies{
		Docs: docs,
		Pipeline: ingest.NewPipeline(uploader, ingest.Config{
			Limits:      imaging.DefaultLimits(),
			Concurrency: cfg.UploadConcurrency,
		}, logger),
		Migrator: legacymedia.NewMigrator(uploader, logger),
		Debounce: cfg.SaveDebounce,
		Log:      logger,
	}

	// Realtime events are optional
	if cfg.RedisURL != "" {
		publisher, err := realtime.NewRedisPublisher(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn(ctx, "realtime events disabled", "error", err)
		} else {
			defer publisher.Close()
			deps.Publisher = publisher
		}
	}
	if cfg.VibesAPIURL != "" {
		deps.Vibes = vibes.NewClient(cfg.VibesAPIURL, cfg.VibesAPIKey)
	} else {
		logger.Info(ctx, "vibe extraction disabled, VIBES_API_URL not set")
	}

	manager := session.NewManager(deps)

	router := newRouter(cfg, manager, blobs)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info(ctx, "server starting", "port", cfg.Port, "documents", cfg.DocumentBackend, "blobs", cfg.BlobBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http server shutdown failed", "error", err)
	}
	// Pending board writes go out before the process exits.
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "failed to flush mood boards", "error", err)
	}
}

func newDocumentStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (session.DocumentStore, func(), error) {
	switch cfg.DocumentBackend {
	case config.BackendPostgres:
		migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize migrator: %w", err)
		}
		err = migrator.Run(ctx)
		migrator.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}

		db, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil

	case config.BackendSupabase:
		store, err := supabase.DialREST(cfg.SupabaseURL, cfg.SupabasePublishableKey)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	default:
		logger.Warn(ctx, "using in-memory document store, boards are lost on restart")
		return docstore.NewMemory(), func() {}, nil
	}
}

func newBlobStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	switch cfg.BlobBackend {
	case config.BackendSupabase:
		return supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	case config.BackendS3:
		return objectstore.NewS3(ctx, objectstore.S3Config{
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			BaseEndpoint:  cfg.S3BaseEndpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
	case config.BackendMinio:
		return objectstore.NewMinio(objectstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return objectstore.NewMemory("http://localhost:" + cfg.Port + "/blobs"), nil
	}
}
