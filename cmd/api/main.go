package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"casedocs/internal/audit"
	"casedocs/internal/config"
	"casedocs/internal/database"
	"casedocs/internal/database/migration"
	handlers "casedocs/internal/http/handler"
	"casedocs/internal/http/middleware"
	"casedocs/internal/ingest"
	"casedocs/internal/logger"
	"casedocs/internal/otel"
	"casedocs/internal/repository/postgres"
	"casedocs/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	slogger := logger.New(cfg.Log)

	ctx := context.Background()

	// Initialize OTLP tracing; shutdown flushes pending spans on exit
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (pooled, instrumented via otelsql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize the configured storage backend (minio or local)
	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize storage backend: %v", err)
	}

	docRepo := postgres.NewDocumentPostgres(db)
	sink := audit.NewLogSink(slogger)

	svc, err := ingest.NewService(
		ingest.NewValidator(cfg.Upload),
		ingest.NewClassifier(ingest.DefaultPolicy(
			cfg.Upload.MaxSizeBytes,
			cfg.Upload.ContentScanEnabled,
			cfg.Upload.QuarantineSuspicious,
		)),
		ingest.NewReuseResolver(docRepo, cfg.Upload.ReuseEnabled),
		store,
		docRepo,
		sink,
		slogger,
		time.Duration(cfg.Storage.URLExpirySec)*time.Second,
	)
	if err != nil {
		log.Fatalf("failed to build ingestion service: %v", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    int(cfg.Upload.MaxSizeBytes) + 1<<20, // headroom for multipart framing
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMw, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register prometheus metrics: %v", err)
	}
	app.Use(promMw.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, svc)

	addr := ":" + cfg.Port

	slogger.Info("server starting",
		"addr", addr,
		"storage_backend", store.Name(),
		"reuse_enabled", cfg.Upload.ReuseEnabled,
	)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
