package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/stackpile/noteforge/internal/api/handlers"
	"github.com/stackpile/noteforge/internal/config"
	"github.com/stackpile/noteforge/internal/database"
	"github.com/stackpile/noteforge/internal/jobs"
	"github.com/stackpile/noteforge/internal/openai"
	"github.com/stackpile/noteforge/internal/repository"
	"github.com/stackpile/noteforge/internal/server"
	"github.com/stackpile/noteforge/internal/service"
	"github.com/stackpile/noteforge/internal/storage"
	"github.com/stackpile/noteforge/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the noteforge API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	documentRepo := repository.NewDocumentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	migrationJobRepo := repository.NewMigrationJobRepository(pool)
	queueRepo := repository.NewEmbeddingQueueRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var blobStore service.BlobStore
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobStore = s3Client
	} else {
		log.Println("attachment blob storage disabled: S3 not configured")
	}

	var generator service.EmbeddingGenerator
	if cfg.HasOpenAI() {
		client, err := openai.NewClient(cfg.OpenAIAPIKey)
		if err != nil {
			return fmt.Errorf("failed to create embedding client: %w", err)
		}
		generator = client
	} else {
		log.Println("embeddings disabled: OPENAI_API_KEY not set, search degrades to lexical")
	}

	migrationSvc := service.NewMigrationService(migrationJobRepo, txRunner, blobStore, cfg.MigrationBatchSize)
	embeddingSvc := service.NewEmbeddingService(queueRepo, documentRepo, generator, cfg.EmbedBatchSize)
	searchSvc := service.NewSearchService(documentRepo, generator, cfg.VectorWeight)
	documentSvc := service.NewDocumentService(documentRepo, attachmentRepo)

	var embeddingWorker *jobs.Worker
	if embeddingSvc.Enabled() {
		processor := jobs.NewEmbeddingProcessor(embeddingSvc)
		embeddingWorker = jobs.NewWorker(processor, time.Duration(cfg.EmbedPollSeconds)*time.Second)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	}

	routerCfg := server.RouterConfig{
		APIKey:           cfg.APIKey,
		MigrationHandler: handlers.NewMigrationHandler(migrationSvc),
		SearchHandler:    handlers.NewSearchHandler(searchSvc),
		DocumentHandler:  handlers.NewDocumentHandler(documentSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
