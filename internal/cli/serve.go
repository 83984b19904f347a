package cli

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

	"github.com/notedex/notedex/internal/api/handlers"
	"github.com/notedex/notedex/internal/config"
	"github.com/notedex/notedex/internal/database"
	"github.com/notedex/notedex/internal/jobs"
	"github.com/notedex/notedex/internal/openai"
	"github.com/notedex/notedex/internal/repository"
	"github.com/notedex/notedex/internal/server"
	"github.com/notedex/notedex/internal/service"
	"github.com/notedex/notedex/internal/storage"
	"github.com/notedex/notedex/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the notedex API server and, when a blob source is configured, the periodic re-sync worker",
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

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
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

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	indexRepo := repository.NewIndexRepository(pool)

	var source service.BlobSource
	if cfg.HasS3() {
		s3Source, err := storage.NewS3Source(ctx, storage.S3SourceConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 source: %w", err)
		}
		log.Printf("S3 source ready (bucket '%s', prefix '%s')", cfg.S3Bucket, cfg.S3Prefix)
		source = s3Source
	} else {
		source = &noOpBlobSource{}
	}

	var backend service.Summarizer
	if cfg.HasOpenAI() {
		backend = openai.NewClientWithConfig(openai.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})
		log.Println("answer backend configured")
	}

	searchSvc := service.NewSearchService(indexRepo)
	facetSvc := service.NewFacetService(indexRepo)
	answerSvc := service.NewAnswerService(searchSvc, backend).WithBackendTimeout(cfg.OpenAITimeout)
	syncSvc := service.NewSyncService(source, indexRepo, cfg.SyncWorkers)

	var syncWorker *jobs.Worker
	if cfg.HasS3() && cfg.SyncInterval > 0 {
		syncWorker = jobs.NewWorker(syncSvc, cfg.SyncInterval)
		go syncWorker.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		SearchHandler: handlers.NewSearchHandler(searchSvc),
		FacetHandler:  handlers.NewFacetHandler(facetSvc),
		AnswerHandler: handlers.NewAnswerHandler(answerSvc),
		SyncHandler:   handlers.NewSyncHandler(syncSvc),
	})

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

	if syncWorker != nil {
		syncWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// noOpBlobSource stands in when no S3 settings are configured. Search and
// facets keep serving the existing index; sync runs answer 502.
type noOpBlobSource struct{}

func (s *noOpBlobSource) List(ctx context.Context) ([]service.BlobInfo, error) {
	return nil, fmt.Errorf("blob source not configured: S3_ENDPOINT required")
}

func (s *noOpBlobSource) Fetch(ctx context.Context, path string) (*service.BlobObject, error) {
	return nil, fmt.Errorf("blob source not configured: S3_ENDPOINT required")
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs database/sql, not the pgx pool
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

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
