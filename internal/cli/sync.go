package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notedex/notedex/internal/config"
	"github.com/notedex/notedex/internal/database"
	"github.com/notedex/notedex/internal/repository"
	"github.com/notedex/notedex/internal/service"
	"github.com/notedex/notedex/internal/storage"
)

// SyncCmd returns the sync command
func SyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one ingestion pass",
		Long:  "List the configured S3 prefix, index changed documents, remove vanished ones, and print the report",
		RunE:  runSync,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations before syncing")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasS3() {
		return fmt.Errorf("blob source not configured: S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY required")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	source, err := storage.NewS3Source(ctx, storage.S3SourceConfig{
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

	syncSvc := service.NewSyncService(source, repository.NewIndexRepository(pool), cfg.SyncWorkers)

	report, err := syncSvc.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}

	if len(report.Errors) > 0 {
		return fmt.Errorf("sync finished with %d path errors", len(report.Errors))
	}
	return nil
}
