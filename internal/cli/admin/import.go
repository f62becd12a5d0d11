package admin

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stackpile/noteforge/internal/config"
	"github.com/stackpile/noteforge/internal/database"
	"github.com/stackpile/noteforge/internal/domain"
	"github.com/stackpile/noteforge/internal/repository"
	"github.com/stackpile/noteforge/internal/service"
	"github.com/stackpile/noteforge/internal/storage"
)

// ImportCmd returns the import command: a one-shot migration of an export
// file, run to completion in the foreground.
func ImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <export-file>",
		Short: "Import a note export file",
		Long:  "Parse a note export file and load its notes into the document store",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	cmd.Flags().Int("batch-size", 0, "Notes processed concurrently per batch (default from config)")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}

	batchSize := cfg.MigrationBatchSize
	if flagSize, _ := cmd.Flags().GetInt("batch-size"); flagSize > 0 {
		batchSize = flagSize
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	jobRepo := repository.NewMigrationJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var blobStore service.BlobStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		blobStore = s3Client
	}

	svc := service.NewMigrationService(jobRepo, txRunner, blobStore, batchSize)

	jobID := uuid.NewString()
	if err := jobRepo.Create(ctx, domain.NewMigrationJob(jobID, time.Now().UTC())); err != nil {
		return fmt.Errorf("failed to create migration job: %w", err)
	}

	if err := svc.Run(ctx, jobID, data); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	job, err := svc.Status(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to read job status: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "import %s: %s (%d/%d processed, %d failed)\n",
		job.ID, job.Status, job.ProcessedItems, job.TotalItems, job.FailedItems)
	for _, e := range job.ErrorLog {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", e.Item, e.Message)
	}

	if job.FailedItems > 0 {
		return fmt.Errorf("%d notes failed to import", job.FailedItems)
	}
	return nil
}
