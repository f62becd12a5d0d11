package admin

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stackpile/noteforge/internal/config"
	"github.com/stackpile/noteforge/internal/database"
	"github.com/stackpile/noteforge/internal/openai"
	"github.com/stackpile/noteforge/internal/repository"
	"github.com/stackpile/noteforge/internal/service"
)

// QueueCmd returns the queue command group for embedding queue operations.
func QueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and drain the embedding queue",
	}

	cmd.AddCommand(queueStatusCmd(), queueDrainCmd())
	return cmd
}

func queueStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how many documents await embedding",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			queueRepo := repository.NewEmbeddingQueueRepository(pool)
			count, err := queueRepo.PendingCount(ctx)
			if err != nil {
				return fmt.Errorf("failed to count pending entries: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "pending embedding entries: %d\n", count)
			return nil
		},
	}
}

func queueDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Process embedding queue batches until the queue is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasOpenAI() {
				return fmt.Errorf("OPENAI_API_KEY is required to drain the queue")
			}

			pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			client, err := openai.NewClient(cfg.OpenAIAPIKey)
			if err != nil {
				return fmt.Errorf("failed to create embedding client: %w", err)
			}

			documentRepo := repository.NewDocumentRepository(pool)
			queueRepo := repository.NewEmbeddingQueueRepository(pool)
			svc := service.NewEmbeddingService(queueRepo, documentRepo, client, cfg.EmbedBatchSize)

			return drainQueue(ctx, svc, cmd.OutOrStdout())
		},
	}
}

// queueProcessor is the slice of EmbeddingService the drain loop needs.
type queueProcessor interface {
	ProcessBatch(ctx context.Context) (service.BatchResult, error)
}

// drainQueue runs queue passes until the queue is empty. Failed entries
// release their claim and would be picked up again immediately, so a pass
// that embeds nothing ends the loop instead of retrying the same entries
// forever.
func drainQueue(ctx context.Context, proc queueProcessor, out io.Writer) error {
	total := 0
	failed := 0
	for {
		result, err := proc.ProcessBatch(ctx)
		if err != nil {
			return fmt.Errorf("queue pass failed: %w", err)
		}
		if result.Claimed == 0 {
			break
		}
		total += result.Processed
		failed += result.Failed
		fmt.Fprintf(out, "batch: %d processed, %d failed\n", result.Processed, result.Failed)
		if result.Processed == 0 {
			fmt.Fprintf(out, "stopping: no progress, %d entries left pending\n", result.Failed)
			break
		}
	}

	fmt.Fprintf(out, "drained queue: %d documents embedded, %d failures\n", total, failed)
	return nil
}
