package service

import (
	"context"
	"errors"
	"log"

	"github.com/stackpile/noteforge/internal/domain"
	"github.com/stackpile/noteforge/internal/telemetry"
)

// DefaultEmbedBatchSize is how many queue entries one pass claims.
const DefaultEmbedBatchSize = 20

// QueueProcessorRepositoryInterface defines the repository interface for the
// claim side of the embedding queue
type QueueProcessorRepositoryInterface interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.QueueEntry, error)
	MarkProcessed(ctx context.Context, id int64) error
	RecordFailure(ctx context.Context, id int64, message string) error
	PendingCount(ctx context.Context) (int, error)
}

// EmbeddingGenerator produces a vector for a piece of text.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// BatchResult reports one queue pass.
type BatchResult struct {
	Claimed   int
	Processed int
	Failed    int
	Skipped   bool // true when no generator is configured
}

// EmbeddingService drains the embedding queue: it claims pending entries,
// generates vectors for their documents and stores the results. Entries
// whose generation fails stay in the queue with an incremented attempt
// count and are retried on a later pass.
type EmbeddingService struct {
	queue     QueueProcessorRepositoryInterface
	documents DocumentRepositoryInterface
	generator EmbeddingGenerator // nil when embeddings are not configured
	batchSize int
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(queue QueueProcessorRepositoryInterface, documents DocumentRepositoryInterface, generator EmbeddingGenerator, batchSize int) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &EmbeddingService{
		queue:     queue,
		documents: documents,
		generator: generator,
		batchSize: batchSize,
	}
}

// Enabled reports whether a generator is configured.
func (s *EmbeddingService) Enabled() bool {
	return s.generator != nil
}

// ProcessBatch claims up to the batch size of pending entries and processes
// each one. A failed entry never blocks the rest of the batch.
func (s *EmbeddingService) ProcessBatch(ctx context.Context) (BatchResult, error) {
	if s.generator == nil {
		return BatchResult{Skipped: true}, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.ProcessBatch", telemetry.SpanAttributes{
		Operation: "embed",
	})
	defer span.End()

	entries, err := s.queue.ClaimPending(ctx, s.batchSize)
	if err != nil {
		span.SetError(err)
		return BatchResult{}, err
	}

	result := BatchResult{Claimed: len(entries)}
	for _, entry := range entries {
		if err := s.processEntry(ctx, entry); err != nil {
			result.Failed++
			if recErr := s.queue.RecordFailure(ctx, entry.ID, err.Error()); recErr != nil {
				log.Printf("embedding queue: failed to record failure for entry %d: %v", entry.ID, recErr)
			}
			continue
		}
		result.Processed++
	}

	return result, nil
}

// PendingCount returns how many queue entries still await processing.
func (s *EmbeddingService) PendingCount(ctx context.Context) (int, error) {
	return s.queue.PendingCount(ctx)
}

func (s *EmbeddingService) processEntry(ctx context.Context, entry *domain.QueueEntry) error {
	doc, err := s.documents.GetByID(ctx, entry.DocumentID)
	if err != nil {
		// A deleted document leaves a dangling entry; mark it done rather
		// than retrying forever.
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return s.queue.MarkProcessed(ctx, entry.ID)
		}
		return err
	}

	embedding, err := s.generator.GenerateEmbedding(ctx, doc.Title+"\n\n"+doc.Content)
	if err != nil {
		return err
	}

	if err := s.documents.UpdateEmbedding(ctx, doc.ID, embedding); err != nil {
		return err
	}

	return s.queue.MarkProcessed(ctx, entry.ID)
}
