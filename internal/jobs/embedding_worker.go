package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/stackpile/noteforge/internal/service"
)

// QueueService defines the interface for one embedding queue pass
type QueueService interface {
	ProcessBatch(ctx context.Context) (service.BatchResult, error)
}

// EmbeddingProcessor drains the embedding queue one batch per worker tick.
// Failed entries are requeued by the service, so a later tick retries them.
type EmbeddingProcessor struct {
	service QueueService
}

// NewEmbeddingProcessor creates a new EmbeddingProcessor instance
func NewEmbeddingProcessor(svc QueueService) *EmbeddingProcessor {
	return &EmbeddingProcessor{service: svc}
}

// Run implements the Processor interface
func (p *EmbeddingProcessor) Run(ctx context.Context) error {
	result, err := p.service.ProcessBatch(ctx)
	if err != nil {
		return fmt.Errorf("failed to process embedding batch: %w", err)
	}

	if result.Skipped || result.Claimed == 0 {
		return nil
	}

	log.Printf("Embedding batch done: %d claimed, %d processed, %d failed",
		result.Claimed, result.Processed, result.Failed)
	return nil
}
