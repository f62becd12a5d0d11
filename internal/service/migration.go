package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stackpile/noteforge/internal/domain"
	"github.com/stackpile/noteforge/internal/enex"
	"github.com/stackpile/noteforge/internal/telemetry"
)

// DefaultBatchSize is how many notes run concurrently per migration batch.
const DefaultBatchSize = 10

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Upsert(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// AttachmentRepositoryInterface defines the repository interface for attachment persistence
type AttachmentRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Attachment) error
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// EmbeddingQueueRepositoryInterface defines the repository interface for queue writes
type EmbeddingQueueRepositoryInterface interface {
	Enqueue(ctx context.Context, documentID int64, priority int) error
}

// MigrationJobRepositoryInterface defines the repository interface for job bookkeeping
type MigrationJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.MigrationJob) error
	GetByID(ctx context.Context, id string) (*domain.MigrationJob, error)
	SetRunning(ctx context.Context, id string, totalItems int) error
	Checkpoint(ctx context.Context, id string, processed, failed int, errorLog []domain.MigrationError, at time.Time) error
	Finish(ctx context.Context, id string, status domain.MigrationStatus, errorLog []domain.MigrationError, at time.Time) error
}

// BlobStore stores attachment payloads outside the document store.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// MigrationService drives bulk import of note exports: it batches notes,
// normalizes and persists them, and tracks per-job progress and partial
// failures. One instance owns one job at a time; concurrent jobs use
// distinct identities.
type MigrationService struct {
	jobs      MigrationJobRepositoryInterface
	tx        TxRunner
	blobs     BlobStore // nil when no blob storage is configured
	batchSize int
	uuidGen   UUIDGenerator
}

// NewMigrationService creates a new MigrationService instance
func NewMigrationService(jobs MigrationJobRepositoryInterface, tx TxRunner, blobs BlobStore, batchSize int) *MigrationService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MigrationService{
		jobs:      jobs,
		tx:        tx,
		blobs:     blobs,
		batchSize: batchSize,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewMigrationServiceWithUUIDGen creates a MigrationService with a custom UUID generator (for testing)
func NewMigrationServiceWithUUIDGen(jobs MigrationJobRepositoryInterface, tx TxRunner, blobs BlobStore, batchSize int, uuidGen UUIDGenerator) *MigrationService {
	svc := NewMigrationService(jobs, tx, blobs, batchSize)
	svc.uuidGen = uuidGen
	return svc
}

// Start registers a new job and runs the migration in the background.
// Callers observe completion through Status, never through this call.
func (s *MigrationService) Start(ctx context.Context, exportData []byte) (string, error) {
	jobID := s.uuidGen.NewString()

	job := domain.NewMigrationJob(jobID, time.Now().UTC())
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to create migration job: %w", err)
	}

	// The triggering request ends before the run does; the run owns its
	// own lifetime.
	go func() {
		if err := s.Run(context.Background(), jobID, exportData); err != nil {
			log.Printf("migration %s failed: %v", jobID, err)
		}
	}()

	return jobID, nil
}

// Run executes a migration synchronously for an already-registered job.
// A structural parse failure fails the job; per-note errors are counted
// and logged on the job without stopping the run.
func (s *MigrationService) Run(ctx context.Context, jobID string, exportData []byte) error {
	ctx, span := telemetry.StartSpan(ctx, "MigrationService.Run", telemetry.SpanAttributes{
		JobID:     jobID,
		Operation: "migrate",
	})
	defer span.End()

	export, err := enex.ParseExportString(string(exportData))
	if err != nil {
		structural := []domain.MigrationError{{Item: "export", Message: err.Error()}}
		if finishErr := s.jobs.Finish(ctx, jobID, domain.MigrationStatusFailed, structural, time.Now().UTC()); finishErr != nil {
			log.Printf("migration %s: failed to record structural error: %v", jobID, finishErr)
		}
		span.SetError(err)
		return err
	}

	if err := s.jobs.SetRunning(ctx, jobID, len(export.Notes)); err != nil {
		span.SetError(err)
		return err
	}

	processed := 0
	failed := 0
	var errorLog []domain.MigrationError

	for start := 0; start < len(export.Notes); start += s.batchSize {
		end := start + s.batchSize
		if end > len(export.Notes) {
			end = len(export.Notes)
		}

		results := s.processBatch(ctx, export.Notes[start:end], start)
		for _, res := range results {
			if res.err != nil {
				failed++
				errorLog = append(errorLog, domain.MigrationError{Item: res.item, Message: res.err.Error()})
			} else {
				processed++
			}
		}

		if err := s.jobs.Checkpoint(ctx, jobID, processed, failed, errorLog, time.Now().UTC()); err != nil {
			log.Printf("migration %s: checkpoint failed: %v", jobID, err)
		}
	}

	if err := s.jobs.Finish(ctx, jobID, domain.MigrationStatusCompleted, errorLog, time.Now().UTC()); err != nil {
		span.SetError(err)
		return err
	}

	log.Printf("migration %s completed: %d processed, %d failed", jobID, processed, failed)
	return nil
}

// Status returns the job's progress and error log.
func (s *MigrationService) Status(ctx context.Context, jobID string) (*domain.MigrationJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

type noteResult struct {
	item string
	err  error
}

// processBatch fans the batch out to one goroutine per note and folds the
// per-note results back in at the batch boundary. No counters are shared
// while notes are in flight.
func (s *MigrationService) processBatch(ctx context.Context, notes []enex.Note, offset int) []noteResult {
	results := make([]noteResult, len(notes))

	var wg sync.WaitGroup
	for i := range notes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item := notes[i].Title
			if item == "" {
				item = fmt.Sprintf("note #%d", offset+i+1)
			}
			results[i] = noteResult{item: item, err: s.processNote(ctx, &notes[i])}
		}(i)
	}
	wg.Wait()

	return results
}

// processNote normalizes one note and persists the document, its
// attachments and its embedding-queue entry in a single transaction.
// Attachment payloads go to blob storage after the transaction commits.
func (s *MigrationService) processNote(ctx context.Context, note *enex.Note) error {
	doc, err := enex.NormalizeNote(note)
	if err != nil {
		return err
	}

	type blobUpload struct {
		key         string
		contentType string
		data        []byte
	}
	var uploads []blobUpload

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Upsert(ctx, doc); err != nil {
			return err
		}

		// Re-imports replace the attachment set wholesale.
		if err := repos.Attachments().DeleteByDocument(ctx, doc.ID); err != nil {
			return err
		}

		for i := range note.Resources {
			att, data, err := enex.ExtractAttachment(&note.Resources[i], doc.ID)
			if err != nil {
				log.Printf("skipping undecodable resource on document %d: %v", doc.ID, err)
				continue
			}
			if err := repos.Attachments().Create(ctx, att); err != nil {
				return err
			}
			uploads = append(uploads, blobUpload{key: att.StorageKey, contentType: att.MimeType, data: data})
		}

		return repos.Queue().Enqueue(ctx, doc.ID, 0)
	})
	if err != nil {
		return err
	}

	if s.blobs != nil {
		for _, u := range uploads {
			if err := s.blobs.Put(ctx, u.key, u.contentType, u.data); err != nil {
				log.Printf("blob upload failed for %s: %v", u.key, err)
			}
		}
	}

	return nil
}
