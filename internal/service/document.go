package service

import (
	"context"

	"github.com/stackpile/noteforge/internal/domain"
)

// DocumentStoreInterface defines the repository interface for document reads
// and soft deletion
type DocumentStoreInterface interface {
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	GetBySourceID(ctx context.Context, sourceID string) (*domain.Document, error)
	List(ctx context.Context, filters SearchFilters, limit int) ([]*domain.Document, error)
	SoftDelete(ctx context.Context, id int64) error
}

// AttachmentListerInterface defines the repository interface for attachment reads
type AttachmentListerInterface interface {
	ListByDocument(ctx context.Context, documentID int64) ([]*domain.Attachment, error)
}

// DocumentService exposes read and lifecycle operations on stored documents.
type DocumentService struct {
	repo        DocumentStoreInterface
	attachments AttachmentListerInterface
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(repo DocumentStoreInterface, attachments AttachmentListerInterface) *DocumentService {
	return &DocumentService{repo: repo, attachments: attachments}
}

// Get returns one document by id.
func (s *DocumentService) Get(ctx context.Context, id int64) (*domain.Document, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySourceID returns one document by its import identity.
func (s *DocumentService) GetBySourceID(ctx context.Context, sourceID string) (*domain.Document, error) {
	return s.repo.GetBySourceID(ctx, sourceID)
}

// List returns active documents matching the filters, most recent first.
func (s *DocumentService) List(ctx context.Context, filters SearchFilters, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return s.repo.List(ctx, filters, limit)
}

// Attachments returns a document's attachment records.
func (s *DocumentService) Attachments(ctx context.Context, documentID int64) ([]*domain.Attachment, error) {
	if _, err := s.repo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.attachments.ListByDocument(ctx, documentID)
}

// Delete soft-deletes a document. The row stays for re-import identity but
// leaves listings and search.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}
