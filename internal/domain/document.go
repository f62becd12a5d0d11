package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the workflow status of a document
type DocumentStatus string

const (
	DocumentStatusActive    DocumentStatus = "active"
	DocumentStatusCompleted DocumentStatus = "completed"
	DocumentStatusArchived  DocumentStatus = "archived"
)

// DefaultContext is assigned when no context could be inferred from tags.
const DefaultContext = "@inbox"

// EmbeddingDimensions is the width of the documents.embedding vector column.
const EmbeddingDimensions = 1536

// Document represents one normalized note in the store
type Document struct {
	ID             int64
	SourceID       string // external identity, unique when present
	Title          string
	Content        string
	Contexts       []string
	Project        string
	Area           string
	Status         DocumentStatus
	Embedding      []float32
	NeedsEmbedding bool
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsActive       bool
}

// NewDocument creates a Document with the invariant defaults applied:
// a placeholder title when none is given, the default context when the
// context set is empty, active status, and the needs-embedding flag set.
func NewDocument(sourceID, title, content string, contexts []string, createdAt, updatedAt time.Time) *Document {
	if title == "" {
		title = PlaceholderTitle(createdAt)
	}
	if len(contexts) == 0 {
		contexts = []string{DefaultContext}
	}
	return &Document{
		SourceID:       sourceID,
		Title:          title,
		Content:        content,
		Contexts:       contexts,
		Status:         DocumentStatusActive,
		NeedsEmbedding: true,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		IsActive:       true,
	}
}

// PlaceholderTitle generates the fallback title for an untitled note.
func PlaceholderTitle(createdAt time.Time) string {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return fmt.Sprintf("Untitled note %s", createdAt.UTC().Format("2006-01-02"))
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}

	if len(d.Contexts) == 0 {
		return fmt.Errorf("document Contexts must not be empty")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	if d.Embedding != nil && len(d.Embedding) != EmbeddingDimensions {
		return fmt.Errorf("document Embedding has %d dimensions, expected %d", len(d.Embedding), EmbeddingDimensions)
	}

	return nil
}

// isValidDocumentStatus checks if a DocumentStatus is valid
func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusActive, DocumentStatusCompleted, DocumentStatusArchived:
		return true
	}
	return false
}
