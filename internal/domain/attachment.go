package domain

import "fmt"

// Attachment represents a binary resource belonging to exactly one document.
// Raw bytes live in blob storage under StorageKey; the store only keeps
// this reference record.
type Attachment struct {
	ID            int64
	DocumentID    int64
	Filename      string
	MimeType      string
	ByteSize      int64
	StorageKey    string
	ExtractedText string // best-effort OCR output, may be empty
	Metadata      map[string]string
}

// ValidateAttachment validates an Attachment instance
func ValidateAttachment(a *Attachment) error {
	if a == nil {
		return fmt.Errorf("attachment cannot be nil")
	}

	if a.DocumentID == 0 {
		return fmt.Errorf("attachment DocumentID is required")
	}

	if a.MimeType == "" {
		return fmt.Errorf("attachment MimeType is required")
	}

	if a.StorageKey == "" {
		return fmt.Errorf("attachment StorageKey is required")
	}

	if a.ByteSize < 0 {
		return fmt.Errorf("attachment ByteSize must not be negative")
	}

	return nil
}
