package domain

import "time"

// QueueEntry represents one document waiting for embedding generation.
// At most one unprocessed entry exists per document; enqueueing is an
// idempotent no-op while a pending entry is present.
type QueueEntry struct {
	ID          int64
	DocumentID  int64
	Priority    int
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time // nil means pending
}

// Pending reports whether the entry is still waiting to be processed.
func (e *QueueEntry) Pending() bool {
	return e.ProcessedAt == nil
}
