package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stackpile/noteforge/internal/domain"
)

// claimLease is how long a claimed entry stays invisible to other
// processors before it is considered abandoned and re-surfaced.
const claimLease = 10 * time.Minute

type EmbeddingQueueRepository struct {
	db dbtx
}

func NewEmbeddingQueueRepository(pool *pgxpool.Pool) *EmbeddingQueueRepository {
	return &EmbeddingQueueRepository{db: pool}
}

func NewEmbeddingQueueRepositoryWithTx(tx pgx.Tx) *EmbeddingQueueRepository {
	return &EmbeddingQueueRepository{db: tx}
}

// Enqueue inserts a pending entry for the document. While an unprocessed
// entry exists the insert is an idempotent no-op.
func (r *EmbeddingQueueRepository) Enqueue(ctx context.Context, documentID int64, priority int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO embedding_queue (document_id, priority, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (document_id) WHERE processed_at IS NULL DO NOTHING`,
		documentID, priority, time.Now().UTC(),
	)
	return err
}

// ClaimPending atomically claims up to limit unprocessed entries ordered by
// priority, then insertion order. Claimed entries are skipped by concurrent
// processors until the lease expires.
func (r *EmbeddingQueueRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.QueueEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM embedding_queue
			 WHERE processed_at IS NULL
			   AND (claimed_at IS NULL OR claimed_at < $1)
			 ORDER BY priority DESC, created_at ASC, id ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE embedding_queue
		 SET claimed_at = $3
		 FROM cte
		 WHERE embedding_queue.id = cte.id
		 RETURNING embedding_queue.id, embedding_queue.document_id, embedding_queue.priority,
		           embedding_queue.attempts, embedding_queue.last_error, embedding_queue.created_at,
		           embedding_queue.processed_at`,
		time.Now().UTC().Add(-claimLease), limit, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.QueueEntry
	for rows.Next() {
		var entry domain.QueueEntry
		var lastError pgtype.Text
		if err := rows.Scan(&entry.ID, &entry.DocumentID, &entry.Priority,
			&entry.Attempts, &lastError, &entry.CreatedAt, &entry.ProcessedAt); err != nil {
			return nil, err
		}
		if lastError.Valid {
			entry.LastError = lastError.String
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// MarkProcessed stamps the entry as done.
func (r *EmbeddingQueueRepository) MarkProcessed(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE embedding_queue SET processed_at = $1, last_error = NULL WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrQueueEntryNotFound
	}
	return nil
}

// RecordFailure increments the attempt counter, stores the error message and
// releases the claim so the entry is retrievable on the next drain.
func (r *EmbeddingQueueRepository) RecordFailure(ctx context.Context, id int64, message string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE embedding_queue
		 SET attempts = attempts + 1, last_error = $1, claimed_at = NULL
		 WHERE id = $2`,
		message, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrQueueEntryNotFound
	}
	return nil
}

// PendingCount reports how many entries are waiting.
func (r *EmbeddingQueueRepository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM embedding_queue WHERE processed_at IS NULL`,
	).Scan(&count)
	return count, err
}
