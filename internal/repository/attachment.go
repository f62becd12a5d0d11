package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stackpile/noteforge/internal/domain"
)

type AttachmentRepository struct {
	db dbtx
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{db: pool}
}

func NewAttachmentRepositoryWithTx(tx pgx.Tx) *AttachmentRepository {
	return &AttachmentRepository{db: tx}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO attachments (document_id, filename, mime_type, byte_size, storage_key, extracted_text, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		a.DocumentID, a.Filename, a.MimeType, a.ByteSize, a.StorageKey,
		nullableString(a.ExtractedText), a.Metadata,
	).Scan(&a.ID)
}

func (r *AttachmentRepository) ListByDocument(ctx context.Context, documentID int64) ([]*domain.Attachment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, filename, mime_type, byte_size, storage_key, extracted_text, metadata
		 FROM attachments WHERE document_id = $1 ORDER BY id ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []*domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		var extractedText *string
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Filename, &a.MimeType, &a.ByteSize,
			&a.StorageKey, &extractedText, &a.Metadata); err != nil {
			return nil, err
		}
		if extractedText != nil {
			a.ExtractedText = *extractedText
		}
		attachments = append(attachments, &a)
	}
	return attachments, rows.Err()
}

// DeleteByDocument removes attachment rows for a document. Blob objects are
// content-addressed and may be shared, so they are left in place.
func (r *AttachmentRepository) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM attachments WHERE document_id = $1`, documentID)
	return err
}
