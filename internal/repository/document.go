package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/stackpile/noteforge/internal/domain"
	"github.com/stackpile/noteforge/internal/service"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// Upsert inserts the document or, when its source identity already exists,
// overwrites the mutable fields. The internal id and creation time of an
// existing row are preserved. The store's conflict semantics resolve
// concurrent writers: last writer wins.
func (r *DocumentRepository) Upsert(ctx context.Context, d *domain.Document) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents
			(source_id, title, content, contexts, project, area, status, needs_embedding, metadata, created_at, updated_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10, TRUE)
		 ON CONFLICT (source_id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			contexts = EXCLUDED.contexts,
			project = EXCLUDED.project,
			area = EXCLUDED.area,
			status = EXCLUDED.status,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			needs_embedding = TRUE,
			is_active = TRUE
		 RETURNING id, created_at`,
		nullableString(d.SourceID), d.Title, d.Content, d.Contexts,
		nullableString(d.Project), nullableString(d.Area), d.Status,
		d.Metadata, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	d.NeedsEmbedding = true
	d.IsActive = true
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	var d domain.Document
	var sourceID, project, area *string
	err := r.db.QueryRow(ctx,
		`SELECT id, source_id, title, content, contexts, project, area, status, needs_embedding, metadata, created_at, updated_at, is_active
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &sourceID, &d.Title, &d.Content, &d.Contexts, &project, &area,
		&d.Status, &d.NeedsEmbedding, &d.Metadata, &d.CreatedAt, &d.UpdatedAt, &d.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if sourceID != nil {
		d.SourceID = *sourceID
	}
	if project != nil {
		d.Project = *project
	}
	if area != nil {
		d.Area = *area
	}
	return &d, nil
}

func (r *DocumentRepository) GetBySourceID(ctx context.Context, sourceID string) (*domain.Document, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`SELECT id FROM documents WHERE source_id = $1`,
		sourceID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// List returns active documents matching the context/project/area filters,
// most recently updated first.
func (r *DocumentRepository) List(ctx context.Context, filters service.SearchFilters, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, source_id, title, content, contexts, project, area, status, needs_embedding, metadata, created_at, updated_at, is_active
		 FROM documents WHERE is_active`
	args := []any{}
	query, args = appendFilterClauses(query, args, filters)
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		var sourceID, project, area *string
		if err := rows.Scan(&d.ID, &sourceID, &d.Title, &d.Content, &d.Contexts, &project, &area,
			&d.Status, &d.NeedsEmbedding, &d.Metadata, &d.CreatedAt, &d.UpdatedAt, &d.IsActive); err != nil {
			return nil, err
		}
		if sourceID != nil {
			d.SourceID = *sourceID
		}
		if project != nil {
			d.Project = *project
		}
		if area != nil {
			d.Area = *area
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// UpdateEmbedding stores a generated vector and clears the needs-embedding
// flag in one write.
func (r *DocumentRepository) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET embedding = $1, needs_embedding = FALSE, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// SoftDelete deactivates a document; search and listing skip inactive rows.
func (r *DocumentRepository) SoftDelete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET is_active = FALSE, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// SearchLexical ranks active documents against the query with Postgres
// full-text search, returning candidates with rank scores and headlines.
func (r *DocumentRepository) SearchLexical(ctx context.Context, query string, filters service.SearchFilters, limit int) ([]*service.SearchCandidate, error) {
	if limit <= 0 {
		limit = 20
	}

	sql := `SELECT id, title,
			ts_rank(to_tsvector('english', title || ' ' || content), websearch_to_tsquery('english', $1)) AS score,
			ts_headline('english', content, websearch_to_tsquery('english', $1), 'MaxWords=35, MinWords=15, MaxFragments=1') AS snippet,
			updated_at
		 FROM documents
		 WHERE is_active
		   AND to_tsvector('english', title || ' ' || content) @@ websearch_to_tsquery('english', $1)`
	args := []any{query}
	sql, args = appendFilterClauses(sql, args, filters)
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY score DESC, id ASC LIMIT $%d", len(args))

	return r.scanCandidates(ctx, sql, args)
}

// SearchVector ranks active documents with a stored embedding by cosine
// similarity against the query vector.
func (r *DocumentRepository) SearchVector(ctx context.Context, embedding []float32, filters service.SearchFilters, limit int) ([]*service.SearchCandidate, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)
	sql := `SELECT id, title,
			1 - (embedding <=> $1) AS score,
			left(content, 280) AS snippet,
			updated_at
		 FROM documents
		 WHERE is_active AND embedding IS NOT NULL`
	args := []any{vec}
	sql, args = appendFilterClauses(sql, args, filters)
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY embedding <=> $1 ASC, id ASC LIMIT $%d", len(args))

	return r.scanCandidates(ctx, sql, args)
}

func (r *DocumentRepository) scanCandidates(ctx context.Context, sql string, args []any) ([]*service.SearchCandidate, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []*service.SearchCandidate
	for rows.Next() {
		var c service.SearchCandidate
		if err := rows.Scan(&c.DocumentID, &c.Title, &c.Score, &c.Snippet, &c.UpdatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, &c)
	}
	return candidates, rows.Err()
}

func appendFilterClauses(sql string, args []any, filters service.SearchFilters) (string, []any) {
	if len(filters.Contexts) > 0 {
		args = append(args, filters.Contexts)
		sql += fmt.Sprintf(" AND contexts && $%d", len(args))
	}
	if filters.Project != "" {
		args = append(args, filters.Project)
		sql += fmt.Sprintf(" AND project = $%d", len(args))
	}
	if filters.Area != "" {
		args = append(args, filters.Area)
		sql += fmt.Sprintf(" AND area = $%d", len(args))
	}
	return sql, args
}
