package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stackpile/noteforge/internal/domain"
)

type MigrationJobRepository struct {
	db dbtx
}

func NewMigrationJobRepository(pool *pgxpool.Pool) *MigrationJobRepository {
	return &MigrationJobRepository{db: pool}
}

func NewMigrationJobRepositoryWithTx(tx pgx.Tx) *MigrationJobRepository {
	return &MigrationJobRepository{db: tx}
}

// Create inserts the job row, resetting counters and status when a job with
// the same identity is restarted.
func (r *MigrationJobRepository) Create(ctx context.Context, job *domain.MigrationJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO migration_jobs (id, status, total_items, processed_items, failed_items, error_log, started_at, completed_at, last_checkpoint_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			total_items = EXCLUDED.total_items,
			processed_items = EXCLUDED.processed_items,
			failed_items = EXCLUDED.failed_items,
			error_log = EXCLUDED.error_log,
			started_at = EXCLUDED.started_at,
			completed_at = NULL,
			last_checkpoint_at = NULL`,
		job.ID, job.Status, job.TotalItems, job.ProcessedItems, job.FailedItems,
		errorLogJSON(job.ErrorLog), job.StartedAt, job.CompletedAt, job.LastCheckpointAt,
	)
	return err
}

func (r *MigrationJobRepository) GetByID(ctx context.Context, id string) (*domain.MigrationJob, error) {
	var job domain.MigrationJob
	err := r.db.QueryRow(ctx,
		`SELECT id, status, total_items, processed_items, failed_items, error_log, started_at, completed_at, last_checkpoint_at
		 FROM migration_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.Status, &job.TotalItems, &job.ProcessedItems, &job.FailedItems,
		&job.ErrorLog, &job.StartedAt, &job.CompletedAt, &job.LastCheckpointAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMigrationJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

// SetRunning marks the job running with a known item total.
func (r *MigrationJobRepository) SetRunning(ctx context.Context, id string, totalItems int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE migration_jobs SET status = $1, total_items = $2 WHERE id = $3`,
		domain.MigrationStatusRunning, totalItems, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMigrationJobNotFound
	}
	return nil
}

// Checkpoint persists batch progress. This write is the only durability
// guarantee for a partially completed run.
func (r *MigrationJobRepository) Checkpoint(ctx context.Context, id string, processed, failed int, errorLog []domain.MigrationError, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE migration_jobs
		 SET processed_items = $1, failed_items = $2, error_log = $3, last_checkpoint_at = $4
		 WHERE id = $5`,
		processed, failed, errorLogJSON(errorLog), at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMigrationJobNotFound
	}
	return nil
}

// Finish transitions the job to a terminal status and records completion time.
func (r *MigrationJobRepository) Finish(ctx context.Context, id string, status domain.MigrationStatus, errorLog []domain.MigrationError, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE migration_jobs SET status = $1, error_log = $2, completed_at = $3 WHERE id = $4`,
		status, errorLogJSON(errorLog), at, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMigrationJobNotFound
	}
	return nil
}

// errorLogJSON keeps an empty log as a JSON array rather than NULL.
func errorLogJSON(log []domain.MigrationError) []domain.MigrationError {
	if log == nil {
		return []domain.MigrationError{}
	}
	return log
}
