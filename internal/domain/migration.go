package domain

import (
	"fmt"
	"time"
)

// MigrationStatus represents the lifecycle state of a migration job
type MigrationStatus string

const (
	MigrationStatusPending   MigrationStatus = "pending"
	MigrationStatusRunning   MigrationStatus = "running"
	MigrationStatusCompleted MigrationStatus = "completed"
	MigrationStatusFailed    MigrationStatus = "failed"
)

// MigrationError is one entry in a job's error log
type MigrationError struct {
	Item    string `json:"item"`
	Message string `json:"message"`
}

// MigrationJob tracks one bulk import run. A job completes even when
// individual notes fail; it fails only on a structural error such as an
// unparseable export.
type MigrationJob struct {
	ID               string
	Status           MigrationStatus
	TotalItems       int
	ProcessedItems   int
	FailedItems      int
	ErrorLog         []MigrationError
	StartedAt        time.Time
	CompletedAt      *time.Time
	LastCheckpointAt *time.Time
}

// NewMigrationJob creates a pending MigrationJob
func NewMigrationJob(id string, startedAt time.Time) *MigrationJob {
	return &MigrationJob{
		ID:        id,
		Status:    MigrationStatusPending,
		StartedAt: startedAt,
	}
}

// ValidateMigrationJob validates a MigrationJob instance
func ValidateMigrationJob(j *MigrationJob) error {
	if j == nil {
		return fmt.Errorf("migration job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("migration job ID is required")
	}

	if !isValidMigrationStatus(j.Status) {
		return fmt.Errorf("migration job Status is invalid: %s", j.Status)
	}

	if j.ProcessedItems < 0 || j.FailedItems < 0 || j.TotalItems < 0 {
		return fmt.Errorf("migration job counters must not be negative")
	}

	return nil
}

// isValidMigrationStatus checks if a MigrationStatus is valid
func isValidMigrationStatus(s MigrationStatus) bool {
	switch s {
	case MigrationStatusPending, MigrationStatusRunning, MigrationStatusCompleted, MigrationStatusFailed:
		return true
	}
	return false
}
