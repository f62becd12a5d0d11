package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackpile/noteforge/internal/api"
	"github.com/stackpile/noteforge/internal/domain"
)

type MigrationService interface {
	Start(ctx context.Context, exportData []byte) (string, error)
	Status(ctx context.Context, jobID string) (*domain.MigrationJob, error)
}

type MigrationHandler struct {
	svc MigrationService
}

func NewMigrationHandler(svc MigrationService) *MigrationHandler {
	return &MigrationHandler{svc: svc}
}

type StartMigrationResponse struct {
	JobID string `json:"job_id"`
}

type MigrationJobResponse struct {
	ID             string                  `json:"id"`
	Status         string                  `json:"status"`
	TotalItems     int                     `json:"total_items"`
	ProcessedItems int                     `json:"processed_items"`
	FailedItems    int                     `json:"failed_items"`
	ErrorLog       []domain.MigrationError `json:"error_log"`
	StartedAt      string                  `json:"started_at"`
	CompletedAt    string                  `json:"completed_at,omitempty"`
}

func migrationJobToResponse(job *domain.MigrationJob) *MigrationJobResponse {
	resp := &MigrationJobResponse{
		ID:             job.ID,
		Status:         string(job.Status),
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		FailedItems:    job.FailedItems,
		ErrorLog:       job.ErrorLog,
		StartedAt:      job.StartedAt.Format("2006-01-02T15:04:05Z"),
	}
	if resp.ErrorLog == nil {
		resp.ErrorLog = []domain.MigrationError{}
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// Start accepts a raw export document and begins an import in the
// background. The response carries the job id for status polling.
func (h *MigrationHandler) Start(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		api.Error(w, http.StatusBadRequest, "export body is required")
		return
	}

	jobID, err := h.svc.Start(r.Context(), body)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, StartMigrationResponse{JobID: jobID})
}

func (h *MigrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.Status(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, migrationJobToResponse(job))
}
