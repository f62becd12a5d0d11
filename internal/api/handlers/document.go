package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stackpile/noteforge/internal/api"
	"github.com/stackpile/noteforge/internal/domain"
	"github.com/stackpile/noteforge/internal/service"
)

type DocumentService interface {
	Get(ctx context.Context, id int64) (*domain.Document, error)
	List(ctx context.Context, filters service.SearchFilters, limit int) ([]*domain.Document, error)
	Attachments(ctx context.Context, documentID int64) ([]*domain.Attachment, error)
	Delete(ctx context.Context, id int64) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID        int64             `json:"id"`
	SourceID  string            `json:"source_id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Contexts  []string          `json:"contexts"`
	Project   string            `json:"project,omitempty"`
	Area      string            `json:"area,omitempty"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

type AttachmentResponse struct {
	ID            int64  `json:"id"`
	Filename      string `json:"filename"`
	MimeType      string `json:"mime_type"`
	ByteSize      int64  `json:"byte_size"`
	StorageKey    string `json:"storage_key"`
	ExtractedText string `json:"extracted_text,omitempty"`
}

type DocumentListResponse struct {
	Items []*DocumentResponse `json:"items"`
	Count int                 `json:"count"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:        d.ID,
		SourceID:  d.SourceID,
		Title:     d.Title,
		Content:   d.Content,
		Contexts:  d.Contexts,
		Project:   d.Project,
		Area:      d.Area,
		Status:    string(d.Status),
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func attachmentToResponse(a *domain.Attachment) *AttachmentResponse {
	return &AttachmentResponse{
		ID:            a.ID,
		Filename:      a.Filename,
		MimeType:      a.MimeType,
		ByteSize:      a.ByteSize,
		StorageKey:    a.StorageKey,
		ExtractedText: a.ExtractedText,
	}
}

func documentID(r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(r)
	if !ok {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	filters := service.SearchFilters{
		Contexts: q["context"],
		Project:  q.Get("project"),
		Area:     q.Get("area"),
	}

	docs, err := h.svc.List(r.Context(), filters, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{Items: items, Count: len(items)})
}

func (h *DocumentHandler) Attachments(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(r)
	if !ok {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	attachments, err := h.svc.Attachments(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*AttachmentResponse, len(attachments))
	for i, a := range attachments {
		items[i] = attachmentToResponse(a)
	}

	api.Success(w, http.StatusOK, items)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(r)
	if !ok {
		api.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
