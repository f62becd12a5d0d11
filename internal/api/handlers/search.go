package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stackpile/noteforge/internal/api"
	"github.com/stackpile/noteforge/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) ([]*service.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query        string   `json:"query"`
	Contexts     []string `json:"contexts,omitempty"`
	Project      string   `json:"project,omitempty"`
	Area         string   `json:"area,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	VectorWeight float64  `json:"vector_weight,omitempty"`
	Mode         string   `json:"mode,omitempty"`
}

type SearchResponse struct {
	Results []*service.SearchResult `json:"results"`
	Count   int                     `json:"count"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	mode := service.SearchMode(req.Mode)
	switch mode {
	case "", service.SearchModeHybrid, service.SearchModeLexical, service.SearchModeSemantic:
	default:
		api.Error(w, http.StatusBadRequest, "invalid search mode")
		return
	}

	input := service.SearchInput{
		Query: req.Query,
		Filters: service.SearchFilters{
			Contexts: req.Contexts,
			Project:  req.Project,
			Area:     req.Area,
		},
		Limit:        req.Limit,
		VectorWeight: req.VectorWeight,
		Mode:         mode,
	}

	results, err := h.svc.Search(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if results == nil {
		results = []*service.SearchResult{}
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results, Count: len(results)})
}
