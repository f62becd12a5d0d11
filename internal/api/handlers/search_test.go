package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackpile/noteforge/internal/domain"
	"github.com/stackpile/noteforge/internal/service"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, input service.SearchInput) ([]*service.SearchResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.SearchResult), args.Error(1)
}

func TestSearchHandler_Search_Success(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	results := []*service.SearchResult{
		{DocumentID: 1, Title: "Apollo kickoff", Score: 0.62, TextScore: 0.8, VectorScore: 0.5},
	}
	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.Query == "project plan" && input.Filters.Project == "apollo" && input.Limit == 5
	})).Return(results, nil)

	body := `{"query":"project plan","project":"apollo","limit":5}`
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data SearchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Count)
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "Apollo kickoff", resp.Data.Results[0].Title)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_MissingQuery(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"limit":5}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearchHandler_Search_InvalidBody(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Search_InvalidMode(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"q","mode":"fuzzy"}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler_Search_SemanticUnavailable(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingNotConfigured)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"q","mode":"semantic"}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSearchHandler_Search_NoResults(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).Return([]*service.SearchResult{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(`{"query":"nothing matches"}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}
