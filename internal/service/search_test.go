package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackpile/noteforge/internal/domain"
)

// MockSearchRepository is a mock implementation of SearchRepositoryInterface
type MockSearchRepository struct {
	mock.Mock
}

func (m *MockSearchRepository) SearchLexical(ctx context.Context, query string, filters SearchFilters, limit int) ([]*SearchCandidate, error) {
	args := m.Called(ctx, query, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SearchCandidate), args.Error(1)
}

func (m *MockSearchRepository) SearchVector(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]*SearchCandidate, error) {
	args := m.Called(ctx, embedding, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SearchCandidate), args.Error(1)
}

func TestSearchService_Search_HybridScoring(t *testing.T) {
	repo := new(MockSearchRepository)
	gen := new(MockEmbeddingGenerator)

	queryEmbedding := []float32{0.1, 0.2}
	gen.On("GenerateEmbedding", mock.Anything, "project plan").Return(queryEmbedding, nil)

	repo.On("SearchLexical", mock.Anything, "project plan", mock.Anything, 20).Return([]*SearchCandidate{
		{DocumentID: 1, Title: "Apollo kickoff", Score: 0.8, Snippet: "the <b>project plan</b> draft"},
		{DocumentID: 2, Title: "Meeting notes", Score: 0.4},
	}, nil)
	repo.On("SearchVector", mock.Anything, queryEmbedding, mock.Anything, 20).Return([]*SearchCandidate{
		{DocumentID: 1, Title: "Apollo kickoff", Score: 0.5},
		{DocumentID: 3, Title: "Roadmap", Score: 0.9, Snippet: "Roadmap for the next quarter"},
	}, nil)

	svc := NewSearchService(repo, gen, 0)
	results, err := svc.Search(context.Background(), SearchInput{Query: "project plan", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Doc 3 was found only by the vector side: 0.6*0.9 = 0.54.
	assert.Equal(t, int64(1), results[0].DocumentID)
	assert.InDelta(t, 0.6*0.5+0.4*0.8, results[0].Score, 1e-9)
	assert.Equal(t, int64(3), results[1].DocumentID)
	assert.InDelta(t, 0.54, results[1].Score, 1e-9)
	assert.Equal(t, int64(2), results[2].DocumentID)
	assert.InDelta(t, 0.4*0.4, results[2].Score, 1e-9)

	// The lexical snippet wins when both sides returned the document.
	assert.Equal(t, "the <b>project plan</b> draft", results[0].Snippet)
	assert.Equal(t, 0.8, results[0].TextScore)
	assert.Equal(t, 0.5, results[0].VectorScore)
}

func TestSearchService_Search_DegradesWithoutGenerator(t *testing.T) {
	repo := new(MockSearchRepository)

	repo.On("SearchLexical", mock.Anything, "inbox review", mock.Anything, 20).Return([]*SearchCandidate{
		{DocumentID: 5, Title: "Weekly review", Score: 0.8},
	}, nil)

	svc := NewSearchService(repo, nil, 0)
	results, err := svc.Search(context.Background(), SearchInput{Query: "inbox review", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Degraded ranking scores on the text side alone.
	assert.InDelta(t, 0.8, results[0].Score, 1e-9)
	assert.Zero(t, results[0].VectorScore)
	repo.AssertNotCalled(t, "SearchVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_Search_HybridDegradesOnGeneratorError(t *testing.T) {
	repo := new(MockSearchRepository)
	gen := new(MockEmbeddingGenerator)

	gen.On("GenerateEmbedding", mock.Anything, "plumber invoice").Return(nil, errors.New("embedding backend unavailable"))
	repo.On("SearchLexical", mock.Anything, "plumber invoice", mock.Anything, 20).Return([]*SearchCandidate{
		{DocumentID: 9, Title: "Bathroom repairs", Score: 0.7},
	}, nil)

	svc := NewSearchService(repo, gen, 0)
	results, err := svc.Search(context.Background(), SearchInput{Query: "plumber invoice", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, int64(9), results[0].DocumentID)
	assert.InDelta(t, 0.7, results[0].Score, 1e-9)
	repo.AssertNotCalled(t, "SearchVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_Search_HybridDegradesOnVectorError(t *testing.T) {
	repo := new(MockSearchRepository)
	gen := new(MockEmbeddingGenerator)

	queryEmbedding := []float32{0.3, 0.1}
	gen.On("GenerateEmbedding", mock.Anything, "budget draft").Return(queryEmbedding, nil)
	repo.On("SearchLexical", mock.Anything, "budget draft", mock.Anything, 20).Return([]*SearchCandidate{
		{DocumentID: 2, Title: "Q3 budget", Score: 0.6},
	}, nil)
	repo.On("SearchVector", mock.Anything, queryEmbedding, mock.Anything, 20).Return(nil, errors.New("connection reset"))

	svc := NewSearchService(repo, gen, 0)
	results, err := svc.Search(context.Background(), SearchInput{Query: "budget draft", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.6, results[0].Score, 1e-9)
}

func TestSearchService_Search_SemanticModeSurfacesGeneratorError(t *testing.T) {
	repo := new(MockSearchRepository)
	gen := new(MockEmbeddingGenerator)

	gen.On("GenerateEmbedding", mock.Anything, "anything").Return(nil, errors.New("embedding backend unavailable"))

	svc := NewSearchService(repo, gen, 0)
	_, err := svc.Search(context.Background(), SearchInput{Query: "anything", Mode: SearchModeSemantic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed query")
}

func TestSearchService_Search_SemanticRequiresGenerator(t *testing.T) {
	repo := new(MockSearchRepository)

	svc := NewSearchService(repo, nil, 0)
	_, err := svc.Search(context.Background(), SearchInput{Query: "anything", Mode: SearchModeSemantic})
	assert.ErrorIs(t, err, domain.ErrEmbeddingNotConfigured)
}

func TestSearchService_Search_LexicalMode(t *testing.T) {
	repo := new(MockSearchRepository)
	gen := new(MockEmbeddingGenerator)

	repo.On("SearchLexical", mock.Anything, "tax receipts", mock.Anything, 20).Return([]*SearchCandidate{
		{DocumentID: 7, Title: "Receipts 2023", Score: 0.6},
	}, nil)

	svc := NewSearchService(repo, gen, 0)
	results, err := svc.Search(context.Background(), SearchInput{Query: "tax receipts", Mode: SearchModeLexical, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)

	gen.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SearchVector", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchService_Search_EmptyQuery(t *testing.T) {
	repo := new(MockSearchRepository)

	svc := NewSearchService(repo, nil, 0)
	_, err := svc.Search(context.Background(), SearchInput{Query: "   "})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestSearchService_Search_TieBreakAndTruncation(t *testing.T) {
	repo := new(MockSearchRepository)

	repo.On("SearchLexical", mock.Anything, "notes", mock.Anything, 4).Return([]*SearchCandidate{
		{DocumentID: 12, Title: "B", Score: 0.5},
		{DocumentID: 4, Title: "A", Score: 0.5},
		{DocumentID: 30, Title: "C", Score: 0.2},
	}, nil)

	svc := NewSearchService(repo, nil, 0)
	results, err := svc.Search(context.Background(), SearchInput{Query: "notes", Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Equal scores order by ascending document id.
	assert.Equal(t, int64(4), results[0].DocumentID)
	assert.Equal(t, int64(12), results[1].DocumentID)
}

func TestSearchService_Search_CandidateLimitIsTwiceFinal(t *testing.T) {
	repo := new(MockSearchRepository)
	gen := new(MockEmbeddingGenerator)

	gen.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{0.1}, nil)
	repo.On("SearchLexical", mock.Anything, "q", mock.Anything, 50).Return([]*SearchCandidate{}, nil)
	repo.On("SearchVector", mock.Anything, mock.Anything, mock.Anything, 50).Return([]*SearchCandidate{}, nil)

	svc := NewSearchService(repo, gen, 0)
	results, err := svc.Search(context.Background(), SearchInput{Query: "q", Limit: 25})
	require.NoError(t, err)
	assert.Empty(t, results)
	repo.AssertExpectations(t)
}

func TestSearchService_Search_FiltersPassedThrough(t *testing.T) {
	repo := new(MockSearchRepository)

	filters := SearchFilters{Contexts: []string{"@computer"}, Project: "apollo", Area: "work"}
	repo.On("SearchLexical", mock.Anything, "design doc", filters, 20).Return([]*SearchCandidate{}, nil)

	svc := NewSearchService(repo, nil, 0)
	_, err := svc.Search(context.Background(), SearchInput{Query: "design doc", Filters: filters, Limit: 10})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSearchService_Search_InvalidWeightFallsBack(t *testing.T) {
	repo := new(MockSearchRepository)
	gen := new(MockEmbeddingGenerator)

	queryEmbedding := []float32{0.2}
	gen.On("GenerateEmbedding", mock.Anything, "q").Return(queryEmbedding, nil)
	repo.On("SearchLexical", mock.Anything, "q", mock.Anything, 20).Return([]*SearchCandidate{
		{DocumentID: 1, Score: 1.0},
	}, nil)
	repo.On("SearchVector", mock.Anything, queryEmbedding, mock.Anything, 20).Return([]*SearchCandidate{
		{DocumentID: 1, Score: 0.5},
	}, nil)

	svc := NewSearchService(repo, gen, 0)
	results, err := svc.Search(context.Background(), SearchInput{Query: "q", Limit: 10, VectorWeight: 1.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.6*0.5+0.4*1.0, results[0].Score, 1e-9)
}
