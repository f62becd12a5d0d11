package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/stackpile/noteforge/internal/domain"
	"github.com/stackpile/noteforge/internal/telemetry"
)

// DefaultVectorWeight balances semantic similarity against lexical rank in
// hybrid scoring.
const DefaultVectorWeight = 0.6

// DefaultSearchLimit applies when a request does not specify one.
const DefaultSearchLimit = 10

// MaxSearchLimit caps how many results one request may ask for.
const MaxSearchLimit = 100

// SearchMode selects which retrieval strategies participate.
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"
	SearchModeLexical  SearchMode = "lexical"
	SearchModeSemantic SearchMode = "semantic"
)

// SearchFilters narrows retrieval to documents matching organizational
// attributes. Empty fields match everything.
type SearchFilters struct {
	Contexts []string
	Project  string
	Area     string
}

// SearchInput is one search request.
type SearchInput struct {
	Query        string
	Filters      SearchFilters
	Limit        int
	VectorWeight float64
	Mode         SearchMode
}

// SearchCandidate is a scored row from one retrieval strategy.
type SearchCandidate struct {
	DocumentID int64
	Title      string
	Score      float64
	Snippet    string
	UpdatedAt  time.Time
}

// SearchResult is a merged, ranked hit.
type SearchResult struct {
	DocumentID  int64     `json:"document_id"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	Score       float64   `json:"score"`
	TextScore   float64   `json:"text_score"`
	VectorScore float64   `json:"vector_score"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchRepositoryInterface defines the repository interface for retrieval
type SearchRepositoryInterface interface {
	SearchLexical(ctx context.Context, query string, filters SearchFilters, limit int) ([]*SearchCandidate, error)
	SearchVector(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]*SearchCandidate, error)
}

// SearchService ranks documents by combining full-text rank with vector
// similarity. Without an embedding generator, or when the generator fails
// mid-query, hybrid requests degrade to lexical-only ranking; an explicit
// semantic-only request fails instead.
type SearchService struct {
	repo          SearchRepositoryInterface
	generator     EmbeddingGenerator // nil when embeddings are not configured
	defaultWeight float64
}

// NewSearchService creates a new SearchService instance. defaultWeight
// applies when a request carries no weight; zero selects the built-in
// default.
func NewSearchService(repo SearchRepositoryInterface, generator EmbeddingGenerator, defaultWeight float64) *SearchService {
	if defaultWeight <= 0 || defaultWeight > 1 {
		defaultWeight = DefaultVectorWeight
	}
	return &SearchService{
		repo:          repo,
		generator:     generator,
		defaultWeight: defaultWeight,
	}
}

// Search runs one retrieval request and returns ranked results.
func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]*SearchResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	weight := input.VectorWeight
	if weight <= 0 || weight > 1 {
		weight = s.defaultWeight
	}

	mode := input.Mode
	if mode == "" {
		mode = SearchModeHybrid
	}

	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Query:     query,
		Operation: string(mode),
	})
	defer span.End()

	semantic := mode != SearchModeLexical && s.generator != nil
	if mode == SearchModeSemantic && s.generator == nil {
		err := domain.ErrEmbeddingNotConfigured
		span.SetError(err)
		return nil, err
	}

	// Each strategy contributes up to twice the final limit so the merged
	// ranking has candidates that only one side found.
	candidateLimit := 2 * limit

	var lexical, vector []*SearchCandidate
	var err error

	if mode != SearchModeSemantic {
		lexical, err = s.repo.SearchLexical(ctx, query, input.Filters, candidateLimit)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("lexical search failed: %w", err)
		}
	}

	if semantic {
		embedding, embErr := s.generator.GenerateEmbedding(ctx, query)
		if embErr != nil {
			if mode == SearchModeSemantic {
				span.SetError(embErr)
				return nil, fmt.Errorf("failed to embed query: %w", embErr)
			}
			// Hybrid requests survive a broken embedding backend: rank
			// on the lexical candidates alone.
			log.Printf("search: query embedding failed, ranking lexically: %v", embErr)
			span.SetError(embErr)
			semantic = false
		} else {
			vector, err = s.repo.SearchVector(ctx, embedding, input.Filters, candidateLimit)
			if err != nil {
				if mode == SearchModeSemantic {
					span.SetError(err)
					return nil, fmt.Errorf("vector search failed: %w", err)
				}
				log.Printf("search: vector retrieval failed, ranking lexically: %v", err)
				span.SetError(err)
				semantic = false
				vector = nil
			}
		}
	}

	// Without a semantic side the combined score is the text score itself,
	// not a weighted fraction of it.
	if !semantic {
		weight = 0
	}

	results := mergeCandidates(lexical, vector, weight)
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// mergeCandidates joins the two candidate sets by document and computes the
// combined score: weight*vector + (1-weight)*text. A document found by only
// one strategy keeps a zero score on the other side.
func mergeCandidates(lexical, vector []*SearchCandidate, weight float64) []*SearchResult {
	merged := make(map[int64]*SearchResult, len(lexical)+len(vector))

	for _, c := range lexical {
		merged[c.DocumentID] = &SearchResult{
			DocumentID: c.DocumentID,
			Title:      c.Title,
			Snippet:    c.Snippet,
			TextScore:  c.Score,
			UpdatedAt:  c.UpdatedAt,
		}
	}

	for _, c := range vector {
		if r, ok := merged[c.DocumentID]; ok {
			r.VectorScore = c.Score
			if r.Snippet == "" {
				r.Snippet = c.Snippet
			}
			continue
		}
		merged[c.DocumentID] = &SearchResult{
			DocumentID:  c.DocumentID,
			Title:       c.Title,
			Snippet:     c.Snippet,
			VectorScore: c.Score,
			UpdatedAt:   c.UpdatedAt,
		}
	}

	results := make([]*SearchResult, 0, len(merged))
	for _, r := range merged {
		r.Score = weight*r.VectorScore + (1-weight)*r.TextScore
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	return results
}
