// Package openai wraps the OpenAI embeddings API behind a small client
// used as the external embedding generator.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the documents.embedding column width
	DefaultEmbeddingDimensions = 1536
	// MaxInputChars bounds embedding input to the generator's limit
	MaxInputChars = 8000
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNotConfigured is returned when no API key is configured
	ErrNotConfigured = errors.New("embedding generator not configured: missing API key")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client wraps the OpenAI API client
type Client struct {
	api        EmbeddingAPI
	dimensions int
}

type apiAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func newAPIAdapter(apiKey string, model openai.EmbeddingModel) *apiAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &apiAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *apiAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewClient creates a new OpenAI client using defaults. An empty API key
// is rejected so an unconfigured generator stays a detectable state.
func NewClient(apiKey string) (*Client, error) {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        newAPIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions: dimensions,
	}, nil
}

// GenerateEmbedding generates an embedding for the given text, truncating
// input beyond the generator's limit.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	if len(text) > MaxInputChars {
		text = text[:MaxInputChars]
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), c.dimensions)
	}

	return embedding, nil
}

// Dimensions returns the expected embedding width.
func (c *Client) Dimensions() int {
	return c.dimensions
}
