package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query        string   `json:"query"`
	Contexts     []string `json:"contexts,omitempty"`
	Project      string   `json:"project,omitempty"`
	Area         string   `json:"area,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	VectorWeight float64  `json:"vector_weight,omitempty"`
	Mode         string   `json:"mode,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	DocumentID  int64   `json:"document_id"`
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet,omitempty"`
	Score       float64 `json:"score"`
	TextScore   float64 `json:"text_score"`
	VectorScore float64 `json:"vector_score"`
	UpdatedAt   string  `json:"updated_at"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		contexts []string
		project  string
		area     string
		limit    int
		weight   float64
		mode     string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents",
		Long:  "Searches the document store combining full-text and semantic ranking.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			req := SearchRequest{
				Query:        args[0],
				Contexts:     contexts,
				Project:      project,
				Area:         area,
				Limit:        limit,
				VectorWeight: weight,
				Mode:         mode,
			}
			return runSearch(cmd, req, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&contexts, "context", "c", nil, "Filter by context tag (repeatable)")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Filter by project")
	cmd.Flags().StringVar(&area, "area", "", "Filter by area")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().Float64Var(&weight, "vector-weight", 0, "Semantic score weight between 0 and 1 (server default when unset)")
	cmd.Flags().StringVar(&mode, "mode", "", "Search mode: hybrid, lexical, or semantic")

	return cmd
}

func runSearch(cmd *cobra.Command, req SearchRequest, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s (%.2f)\n", i+1, result.Title, result.Score)
		if result.Snippet != "" {
			snippet := result.Snippet
			if len(snippet) > 160 {
				snippet = snippet[:157] + "..."
			}
			fmt.Printf("   %s\n", snippet)
		}
		fmt.Printf("   ID: %d\n", result.DocumentID)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
