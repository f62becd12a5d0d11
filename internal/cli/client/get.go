package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Document represents a document from the API.
type Document struct {
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

// Attachment represents an attachment record from the API.
type Attachment struct {
	ID            int64  `json:"id"`
	Filename      string `json:"filename"`
	MimeType      string `json:"mime_type"`
	ByteSize      int64  `json:"byte_size"`
	StorageKey    string `json:"storage_key"`
	ExtractedText string `json:"extracted_text,omitempty"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	var withAttachments bool

	cmd := &cobra.Command{
		Use:     "get <document_id>",
		Short:   "Get a document by ID",
		Long:    "Retrieves a document by its ID and displays the full content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], withAttachments, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&withAttachments, "attachments", "a", false, "Also list the document's attachments")

	return cmd
}

func runGet(cmd *cobra.Command, documentID string, withAttachments, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/documents/%s", documentID))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	var attachments []Attachment
	if withAttachments {
		attResp, err := api.Get(fmt.Sprintf("/documents/%s/attachments", documentID))
		if err != nil {
			return fmt.Errorf("failed to get attachments: %w", err)
		}
		if err := json.Unmarshal(attResp.Data, &attachments); err != nil {
			return fmt.Errorf("failed to parse attachments: %w", err)
		}
	}

	if outputJSON {
		out := map[string]interface{}{"document": doc}
		if withAttachments {
			out["attachments"] = attachments
		}
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Title: %s\n", doc.Title)
	fmt.Printf("Status: %s\n", doc.Status)
	if len(doc.Contexts) > 0 {
		fmt.Printf("Contexts: %s\n", strings.Join(doc.Contexts, ", "))
	}
	if doc.Project != "" {
		fmt.Printf("Project: %s\n", doc.Project)
	}
	if doc.Area != "" {
		fmt.Printf("Area: %s\n", doc.Area)
	}
	fmt.Printf("Created: %s\n", doc.CreatedAt)
	fmt.Printf("Updated: %s\n", doc.UpdatedAt)
	fmt.Println()
	fmt.Println("--- Content ---")
	fmt.Println(doc.Content)

	if withAttachments {
		fmt.Println()
		if len(attachments) == 0 {
			fmt.Println("No attachments.")
		} else {
			fmt.Printf("Attachments (%d):\n", len(attachments))
			for _, a := range attachments {
				fmt.Printf("  %s (%s, %d bytes)\n", a.Filename, a.MimeType, a.ByteSize)
			}
		}
	}

	return nil
}
