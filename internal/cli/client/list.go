package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// DocumentList represents the list API response.
type DocumentList struct {
	Items []Document `json:"items"`
	Count int        `json:"count"`
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		contexts []string
		project  string
		area     string
		limit    int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List documents",
		Long:    "Lists documents, most recently updated first.",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, contexts, project, area, limit, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&contexts, "context", "c", nil, "Filter by context tag (repeatable)")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Filter by project")
	cmd.Flags().StringVar(&area, "area", "", "Filter by area")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of documents")

	return cmd
}

func runList(cmd *cobra.Command, contexts []string, project, area string, limit int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	params := url.Values{}
	for _, c := range contexts {
		params.Add("context", c)
	}
	if project != "" {
		params.Set("project", project)
	}
	if area != "" {
		params.Set("area", area)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := "/documents"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var list DocumentList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse document list: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Items) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	fmt.Printf("%d documents:\n\n", list.Count)
	for _, doc := range list.Items {
		fmt.Printf("%6d  %-10s  %s\n", doc.ID, doc.Status, doc.Title)
	}

	return nil
}
