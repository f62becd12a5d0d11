package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <document_id>",
		Short: "Delete a document",
		Long:  "Deactivates a document so it no longer appears in listings or search results.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(cmd, args[0], yes, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

func runDelete(cmd *cobra.Command, documentID string, yes, outputJSON bool) error {
	if !yes {
		fmt.Printf("Delete document %s? [y/N] ", documentID)
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if answer := strings.ToLower(strings.TrimSpace(input)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/documents/%s", documentID)); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{"success": true, "id": documentID}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Deleted document %s\n", documentID)
	}

	return nil
}
