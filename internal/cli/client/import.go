package client

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// StartMigration represents the response to starting an import.
type StartMigration struct {
	JobID string `json:"job_id"`
}

// MigrationJob represents an import job's progress.
type MigrationJob struct {
	ID             string           `json:"id"`
	Status         string           `json:"status"`
	TotalItems     int              `json:"total_items"`
	ProcessedItems int              `json:"processed_items"`
	FailedItems    int              `json:"failed_items"`
	ErrorLog       []MigrationError `json:"error_log"`
	StartedAt      string           `json:"started_at"`
	CompletedAt    string           `json:"completed_at,omitempty"`
}

// MigrationError is one failed item in an import job's error log.
type MigrationError struct {
	Item    string `json:"item"`
	Message string `json:"message"`
}

// ImportCmd creates the import command.
func ImportCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "import <export-file>",
		Short: "Import a note export file",
		Long:  "Uploads a note export file and starts a background import job on the server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runImport(cmd, args[0], wait, outputJSON)
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the import finishes")

	return cmd
}

func runImport(cmd *cobra.Command, exportPath string, wait, outputJSON bool) error {
	data, err := os.ReadFile(exportPath)
	if err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.PostRaw("/migrations", "application/xml", data)
	if err != nil {
		return fmt.Errorf("failed to start import: %w", err)
	}

	var started StartMigration
	if err := json.Unmarshal(resp.Data, &started); err != nil {
		return fmt.Errorf("failed to parse import response: %w", err)
	}

	if !wait {
		if outputJSON {
			output, _ := json.MarshalIndent(started, "", "  ")
			fmt.Println(string(output))
		} else {
			fmt.Printf("Import started: %s\n", started.JobID)
			fmt.Printf("Check progress with 'noteforge status %s'\n", started.JobID)
		}
		return nil
	}

	job, err := pollMigration(api, started.JobID)
	if err != nil {
		return err
	}
	return printMigrationJob(job, outputJSON)
}

func pollMigration(api *APIClient, jobID string) (*MigrationJob, error) {
	for {
		job, err := fetchMigrationJob(api, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status == "completed" || job.Status == "failed" {
			return job, nil
		}
		time.Sleep(2 * time.Second)
	}
}

func fetchMigrationJob(api *APIClient, jobID string) (*MigrationJob, error) {
	resp, err := api.Get(fmt.Sprintf("/migrations/%s", jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}

	var job MigrationJob
	if err := json.Unmarshal(resp.Data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse import job: %w", err)
	}
	return &job, nil
}

func printMigrationJob(job *MigrationJob, outputJSON bool) error {
	if outputJSON {
		output, _ := json.MarshalIndent(job, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Job %s: %s\n", job.ID, job.Status)
	fmt.Printf("Processed %d/%d, %d failed\n", job.ProcessedItems, job.TotalItems, job.FailedItems)
	for _, e := range job.ErrorLog {
		fmt.Printf("  %s: %s\n", e.Item, e.Message)
	}
	if job.Status == "failed" || job.FailedItems > 0 {
		return fmt.Errorf("import finished with failures")
	}
	return nil
}
