package client

import (
	"github.com/spf13/cobra"
)

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <job_id>",
		Short: "Show import job progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			job, err := fetchMigrationJob(api, args[0])
			if err != nil {
				return err
			}
			return printMigrationJob(job, outputJSON)
		},
	}

	return cmd
}
