package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stackpile/noteforge/internal/cli"
	"github.com/stackpile/noteforge/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "noteforge",
		Short: "Noteforge CLI - note archive search and import",
		Long: `Noteforge CLI provides commands to import note exports and search the archive.

Environment variables:
  NOTEFORGE_API_KEY   API key for authentication (required)
  NOTEFORGE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.ImportCmd())
	rootCmd.AddCommand(client.StatusCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
