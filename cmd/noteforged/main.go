package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackpile/noteforge/internal/cli"
	"github.com/stackpile/noteforge/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "noteforged",
		Short: "Noteforge daemon and CLI",
		Long:  "Noteforge daemon for running the API server and importing note exports",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ImportCmd())
	rootCmd.AddCommand(admin.QueueCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
