package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var apiKey string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure API credentials",
		Long:  "Verifies the API key against the server and saves it to the global config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(apiKey, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(apiKey, apiURL string, outputJSON bool) error {
	_ = godotenv.Load()
	if apiKey == "" {
		apiKey = os.Getenv(envAPIKey)
	}
	if apiKey == "" {
		fmt.Print("Enter API key: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(input)
		if apiKey == "" {
			return fmt.Errorf("API key is required")
		}
	}

	if !IsValidAPIKey(apiKey) {
		fmt.Fprintln(os.Stderr, "warning: API key does not match the usual nf_<64 hex> format")
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	api, err := NewAPIClientWithConfig(apiKey, apiURL)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	// An authenticated request proves the key before anything is saved.
	if _, err := api.Get("/documents?limit=1"); err != nil {
		return fmt.Errorf("failed to verify credentials: %w", err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return err
	}

	configPath, _ := GetConfigPath()

	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"api_url": apiURL,
			"config":  configPath,
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Credentials verified against %s\n", apiURL)
		fmt.Printf("Config saved to %s\n", configPath)
	}

	return nil
}
