package main

import (
	"github.com/spf13/cobra"

	"github.com/complicheck/complicheck/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running complicheck server via HTTP.

These commands require a running server (complicheck serve).
Use --server to specify a custom server URL.

Examples:
  complicheck api health                         # Check server health
  complicheck api parse plan.pdf                 # Parse with the default backend
  complicheck api parse plan.pdf --parser claude_vision`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8000", "Server URL",
	)

	for _, ep := range endpoints.All() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			apiCmd.AddCommand(cmd)
		}
	}

	rootCmd.AddCommand(apiCmd)
}
