package main

import (
	"github.com/spf13/cobra"

	"github.com/complicheck/complicheck/internal/api"
	"github.com/complicheck/complicheck/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "complicheck",
	Short: "Document parsing gateway for building consent compliance checking",
	Long: `Complicheck parses site plans and building consent documents into
markdown with positioned chunks, then answers questions about them and
evaluates completeness and compliance checklists.

Parsing dispatches to one of several backends:
  - landing_ai      hosted agentic document extraction
  - claude_vision   per-page extraction with Anthropic models
  - gemini_vision   per-page extraction with Gemini models
  - openai_vision   per-page extraction with OpenAI models`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.complicheck/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "complicheck home directory (default: ~/.complicheck)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json, or markdown",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
