package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relaymind",
	Short: "Relaymind - AI-provider gateway and adaptive optimization plane",
	Long: `Relaymind is an AI-provider gateway that routes inference requests
across upstream providers and adapts skill configuration over time.

It acts as an HTTP gateway for LLM API requests, providing:
  - A dialect layer normalizing requests/responses across providers
  - Response caching (exact and semantic)
  - Adaptive optimization of per-skill system prompts and parameters
  - LLM-judge and heuristic evaluation of live traffic
  - Rate limiting and budget enforcement

For more information, visit: https://github.com/relaymind/relaymind`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Leave cobra's default completion command enabled; the completion
	// command registered in completion.go replaces it under the same name.
	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
