// Package main provides the entry point for the automation exposure server and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "exposure_agent",
	Short: "Automation Exposure analysis server and CLI",
	Long: "Automation Exposure decomposes a job into tasks and skills, scores how exposed each is to AI automation, " +
		"and proposes future scenarios and alternative careers with validated transition roadmaps.",
	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (defaults to ./config.yaml or ./configs/config.yaml if present)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
