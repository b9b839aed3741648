package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/automation-exposure/internal/config"
	"github.com/jonathan/automation-exposure/internal/logging"
	"github.com/jonathan/automation-exposure/internal/observability"
	"github.com/jonathan/automation-exposure/internal/pipeline"
	"github.com/jonathan/automation-exposure/internal/types"
)

var (
	analyzeProfilePath string
	analyzeOutputPath  string
	analyzeAPIKey      string
	analyzeVerbose     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one automation exposure analysis from a profile file",
	Long: `Reads a JSON profile (age, gender, job_title, job_description, daily_routine, location, education),
runs the full analysis and writes the result as JSON to --output or stdout.

With --verbose, step progress and a human-readable summary are printed to stderr.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeProfilePath, "profile", "p", "", "Path to profile JSON file (required)")
	analyzeCmd.Flags().StringVarP(&analyzeOutputPath, "output", "o", "", "Path to write the result JSON (defaults to stdout)")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print progress and a summary to stderr")
	_ = analyzeCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	profile, err := readProfile(analyzeProfilePath)
	if err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	apiKey := cfg.LLM.APIKey
	if analyzeAPIKey != "" {
		apiKey = analyzeAPIKey
	}

	level := cfg.Log.Level
	if analyzeVerbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	stderr := cmd.ErrOrStderr()
	var onProgress pipeline.ProgressCallback
	if analyzeVerbose {
		onProgress = func(e pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(stderr, "[%s] %s\n", e.Step, e.Message)
		}
	}

	ctx := cmd.Context()
	coordinator, client, err := buildCoordinator(ctx, cfg, apiKey, logger, nil, onProgress)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	result, err := coordinator.Analyze(ctx, *profile)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeVerbose {
		observability.NewPrinter(stderr).PrintAnalysis(result)
	}

	if analyzeOutputPath == "" {
		return writeResult(cmd.OutOrStdout(), result)
	}
	f, err := os.Create(analyzeOutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeResult(f, result); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Info("result written", zap.String("path", analyzeOutputPath))
	return nil
}

func readProfile(path string) (*types.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	var profile types.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	return &profile, nil
}

func writeResult(w io.Writer, result *types.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
