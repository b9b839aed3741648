package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/automation-exposure/internal/config"
	"github.com/jonathan/automation-exposure/internal/logging"
	"github.com/jonathan/automation-exposure/internal/observability"
	"github.com/jonathan/automation-exposure/internal/server"
	"github.com/jonathan/automation-exposure/internal/server/ratelimit"
)

var (
	servePort   int
	serveAPIKey string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing POST /analyze, GET /health and GET /metrics.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	apiKey := cfg.LLM.APIKey
	if serveAPIKey != "" {
		apiKey = serveAPIKey
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator, client, err := buildCoordinator(ctx, cfg, apiKey, logger, metrics, nil)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		RateLimit:    ratelimit.NewConfig(cfg.RateLimit.Enabled, cfg.RateLimit.AnalyzePerHour, cfg.RateLimit.Burst),
		Gatherer:     reg,
	}, coordinator, logger)

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Server.Port),
		zap.Int("score_concurrency", cfg.Pipeline.ScoreConcurrency),
		zap.Int("roadmap_max_attempts", cfg.Pipeline.RoadmapMaxAttempts),
		zap.String("validator", cfg.Validator.Command))

	return srv.Start(ctx)
}
