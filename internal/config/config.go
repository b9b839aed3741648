// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonathan/automation-exposure/internal/llm"
)

// EnvPrefix prefixes every environment override (EXPOSURE_PIPELINE_SCORE_CONCURRENCY, ...).
const EnvPrefix = "EXPOSURE"

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Search    SearchConfig    `mapstructure:"search"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LLMConfig selects the generation provider and its models.
type LLMConfig struct {
	Provider    string       `mapstructure:"provider"`
	APIKey      string       `mapstructure:"api_key"`
	Models      ModelsConfig `mapstructure:"models"`
	Temperature float32      `mapstructure:"temperature"`
}

// ModelsConfig maps each tier to a model name.
type ModelsConfig struct {
	Lite     string `mapstructure:"lite"`
	Standard string `mapstructure:"standard"`
	Advanced string `mapstructure:"advanced"`
}

// PipelineConfig tunes the analysis stages.
type PipelineConfig struct {
	ScoreConcurrency   int           `mapstructure:"score_concurrency"`
	RoadmapMaxAttempts int           `mapstructure:"roadmap_max_attempts"`
	CallTimeout        time.Duration `mapstructure:"call_timeout"`
	WeightTolerance    float64       `mapstructure:"weight_tolerance"`
	WebSearch          bool          `mapstructure:"web_search"`
}

// ValidatorConfig configures the external diagram compiler.
type ValidatorConfig struct {
	Command string        `mapstructure:"command"`
	Timeout time.Duration `mapstructure:"timeout"`
	Header  string        `mapstructure:"header"`
}

// SearchConfig configures web search grounding. It is active only when both
// the key and the engine ID are set and pipeline.web_search is on.
type SearchConfig struct {
	APIKey   string `mapstructure:"api_key"`
	EngineID string `mapstructure:"engine_id"`
	Results  int    `mapstructure:"results"`
}

// SearchEnabled reports whether web search grounding can be used.
func (c *Config) SearchEnabled() bool {
	return c.Pipeline.WebSearch && c.Search.APIKey != "" && c.Search.EngineID != ""
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RateLimitConfig configures the per-client limit on analysis requests.
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	AnalyzePerHour int  `mapstructure:"analyze_per_hour"`
	Burst          int  `mapstructure:"burst"`
}

// Load reads configuration from defaults, an optional YAML file and the environment.
// An empty path searches for config.yaml in the working directory and ./configs;
// a missing file there is not an error. A non-empty path must exist.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key: %w", err)
	}
	if err := v.BindEnv("search.api_key", EnvPrefix+"_SEARCH_API_KEY", "GOOGLE_SEARCH_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind search key: %w", err)
	}
	if err := v.BindEnv("search.engine_id", EnvPrefix+"_SEARCH_ENGINE_ID", "GOOGLE_SEARCH_CX"); err != nil {
		return nil, fmt.Errorf("failed to bind search engine: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are well-typed; Unmarshal cannot fail here.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	gemini := llm.DefaultGeminiConfig()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 300*time.Second)

	v.SetDefault("llm.provider", string(llm.ProviderGemini))
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.models.lite", gemini.Models[llm.TierLite])
	v.SetDefault("llm.models.standard", gemini.Models[llm.TierStandard])
	v.SetDefault("llm.models.advanced", gemini.Models[llm.TierAdvanced])
	v.SetDefault("llm.temperature", llm.DefaultTemperature)

	v.SetDefault("pipeline.score_concurrency", 10)
	v.SetDefault("pipeline.roadmap_max_attempts", 3)
	v.SetDefault("pipeline.call_timeout", 120*time.Second)
	v.SetDefault("pipeline.weight_tolerance", 1e-3)
	v.SetDefault("pipeline.web_search", true)

	v.SetDefault("validator.command", "mmdc")
	v.SetDefault("validator.timeout", 30*time.Second)
	v.SetDefault("validator.header", "flowchart")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.analyze_per_hour", 20)
	v.SetDefault("ratelimit.burst", 3)

	v.SetDefault("search.api_key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("search.results", 5)
}

// loadEnvFile loads the first .env found walking up from the working directory.
// Variables already set in the environment win.
func loadEnvFile() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// Validate checks that the configuration has usable values.
// The API key is not checked here; only commands that call the model need it.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' out of range: %d", c.Server.Port)
	}
	if c.Pipeline.ScoreConcurrency < 1 {
		return fmt.Errorf("config error: 'pipeline.score_concurrency' must be at least 1")
	}
	if c.Pipeline.RoadmapMaxAttempts < 1 {
		return fmt.Errorf("config error: 'pipeline.roadmap_max_attempts' must be at least 1")
	}
	if c.Pipeline.CallTimeout <= 0 {
		return fmt.Errorf("config error: 'pipeline.call_timeout' must be positive")
	}
	if c.Pipeline.WeightTolerance <= 0 || c.Pipeline.WeightTolerance >= 0.5 {
		return fmt.Errorf("config error: 'pipeline.weight_tolerance' must be in (0, 0.5)")
	}
	if c.Validator.Timeout <= 0 {
		return fmt.Errorf("config error: 'validator.timeout' must be positive")
	}
	if c.Validator.Command == "" {
		return fmt.Errorf("config error: 'validator.command' is required")
	}
	if c.RateLimit.Enabled && (c.RateLimit.AnalyzePerHour < 1 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("config error: 'ratelimit' needs positive analyze_per_hour and burst when enabled")
	}
	if c.Search.Results < 1 || c.Search.Results > 10 {
		return fmt.Errorf("config error: 'search.results' must be between 1 and 10")
	}
	return nil
}

// LLMClientConfig converts the llm section into the client's configuration.
func (c *Config) LLMClientConfig() *llm.Config {
	return &llm.Config{
		Provider: llm.Provider(c.LLM.Provider),
		Models: map[llm.ModelTier]string{
			llm.TierLite:     c.LLM.Models.Lite,
			llm.TierStandard: c.LLM.Models.Standard,
			llm.TierAdvanced: c.LLM.Models.Advanced,
		},
		Temperature: c.LLM.Temperature,
	}
}
