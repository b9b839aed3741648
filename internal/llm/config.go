// Package llm is the generation client: conversations, structured output and
// the decorators that bound and observe every call.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier picks a model by how much reasoning a call needs.
type ModelTier string

const (
	// TierLite is for single-value scoring
	TierLite ModelTier = "lite"
	// TierStandard is for decomposition and structured lists
	TierStandard ModelTier = "standard"
	// TierAdvanced is for narrative and diagram authoring
	TierAdvanced ModelTier = "advanced"
)

// Provider names a generation backend.
type Provider string

// ProviderGemini is the Google Gemini provider.
const ProviderGemini Provider = "gemini"

// DefaultTemperature keeps structured output stable across runs.
const DefaultTemperature float32 = 0.2

// Config maps tiers to provider models.
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the Gemini configuration.
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini models per tier.
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: DefaultTemperature,
	}
}

// GetModel returns the model for tier. An unset tier falls back to
// standard, then lite; "" means nothing is configured.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model := strings.TrimSpace(c.Models[t]); model != "" {
			return model
		}
	}
	return ""
}

// Validate rejects a configuration no call could be served with.
func (c *Config) Validate() error {
	if c.GetModel(TierStandard) == "" {
		return fmt.Errorf("llm config: no model configured for any tier")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm config: temperature %.2f outside [0, 2]", c.Temperature)
	}
	return nil
}
