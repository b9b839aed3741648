package ratelimit

import "time"

// AnalyzePath is the only expensive endpoint; every other route uses the default limit.
const AnalyzePath = "/analyze"

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// NewConfig builds the server's limits: analyzePerHour analyses per client per hour
// with the given burst, and a lenient default for cheap routes.
func NewConfig(enabled bool, analyzePerHour, burst int) *Config {
	return &Config{
		Enabled:         enabled,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: AnalyzePath, Method: "POST", Limit: analyzePerHour, Window: time.Hour, Burst: burst},
		},
	}
}
