package ratelimit

import "strings"

// route is a method and path pair.
type route struct {
	method, path string
}

// Health checks and metric scrapes never consume tokens.
var exempt = map[route]bool{
	{"GET", "/health"}:  true,
	{"GET", "/metrics"}: true,
}

// resolve returns the limit for a request and false when the request is not limited.
// An exact endpoint wins over a prefix endpoint (a Path ending in "/");
// anything unmatched gets the default limit.
func (c *Config) resolve(method, path string) (EndpointConfig, bool) {
	if exempt[route{method, path}] {
		return EndpointConfig{}, false
	}

	var prefix *EndpointConfig
	for i := range c.EndpointConfigs {
		ec := &c.EndpointConfigs[i]
		if ec.Method != method {
			continue
		}
		if ec.Path == path {
			return *ec, ec.Limit > 0 && ec.Window > 0
		}
		if prefix == nil && strings.HasSuffix(ec.Path, "/") && strings.HasPrefix(path, ec.Path) {
			prefix = ec
		}
	}
	if prefix != nil {
		return *prefix, prefix.Limit > 0 && prefix.Window > 0
	}

	def := EndpointConfig{Limit: c.DefaultLimit, Window: c.DefaultWindow, Burst: c.DefaultLimit}
	return def, def.Limit > 0 && def.Window > 0
}
