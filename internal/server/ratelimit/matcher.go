package ratelimit

import (
	"strings"
)

// MatchEndpoint returns the configuration for a request, or nil when only the
// default applies. Exact matches win over prefix matches. GET /health is unlimited.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}

// decision is the outcome of the checks every backend shares.
type decision int

const (
	decisionLimit decision = iota
	decisionAllow
	decisionDeny
)

// resolve applies the enable switch and IP lists, then picks the endpoint policy.
// The policy is only meaningful for decisionLimit.
func (c *Config) resolve(clientID, path, method string) (decision, EndpointConfig) {
	if !c.Enabled || c.Whitelist[clientID] {
		return decisionAllow, EndpointConfig{}
	}
	if c.Blacklist[clientID] {
		return decisionDeny, EndpointConfig{}
	}

	policy := MatchEndpoint(path, method, c.EndpointConfigs)
	if policy == nil {
		policy = &EndpointConfig{Limit: c.DefaultLimit, Window: c.DefaultWindow, Burst: c.DefaultLimit}
	}
	if policy.Limit <= 0 || policy.Window <= 0 {
		return decisionAllow, EndpointConfig{}
	}
	return decisionLimit, *policy
}
