package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// CacheConfig defines settings for the public-content response cache.
// When Enabled is false or no Redis client is configured, caching is
// disabled.  TTL is the default entry lifetime; RouteTTL overrides it
// per registered route, mirroring how the editorial content used to be
// cached with different lifetimes per content type (event listings
// change more often than an event's detail page).
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	RouteTTL     map[string]time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Route overrides are given as CACHE_ROUTE_TTL="/v1/events=1h,/v1/events/:id=4h".
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      getenv("CACHE_ENABLED", "true") == "true",
		TTL:          parseDur(getenv("CACHE_TTL", "1h")),
		RouteTTL:     parseRouteTTL(os.Getenv("CACHE_ROUTE_TTL")),
		Prefix:       getenv("CACHE_PREFIX", "content"),
		MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
	}
}

// TTLFor resolves the lifetime for a route path.
func (c CacheConfig) TTLFor(route string) time.Duration {
	if d, ok := c.RouteTTL[route]; ok {
		return d
	}
	return c.TTL
}

func parseRouteTTL(s string) map[string]time.Duration {
	m := map[string]time.Duration{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		route, ttl, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(strings.TrimSpace(ttl)); err == nil && d > 0 {
			m[strings.TrimSpace(route)] = d
		}
	}
	return m
}

// Helper functions shared with ratelimit.go.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
