package config

import (
	"strings"
	"time"
)

// CacheConfig controls the Redis response-cache middleware used on the
// public seat-map endpoint.  TTL is deliberately short by default: a
// cached seat map that outlives a hold misleads buyers.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads cache settings from the environment, with
// defaults suited to seat-map reads.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 5*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.MaxBodyBytes < 1 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(strings.ToUpper(p)); p != "" {
			m[p] = true
		}
	}
	return m
}
