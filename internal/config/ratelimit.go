package config

import "time"

// RateLimitConfig controls the Redis token-bucket limiter applied to the
// hold and booking mutation endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// LoadRateLimitConfig reads limiter settings from the environment.  The
// defaults allow short bursts (a buyer clicking through a seat map) while
// refilling slowly enough that scripted hold-hoarding is throttled.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	// Keep bucket state alive well past one refill cycle so idle
	// clients do not reset to a full bucket prematurely.
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}
