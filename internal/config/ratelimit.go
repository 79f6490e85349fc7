package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig controls the fixed-window limiter applied to /api routes.
type RateLimitConfig struct {
	Enabled bool
	Max     int           // requests allowed per window per client IP
	Window  time.Duration // window length
	Prefix  string        // redis key prefix
}

// CacheConfig controls response caching for the public tour listing.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Max:     envInt("RATE_LIMIT_MAX", 100),
		Window:  envDur("RATE_LIMIT_WINDOW", time.Hour),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Max < 1 {
		cfg.Max = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return cfg
}

func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", time.Minute),
		Prefix:  envStr("CACHE_PREFIX", "cache"),
	}
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
