// Package config provides configuration management for eligo commands.
package config

import (
	"time"

	"github.com/eligoproject/eligo/internal/rules"
)

// Config holds top-level configuration shared by all eligo commands.
type Config struct {
	DatabaseURL string
	LogLevel    string
	LogFormat   string
	Engine      EngineConfig
}

// EngineConfig holds tuning knobs for the evaluation engine.
type EngineConfig struct {
	CacheEnabled     bool
	CacheTTL         time.Duration
	MaxRuleDepth     int
	MaxComplexity    int
	MaxEvalDepth     int
	BatchConcurrency int
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DatabaseURL: "sqlite://eligo.db",
		LogLevel:    "info",
		LogFormat:   "json",
		Engine:      DefaultEngineConfig(),
	}
}

// DefaultEngineConfig returns engine configuration with default values.
// Depth and complexity limits track the rules package defaults so the
// validator and the engine reject the same rules.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CacheEnabled:     true,
		CacheTTL:         30 * 24 * time.Hour,
		MaxRuleDepth:     rules.DefaultMaxRuleDepth,
		MaxComplexity:    rules.DefaultMaxComplexity,
		MaxEvalDepth:     rules.DefaultMaxEvalDepth,
		BatchConcurrency: 4,
	}
}
