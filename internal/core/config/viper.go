package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/eligoproject/eligo/internal/rules"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	v.SetDefault("database_url", "sqlite://eligo.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("engine.cache_enabled", true)
	v.SetDefault("engine.cache_ttl", "720h")
	v.SetDefault("engine.max_rule_depth", rules.DefaultMaxRuleDepth)
	v.SetDefault("engine.max_complexity", rules.DefaultMaxComplexity)
	v.SetDefault("engine.max_eval_depth", rules.DefaultMaxEvalDepth)
	v.SetDefault("engine.batch_concurrency", 4)

	// Bind environment variables with ELIGO_ prefix
	v.SetEnvPrefix("ELIGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL: v.GetString("database_url"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		Engine: EngineConfig{
			CacheEnabled:     v.GetBool("engine.cache_enabled"),
			CacheTTL:         v.GetDuration("engine.cache_ttl"),
			MaxRuleDepth:     v.GetInt("engine.max_rule_depth"),
			MaxComplexity:    v.GetInt("engine.max_complexity"),
			MaxEvalDepth:     v.GetInt("engine.max_eval_depth"),
			BatchConcurrency: v.GetInt("engine.batch_concurrency"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks the database URL scheme, log settings, and engine limits.
func validateConfig(cfg *Config) error {
	if !strings.HasPrefix(cfg.DatabaseURL, "sqlite://") && !strings.HasPrefix(cfg.DatabaseURL, "postgres://") {
		return fmt.Errorf("database_url must use sqlite:// or postgres:// scheme, got %s", cfg.DatabaseURL)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %s", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %s", cfg.LogFormat)
	}
	if cfg.Engine.CacheTTL <= 0 {
		return fmt.Errorf("engine.cache_ttl must be positive, got %v", cfg.Engine.CacheTTL)
	}
	if cfg.Engine.MaxRuleDepth <= 0 {
		return fmt.Errorf("engine.max_rule_depth must be positive, got %d", cfg.Engine.MaxRuleDepth)
	}
	if cfg.Engine.MaxComplexity <= 0 {
		return fmt.Errorf("engine.max_complexity must be positive, got %d", cfg.Engine.MaxComplexity)
	}
	if cfg.Engine.MaxEvalDepth <= 0 {
		return fmt.Errorf("engine.max_eval_depth must be positive, got %d", cfg.Engine.MaxEvalDepth)
	}
	if cfg.Engine.BatchConcurrency <= 0 {
		return fmt.Errorf("engine.batch_concurrency must be positive, got %d", cfg.Engine.BatchConcurrency)
	}
	return nil
}
