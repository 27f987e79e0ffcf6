// Package config holds all arcana configuration: synthesis knobs, cache
// sizing, enhancement provider settings, and logging. Values load from a
// YAML file with ARCANA_* environment overrides applied on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration tree.
type Config struct {
	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Cache       CacheConfig       `yaml:"cache"`
	Enhancement EnhancementConfig `yaml:"enhancement"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SynthesisConfig tunes the generation pipeline.
type SynthesisConfig struct {
	// CandidateCount is K, the number of candidates ranked per request.
	CandidateCount int `yaml:"candidate_count"`

	// Deadline bounds one request end to end, e.g. "10s".
	Deadline string `yaml:"deadline"`
}

// CacheConfig tunes the synthesis cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`

	// StorePath enables the persistent SQLite tier when non-empty.
	StorePath string `yaml:"store_path"`

	// Retention bounds how long unaccessed persisted documents survive
	// a prune pass, e.g. "720h".
	Retention string `yaml:"retention"`
}

// EnhancementConfig configures the optional refinement hook.
type EnhancementConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Synthesis: SynthesisConfig{
			CandidateCount: 3,
			Deadline:       "15s",
		},
		Cache: CacheConfig{
			Capacity:  64,
			Retention: "720h",
		},
		Enhancement: EnhancementConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "10s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, layering it over the defaults and
// then applying environment overrides. A missing file is not an error; the
// defaults plus environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers ARCANA_* variables over the loaded values.
func (c *Config) applyEnv() {
	if v := os.Getenv("ARCANA_CANDIDATE_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Synthesis.CandidateCount = n
		}
	}
	if v := os.Getenv("ARCANA_DEADLINE"); v != "" {
		c.Synthesis.Deadline = v
	}
	if v := os.Getenv("ARCANA_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.Capacity = n
		}
	}
	if v := os.Getenv("ARCANA_CACHE_STORE_PATH"); v != "" {
		c.Cache.StorePath = v
	}
	if v := os.Getenv("ARCANA_ENHANCEMENT_API_KEY"); v != "" {
		c.Enhancement.APIKey = v
		c.Enhancement.Enabled = true
	}
	if v := os.Getenv("ARCANA_ENHANCEMENT_MODEL"); v != "" {
		c.Enhancement.Model = v
	}
	if v := os.Getenv("ARCANA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// DeadlineDuration parses the synthesis deadline, defaulting to 15s on a
// malformed value.
func (c Config) DeadlineDuration() time.Duration {
	return parseDuration(c.Synthesis.Deadline, 15*time.Second)
}

// EnhancementTimeout parses the enhancement timeout, defaulting to 10s.
func (c Config) EnhancementTimeout() time.Duration {
	return parseDuration(c.Enhancement.Timeout, 10*time.Second)
}

// RetentionDuration parses the cache retention window, defaulting to 30 days.
func (c Config) RetentionDuration() time.Duration {
	return parseDuration(c.Cache.Retention, 720*time.Hour)
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
