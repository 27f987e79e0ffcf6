package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3, cfg.Synthesis.CandidateCount)
	assert.Equal(t, 15*time.Second, cfg.DeadlineDuration())
	assert.Equal(t, 64, cfg.Cache.Capacity)
	assert.Equal(t, 720*time.Hour, cfg.RetentionDuration())
	assert.False(t, cfg.Enhancement.Enabled)
	assert.Equal(t, "gemini-2.0-flash", cfg.Enhancement.Model)
	assert.Equal(t, 10*time.Second, cfg.EnhancementTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("empty path falls back to defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file values layer over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "arcana.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"synthesis:\n  candidate_count: 5\ncache:\n  capacity: 128\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Synthesis.CandidateCount)
		assert.Equal(t, 128, cfg.Cache.Capacity)
		// untouched sections keep their defaults
		assert.Equal(t, "15s", cfg.Synthesis.Deadline)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "arcana.yaml")
		require.NoError(t, os.WriteFile(path, []byte("synthesis: ["), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARCANA_CANDIDATE_COUNT", "7")
	t.Setenv("ARCANA_DEADLINE", "30s")
	t.Setenv("ARCANA_CACHE_CAPACITY", "16")
	t.Setenv("ARCANA_CACHE_STORE_PATH", "/tmp/arcana.db")
	t.Setenv("ARCANA_ENHANCEMENT_API_KEY", "test-key")
	t.Setenv("ARCANA_ENHANCEMENT_MODEL", "gemini-2.0-pro")
	t.Setenv("ARCANA_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Synthesis.CandidateCount)
	assert.Equal(t, 30*time.Second, cfg.DeadlineDuration())
	assert.Equal(t, 16, cfg.Cache.Capacity)
	assert.Equal(t, "/tmp/arcana.db", cfg.Cache.StorePath)
	assert.Equal(t, "test-key", cfg.Enhancement.APIKey)
	assert.True(t, cfg.Enhancement.Enabled, "an API key implies enhancement is wanted")
	assert.Equal(t, "gemini-2.0-pro", cfg.Enhancement.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("ARCANA_CANDIDATE_COUNT", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Synthesis.CandidateCount)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := Default()
	cfg.Synthesis.Deadline = "garbage"
	assert.Equal(t, 15*time.Second, cfg.DeadlineDuration())

	cfg.Enhancement.Timeout = "-5s"
	assert.Equal(t, 10*time.Second, cfg.EnhancementTimeout())

	cfg.Cache.Retention = ""
	assert.Equal(t, 720*time.Hour, cfg.RetentionDuration())
}
