package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "noop", cfg.Store.Provider)
	assert.Equal(t, "noop", cfg.Archive.Provider)
	assert.Equal(t, "noop", cfg.Events.Provider)
	assert.Equal(t, 60, cfg.Monitor.IntervalMinutes)
	assert.False(t, cfg.Scrape.RenderEnabled)
	assert.NotEmpty(t, cfg.Scrape.DetectorKeywords)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
store:
  provider: rest
  rest_base_url: https://api.example
  rest_api_key: key
scrape:
  render_enabled: true
  render_max_parallel: 2
monitor:
  interval_minutes: 30
  team_id: T1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "rest", cfg.Store.Provider)
	assert.True(t, cfg.Scrape.RenderEnabled)
	assert.Equal(t, 2, cfg.Scrape.RenderMaxParallel)
	assert.Equal(t, 30, cfg.Monitor.IntervalMinutes)
	assert.Equal(t, "T1", cfg.Monitor.TeamID)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("rest without base url", func(t *testing.T) {
		cfg := base()
		cfg.Store.Provider = "rest"
		require.Error(t, cfg.Validate())
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		cfg := base()
		cfg.Store.Provider = "postgres"
		require.Error(t, cfg.Validate())
	})

	t.Run("unknown store provider", func(t *testing.T) {
		cfg := base()
		cfg.Store.Provider = "redis"
		require.Error(t, cfg.Validate())
	})

	t.Run("gcs without bucket", func(t *testing.T) {
		cfg := base()
		cfg.Archive.Provider = "gcs"
		require.Error(t, cfg.Validate())
	})

	t.Run("pubsub without topic", func(t *testing.T) {
		cfg := base()
		cfg.Events.Provider = "pubsub"
		require.Error(t, cfg.Validate())
	})

	t.Run("render enabled without parallelism", func(t *testing.T) {
		cfg := base()
		cfg.Scrape.RenderEnabled = true
		cfg.Scrape.RenderMaxParallel = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("zero interval", func(t *testing.T) {
		cfg := base()
		cfg.Monitor.IntervalMinutes = 0
		require.Error(t, cfg.Validate())
	})
}
