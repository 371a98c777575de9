package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mydb", cfg.Mongo.Database)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, time.Hour, cfg.Reprocessor.StaleAfter)
	assert.Equal(t, 10, cfg.Reprocessor.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.VisionLatency)
	assert.Equal(t, 3*time.Second, cfg.Pipeline.AnalysisLatency)
	assert.Equal(t, "memory", cfg.Worker.Backend)
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("QUEUE_BACKEND", "redis")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REPROCESS_STALE_AFTER", "30m")
	t.Setenv("GO_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Worker.Backend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Reprocessor.StaleAfter)
	assert.True(t, cfg.Server.IsDevelopment())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
