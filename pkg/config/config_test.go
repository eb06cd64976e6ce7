package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "baseline-70", cfg.DefaultCalibration)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.EnableRateLimit)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxRequestSize)
	assert.False(t, cfg.AuthEnabled())
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("FUNNEL_WORKERS", "0")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 1, cfg.Workers)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.GetAllowedOrigins())
	assert.Empty(t, cfg.GetTrustedProxies())
}

func TestNewParseError(t *testing.T) {
	t.Setenv("FUNNEL_WORKERS", "many")

	_, err := New()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"))
}
