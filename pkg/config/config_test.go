package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "chrome-extension://abc, ,chrome-extension://def")
	t.Setenv("INJECT_DELAY", "250ms")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"chrome-extension://abc", "chrome-extension://def"}, cfg.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.InjectDelay)
	assert.False(t, cfg.IsProduction())
}

func TestGetDurationFallback(t *testing.T) {
	t.Setenv("INJECT_DELAY", "soon")
	assert.Equal(t, 100*time.Millisecond, getDuration("INJECT_DELAY", 100*time.Millisecond))
}
