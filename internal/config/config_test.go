package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("UPLOAD_DIR", "")

	cfg := FromEnv()
	assert.Equal(t, 5000, cfg.Port)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.MaxUploadBytes)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8085")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")
	t.Setenv("UPLOAD_DIR", "/tmp/img2pdf")

	cfg := FromEnv()
	assert.Equal(t, 8085, cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "/tmp/img2pdf", cfg.UploadDir)
}

func TestFromEnvIgnoresInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	assert.Equal(t, 5000, FromEnv().Port)

	t.Setenv("PORT", "-1")
	assert.Equal(t, 5000, FromEnv().Port)
}
