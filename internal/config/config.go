// Package config builds the process configuration from the environment
// once at startup, so nothing else reads env vars ad hoc.
package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	defaultPort      = 5000
	defaultUploadDir = "uploads"

	// DefaultMaxUploadBytes caps one multipart request in memory.
	DefaultMaxUploadBytes = 64 << 20
)

// Config holds everything the server needs from the environment.
type Config struct {
	// Port is the HTTP listen port (PORT).
	Port int
	// AllowedOrigins lists permitted cross-origin hosts (ALLOWED_ORIGINS,
	// comma-separated). Empty means any origin is allowed.
	AllowedOrigins []string
	// UploadDir receives normalized temporary images (UPLOAD_DIR).
	UploadDir string
	// MaxUploadBytes caps one multipart request.
	MaxUploadBytes int64
}

// FromEnv reads the environment and fills in defaults.
func FromEnv() Config {
	cfg := Config{
		Port:           defaultPort,
		UploadDir:      defaultUploadDir,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.Port = p
		}
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	cfg.AllowedOrigins = splitOrigins(os.Getenv("ALLOWED_ORIGINS"))
	return cfg
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
