package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	apierrors "github.com/diogo/gemmy/internal/errors"
)

// APIKeyEnvVars lists the variables searched for the API key, in order.
// VITE_API_URL is the name used by the web build of the chat.
var APIKeyEnvVars = []string{"GEMMY_API_KEY", "GEMINI_API_KEY", "VITE_API_URL"}

// LoadDotEnv loads .env files from the working directory and the config
// directory. Variables already present in the environment are kept.
// Missing files are not an error.
func LoadDotEnv() []string {
	candidates := []string{".env"}
	if dir, err := GetConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}

	var loaded []string
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
		}
	}
	return loaded
}

// APIKey returns the first non-empty API key from the environment
func APIKey() (string, error) {
	for _, name := range APIKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	return "", apierrors.ErrMissingAPIKey
}

// ApplyEnv overlays GEMMY_* environment variables on cfg
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("GEMMY_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if v := os.Getenv("GEMMY_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("GEMMY_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("GEMMY_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TimeoutSeconds = n
		}
	}
}
