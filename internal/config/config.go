package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables understood by the server.
const (
	EnvDatabaseURL    = "ALIYUN_MCP_DB"
	EnvLogLevel       = "ALIYUN_MCP_LOG_LEVEL"
	EnvLogFormat      = "ALIYUN_MCP_LOG_FORMAT"
	EnvAllowedTargets = "SLS_ALLOWED_TARGETS"
)

// Config holds the application's configuration.
type Config struct {
	DatabaseURL    string
	LogLevel       string
	LogFormat      string
	AllowedTargets []string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	cfg := &Config{
		DatabaseURL:    os.Getenv(EnvDatabaseURL),
		LogLevel:       strings.ToLower(os.Getenv(EnvLogLevel)),
		LogFormat:      strings.ToLower(os.Getenv(EnvLogFormat)),
		AllowedTargets: splitList(os.Getenv(EnvAllowedTargets)),
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat != "json" {
		cfg.LogFormat = "text"
	}

	return cfg
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding values that are already set. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
