package mcp

import (
	"io"
	"log/slog"

	"github.com/termfx/aliyun-mcp/mcp/tools"
	"github.com/termfx/aliyun-mcp/sls"
)

// Server identity reported during initialize.
const (
	ServerName               = "aliyun-mcp-server"
	ServerVersion            = "0.1.0"
	supportedProtocolVersion = "2024-11-05"
)

// Config holds the MCP server configuration
type Config struct {
	// Database for query history; empty disables persistence
	DatabaseURL string

	// Glob patterns of permitted project/logstore targets
	AllowedTargets []string

	// Streams; default to os.Stdin and os.Stdout
	Stdin  io.Reader
	Stdout io.Writer

	Logger *slog.Logger

	// Querier replaces the SLS-backed query service when set
	Querier tools.LogQuerier

	// BackendFactory builds SLS clients; defaults to the Aliyun SDK
	BackendFactory sls.BackendFactory

	// Debug
	Debug bool
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BackendFactory: sls.NewAliyunBackend,
	}
}
