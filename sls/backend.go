// Package sls queries Aliyun Simple Log Service. It owns the backend client
// lifecycle and translates tool parameters into the backend's request shape.
package sls

import (
	"github.com/termfx/aliyun-mcp/internal/config"
)

// GetLogsRequest is the backend's parameter shape for a single-page fetch.
// From and To are whole seconds since the epoch.
type GetLogsRequest struct {
	Project  string `json:"projectName"`
	Logstore string `json:"logStoreName"`
	From     int64  `json:"from"`
	To       int64  `json:"to"`
	Query    string `json:"query"`
	Line     int64  `json:"line"`
	Offset   int64  `json:"offset"`
	Reverse  bool   `json:"reverse"`
}

// Backend is an authenticated connection to the log service. GetLogs blocks
// until the service answers and returns exactly one of a result or an error.
// The result is passed through to callers unmodified.
type Backend interface {
	GetLogs(req GetLogsRequest) (any, error)
}

// BackendFactory constructs a Backend from a credentials snapshot.
type BackendFactory func(creds config.Credentials) (Backend, error)
