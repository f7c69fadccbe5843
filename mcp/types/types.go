// Package types provides shared types and interfaces for MCP components
// This avoids circular dependencies between packages
package types

import (
	"context"
	"encoding/json"
)

// ToolHandler represents a function that handles a tool call
type ToolHandler func(ctx context.Context, params json.RawMessage) (any, error)

// Component represents a registrable MCP component
type Component interface {
	Name() string
	Description() string
}

// Tool represents an executable tool with handler
type Tool interface {
	Component
	Handler() ToolHandler
	InputSchema() map[string]any
}

// ToolDefinition mirrors the Tool metadata exposed to clients.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ContentBlock represents a unit of textual content returned by tools.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// CallToolResult models the standard MCP response payload for tool invocations.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// TextResult wraps text in a single-block tool result.
func TextResult(text string) CallToolResult {
	return CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

// JSON-RPC 2.0 error codes surfaced to clients
const (
	ParseError     = -32700 // Invalid JSON was received
	InvalidRequest = -32600 // Request or configuration is not usable
	MethodNotFound = -32601 // Unknown method, tool or resource
	InvalidParams  = -32602 // Invalid method parameters
	InternalError  = -32603 // Backend or unexpected failure
)

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return e.Message
}

// NewMCPError creates a new MCP error
func NewMCPError(code int, message string, data any) *MCPError {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// WrapError wraps an error with MCP error code
func WrapError(code int, message string, err error) *MCPError {
	if err == nil {
		return NewMCPError(code, message, nil)
	}
	data := map[string]any{
		"error": err.Error(),
	}
	return NewMCPError(code, message, data)
}

// ErrorMessage returns err's message, or "Unknown error" when there is none.
func ErrorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}
