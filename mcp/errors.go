package mcp

import (
	"errors"

	"github.com/termfx/aliyun-mcp/mcp/types"
)

// Error codes following JSON-RPC 2.0 standard
const (
	ParseError     = types.ParseError
	InvalidRequest = types.InvalidRequest
	MethodNotFound = types.MethodNotFound
	InvalidParams  = types.InvalidParams
	InternalError  = types.InternalError
)

// MCPError is the structured error tools and services return.
type MCPError = types.MCPError

// ErrorResponseFromError converts err into a JSON-RPC error response. MCP
// errors keep their code and data; anything else becomes an internal error.
func ErrorResponseFromError(id any, err error) Response {
	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return ErrorResponse(id, mcpErr.Code, mcpErr.Message, mcpErr.Data)
	}
	return ErrorResponse(id, InternalError, types.ErrorMessage(err))
}
