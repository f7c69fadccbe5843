package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/termfx/aliyun-mcp/mcp/tools"
)

// handleInitialize handles the MCP initialization handshake
func (s *StdioServer) handleInitialize(ctx context.Context, req Request) Response {
	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}

	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.logger.Debug("ignoring malformed initialize params", "error", err)
		}
		s.logger.Debug("client connected",
			"client", params.ClientInfo.Name,
			"client_version", params.ClientInfo.Version,
			"protocol", params.ProtocolVersion)
	}

	if s.history != nil && s.session != nil && params.ClientInfo.Name != "" {
		if err := s.history.SetClientInfo(ctx, s.session.ID, params.ClientInfo); err != nil {
			s.logger.Error("failed to store client info", "error", err)
		}
	}

	return SuccessResponse(req.ID, map[string]any{
		"protocolVersion": supportedProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": ServerVersion,
		},
	})
}

// handleInitialized confirms initialization complete
func (s *StdioServer) handleInitialized(ctx context.Context, msg Notification) error {
	s.logger.Debug("initialization complete")
	return nil
}

// handlePing responds to keepalive pings
func (s *StdioServer) handlePing(ctx context.Context, req Request) Response {
	return SuccessResponse(req.ID, map[string]any{})
}

// handleListTools returns available tools to the client
func (s *StdioServer) handleListTools(ctx context.Context, req Request) Response {
	return SuccessResponse(req.ID, map[string]any{
		"tools": s.registry.Definitions(),
	})
}

// handleCallTool executes a specific tool
func (s *StdioServer) handleCallTool(ctx context.Context, req Request) Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}

	if err := json.Unmarshal(req.Params, &params); err != nil {
		return ErrorResponse(req.ID, InvalidParams, "Invalid params structure")
	}

	s.logger.Info("executing tool", "tool", params.Name)

	result, err := s.registry.Execute(ctx, params.Name, params.Arguments)
	if errors.Is(err, tools.ErrToolNotFound) {
		return ErrorResponse(req.ID, MethodNotFound, fmt.Sprintf("Unknown tool: %s", params.Name))
	}
	if err != nil {
		return ErrorResponseFromError(req.ID, err)
	}

	return SuccessResponse(req.ID, result)
}

// handleListResources returns the (empty) resource list
func (s *StdioServer) handleListResources(ctx context.Context, req Request) Response {
	return SuccessResponse(req.ID, map[string]any{
		"resources": []any{},
	})
}

// handleReadResource rejects every URI; no resources are registered
func (s *StdioServer) handleReadResource(ctx context.Context, req Request) Response {
	var params struct {
		URI string `json:"uri"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, InvalidParams, "Invalid params structure")
		}
	}

	return ErrorResponse(req.ID, MethodNotFound, fmt.Sprintf("Resource not found: %s", params.URI))
}
