package tools

import (
	"github.com/termfx/aliyun-mcp/mcp/types"
)

// BaseTool provides common tool functionality
type BaseTool struct {
	name        string
	description string
	inputSchema map[string]any
	handler     types.ToolHandler
}

// Name returns the tool name
func (t *BaseTool) Name() string {
	return t.name
}

// Description returns the tool description
func (t *BaseTool) Description() string {
	return t.description
}

// InputSchema returns the tool's input schema
func (t *BaseTool) InputSchema() map[string]any {
	return t.inputSchema
}

// Handler returns the tool's handler function
func (t *BaseTool) Handler() types.ToolHandler {
	return t.handler
}

func stringProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

func numberProperty(description string) map[string]any {
	return map[string]any{
		"type":        "number",
		"description": description,
	}
}

func booleanProperty(description string) map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": description,
	}
}
