package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/termfx/aliyun-mcp/internal/logging"
	"github.com/termfx/aliyun-mcp/mcp/types"
	"github.com/termfx/aliyun-mcp/sls"
)

// SLSQueryToolName is the name clients use to invoke the log query tool.
const SLSQueryToolName = "querySLSLogs"

// LogQuerier executes a log query and returns the raw backend result.
type LogQuerier interface {
	QueryLogs(ctx context.Context, params sls.QueryParams) (any, error)
}

// SLSQueryTool forwards structured log queries to SLS.
type SLSQueryTool struct {
	*BaseTool
	querier LogQuerier
	logger  *slog.Logger
}

// SLSQueryOption customizes an SLSQueryTool.
type SLSQueryOption func(*SLSQueryTool)

// WithToolLogger sets the diagnostics logger.
func WithToolLogger(logger *slog.Logger) SLSQueryOption {
	return func(t *SLSQueryTool) { t.logger = logger }
}

// NewSLSQueryTool creates the querySLSLogs tool.
func NewSLSQueryTool(querier LogQuerier, opts ...SLSQueryOption) *SLSQueryTool {
	tool := &SLSQueryTool{querier: querier}
	for _, opt := range opts {
		opt(tool)
	}
	tool.logger = logging.OrDiscard(tool.logger)

	tool.BaseTool = &BaseTool{
		name:        SLSQueryToolName,
		description: "Query Aliyun SLS (Simple Log Service) logs",
		inputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"project":  stringProperty("SLS project name"),
				"logstore": stringProperty("SLS logstore name"),
				"query":    stringProperty("SLS query statement"),
				"from":     numberProperty("Start time in milliseconds (defaults to 1 hour ago)"),
				"to":       numberProperty("End time in milliseconds (defaults to now)"),
				"limit":    numberProperty("Maximum number of logs to return (default: 100, max: 1000)"),
				"offset":   numberProperty("Offset for pagination (default: 0)"),
				"reverse":  booleanProperty("Whether to return results in reverse order (default: false)"),
			},
			"required": []string{"project", "logstore", "query"},
		},
		handler: tool.handle,
	}

	return tool
}

// handle executes the querySLSLogs tool
func (t *SLSQueryTool) handle(ctx context.Context, params json.RawMessage) (any, error) {
	query := t.decodeParams(decodeArguments(params))

	if query.Project == "" || query.Logstore == "" || query.Query == "" {
		err := types.NewMCPError(types.InvalidParams,
			"Missing required parameters: project, logstore, and query are required", nil)
		t.logger.Error("error executing tool", "tool", SLSQueryToolName, "error", err)
		return nil, err
	}

	result, err := t.querier.QueryLogs(ctx, query)
	if err != nil {
		t.logger.Error("error executing tool", "tool", SLSQueryToolName, "error", err)
		if mcpErr, ok := err.(*types.MCPError); ok {
			return nil, mcpErr
		}
		return nil, types.NewMCPError(types.InternalError,
			"Error querying SLS logs: "+types.ErrorMessage(err), nil)
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, types.WrapError(types.InternalError, "Error querying SLS logs: failed to encode result", err)
	}

	return types.TextResult(string(text)), nil
}

// decodeParams applies the per-field decode-or-default rules. Optional
// fields of the wrong type are dropped.
func (t *SLSQueryTool) decodeParams(args map[string]any) sls.QueryParams {
	params := sls.QueryParams{
		Project:  decodeString(args, "project"),
		Logstore: decodeString(args, "logstore"),
		Query:    decodeString(args, "query"),
	}

	numbers := []struct {
		key string
		dst **int64
	}{
		{"from", &params.From},
		{"to", &params.To},
		{"limit", &params.Limit},
		{"offset", &params.Offset},
	}
	for _, field := range numbers {
		value, ok := decodeNumber(args, field.key)
		if !ok {
			t.logger.Debug("ignoring non-numeric argument", "field", field.key, "value", args[field.key])
		}
		*field.dst = value
	}

	reverse, ok := decodeBool(args, "reverse")
	if !ok {
		t.logger.Debug("ignoring non-boolean argument", "field", "reverse", "value", args["reverse"])
	}
	params.Reverse = reverse

	return params
}
