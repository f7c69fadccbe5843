package sls

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/termfx/aliyun-mcp/internal/logging"
	"github.com/termfx/aliyun-mcp/mcp/types"
)

// Service executes log queries against SLS.
type Service struct {
	clients *ClientProvider
	policy  *TargetPolicy
	now     func() time.Time
	logger  *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithPolicy restricts the queryable project/logstore pairs.
func WithPolicy(policy *TargetPolicy) ServiceOption {
	return func(s *Service) { s.policy = policy }
}

// WithServiceClock overrides the clock used for default time windows.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService returns a Service drawing backends from clients.
func NewService(clients *ClientProvider, opts ...ServiceOption) *Service {
	s := &Service{
		clients: clients,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	return s
}

// QueryLogs runs a single-page query and returns the backend result as-is.
// Failures are *types.MCPError values: invalid-params for a denied target,
// invalid-request for missing credentials and internal-error for backend
// failures.
func (s *Service) QueryLogs(ctx context.Context, params QueryParams) (any, error) {
	s.logger.Info("querying logs",
		"project", params.Project,
		"logstore", params.Logstore,
		"query", params.Query,
		"from", optional(params.From),
		"to", optional(params.To),
		"limit", optional(params.Limit),
	)

	if !s.policy.Allows(params.Project, params.Logstore) {
		return nil, types.NewMCPError(types.InvalidParams,
			fmt.Sprintf("Target not permitted: %s/%s", params.Project, params.Logstore), nil)
	}

	backend, err := s.clients.Acquire()
	if err != nil {
		s.logger.Error("error in queryLogs", "error", err)
		if mcpErr, ok := err.(*types.MCPError); ok {
			return nil, mcpErr
		}
		return nil, types.NewMCPError(types.InternalError,
			"SLS query failed: "+types.ErrorMessage(err), nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, types.NewMCPError(types.InternalError, "SLS query failed: "+err.Error(), nil)
	}

	req := BuildRequest(params, s.now())
	s.logger.Debug("issuing GetLogs",
		"project", req.Project,
		"logstore", req.Logstore,
		"from", req.From,
		"to", req.To,
		"line", req.Line,
		"offset", req.Offset,
		"reverse", req.Reverse,
	)

	result, err := backend.GetLogs(req)
	if err != nil {
		s.logger.Error("error querying logs", "error", err)
		return nil, types.NewMCPError(types.InternalError,
			"SLS query failed: "+types.ErrorMessage(err), nil)
	}

	s.logger.Info("successfully retrieved logs")
	return result, nil
}

func optional(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
