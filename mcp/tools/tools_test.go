package tools

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/termfx/aliyun-mcp/sls"
)

// mockQuerier is a testify mock for LogQuerier.
type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) QueryLogs(ctx context.Context, params sls.QueryParams) (any, error) {
	args := m.Called(ctx, params)
	return args.Get(0), args.Error(1)
}

func debugLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func int64Ptr(v int64) *int64 { return &v }

func boolPtr(v bool) *bool { return &v }
