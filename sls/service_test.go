package sls

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/termfx/aliyun-mcp/mcp/types"
)

func newTestService(t *testing.T, backend Backend, clock *fakeClock, opts ...ServiceOption) (*Service, *countingFactory) {
	t.Helper()
	factory := &countingFactory{backend: backend}
	provider := NewClientProvider(factory.Build,
		WithClock(clock.Now),
		WithCredentialSource(staticCredentials),
	)
	opts = append([]ServiceOption{WithServiceClock(clock.Now)}, opts...)
	return NewService(provider, opts...), factory
}

func TestService_QueryLogsScenario(t *testing.T) {
	clock := newFakeClock(time.UnixMilli(1_700_000_000_500))
	backend := &mockBackend{}
	payload := map[string]any{"count": float64(1)}
	backend.On("GetLogs", GetLogsRequest{
		Project:  "p",
		Logstore: "l",
		From:     1_700_000_000 - 3600,
		To:       1_700_000_000,
		Query:    "q",
		Line:     10,
		Offset:   0,
		Reverse:  false,
	}).Return(payload, nil).Once()

	svc, _ := newTestService(t, backend, clock)

	result, err := svc.QueryLogs(context.Background(), QueryParams{
		Project:  "p",
		Logstore: "l",
		Query:    "q",
		Limit:    int64Ptr(10),
	})

	require.NoError(t, err)
	assert.Equal(t, payload, result)
	backend.AssertExpectations(t)
}

func TestService_DefaultWindowTracksCallTime(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	backend := &mockBackend{}
	var seen []GetLogsRequest
	backend.On("GetLogs", mock.AnythingOfType("sls.GetLogsRequest")).
		Run(func(args mock.Arguments) { seen = append(seen, args.Get(0).(GetLogsRequest)) }).
		Return(map[string]any{}, nil)

	svc, _ := newTestService(t, backend, clock)
	params := QueryParams{Project: "p", Logstore: "l", Query: "q"}

	_, err := svc.QueryLogs(context.Background(), params)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	_, err = svc.QueryLogs(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, int64(1_700_000_000-3600), seen[0].From)
	assert.Equal(t, int64(1_700_000_000), seen[0].To)
	assert.Equal(t, int64(1_700_000_600-3600), seen[1].From)
	assert.Equal(t, int64(1_700_000_600), seen[1].To)
}

func TestService_ReusesClientWithinInterval(t *testing.T) {
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	backend := &mockBackend{}
	backend.On("GetLogs", mock.Anything).Return(map[string]any{}, nil)
	logger, buf := bufferLogger()

	factory := &countingFactory{backend: backend}
	provider := NewClientProvider(factory.Build,
		WithClock(clock.Now),
		WithCredentialSource(staticCredentials),
		WithProviderLogger(logger),
	)
	svc := NewService(provider, WithServiceClock(clock.Now), WithLogger(logger))
	params := QueryParams{Project: "p", Logstore: "l", Query: "q"}

	_, err := svc.QueryLogs(context.Background(), params)
	require.NoError(t, err)
	_, err = svc.QueryLogs(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 1, countLines(buf, "initializing SLS client"))
	assert.Equal(t, 1, factory.Calls())

	clock.Advance(RefreshInterval + time.Second)
	_, err = svc.QueryLogs(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 2, countLines(buf, "initializing SLS client"))
	assert.Equal(t, 2, factory.Calls())
	assert.Equal(t, 3, countLines(buf, "successfully retrieved logs"))
}

func TestService_BackendError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{name: "message carried", err: errors.New("ProjectNotExist"), message: "SLS query failed: ProjectNotExist"},
		{name: "empty message", err: errors.New(""), message: "SLS query failed: Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock(time.Unix(1_700_000_000, 0))
			backend := &mockBackend{}
			backend.On("GetLogs", mock.Anything).Return(nil, tt.err).Once()
			logger, buf := bufferLogger()

			svc, _ := newTestService(t, backend, clock, WithLogger(logger))
			result, err := svc.QueryLogs(context.Background(), QueryParams{Project: "p", Logstore: "l", Query: "q"})

			assert.Nil(t, result)
			var mcpErr *types.MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, types.InternalError, mcpErr.Code)
			assert.Equal(t, tt.message, mcpErr.Message)
			assert.Contains(t, buf.String(), "error querying logs")
		})
	}
}

func TestService_MissingCredentialsMakesNoBackendCall(t *testing.T) {
	backend := &mockBackend{}
	factory := &countingFactory{backend: backend}
	provider := NewClientProvider(factory.Build, WithCredentialSource(missingCredentials))
	svc := NewService(provider)

	_, err := svc.QueryLogs(context.Background(), QueryParams{Project: "p", Logstore: "l", Query: "q"})

	var mcpErr *types.MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, types.InvalidRequest, mcpErr.Code)
	assert.Equal(t, 0, factory.Calls())
	backend.AssertNotCalled(t, "GetLogs", mock.Anything)
}

func TestService_FactoryErrorIsInternal(t *testing.T) {
	factory := &countingFactory{err: errors.New("dial failed")}
	provider := NewClientProvider(factory.Build, WithCredentialSource(staticCredentials))
	svc := NewService(provider)

	_, err := svc.QueryLogs(context.Background(), QueryParams{Project: "p", Logstore: "l", Query: "q"})

	var mcpErr *types.MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, types.InternalError, mcpErr.Code)
	assert.Equal(t, "SLS query failed: dial failed", mcpErr.Message)
}

func TestService_PolicyDeniesTarget(t *testing.T) {
	backend := &mockBackend{}
	policy, err := NewTargetPolicy([]string{"prod-*/nginx-*"})
	require.NoError(t, err)

	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	svc, factory := newTestService(t, backend, clock, WithPolicy(policy))

	_, err = svc.QueryLogs(context.Background(), QueryParams{Project: "dev", Logstore: "nginx-access", Query: "*"})

	var mcpErr *types.MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, types.InvalidParams, mcpErr.Code)
	assert.Equal(t, "Target not permitted: dev/nginx-access", mcpErr.Message)
	assert.Equal(t, 0, factory.Calls())
}

func TestService_CancelledContext(t *testing.T) {
	backend := &mockBackend{}
	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	svc, _ := newTestService(t, backend, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.QueryLogs(ctx, QueryParams{Project: "p", Logstore: "l", Query: "q"})

	var mcpErr *types.MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, types.InternalError, mcpErr.Code)
	backend.AssertNotCalled(t, "GetLogs", mock.Anything)
}

func TestService_ResultRoundTripsThroughJSON(t *testing.T) {
	payload := map[string]any{
		"progress": "Complete",
		"count":    float64(2),
		"logs": []any{
			map[string]any{"__time__": "1700000000", "level": "ERROR", "msg": "disk full"},
			map[string]any{"__time__": "1700000001", "level": "WARN", "msg": "retrying"},
		},
		"hasSQL": false,
	}
	backend := &mockBackend{}
	backend.On("GetLogs", mock.Anything).Return(payload, nil)

	clock := newFakeClock(time.Unix(1_700_000_000, 0))
	svc, _ := newTestService(t, backend, clock)

	result, err := svc.QueryLogs(context.Background(), QueryParams{Project: "p", Logstore: "l", Query: "level: ERROR"})
	require.NoError(t, err)

	encoded, err := json.MarshalIndent(result, "", "  ")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestService_QueryLogNeverIncludesCredentials(t *testing.T) {
	backend := &mockBackend{}
	backend.On("GetLogs", mock.Anything).Return(map[string]any{}, nil)
	logger, buf := bufferLogger()

	factory := &countingFactory{backend: backend}
	provider := NewClientProvider(factory.Build, WithCredentialSource(staticCredentials), WithProviderLogger(logger))
	svc := NewService(provider, WithLogger(logger))

	_, err := svc.QueryLogs(context.Background(), QueryParams{Project: "proj", Logstore: "store", Query: "status: 500"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "querying logs")
	assert.Contains(t, out, "project=proj")
	assert.Contains(t, out, "logstore=store")
	assert.NotContains(t, out, "LTAI5tExample")
}
