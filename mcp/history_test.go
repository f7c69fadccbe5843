package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/termfx/aliyun-mcp/db"
	"github.com/termfx/aliyun-mcp/internal/logging"
	"github.com/termfx/aliyun-mcp/models"
	"github.com/termfx/aliyun-mcp/sls"
)

func TestServer_RecordsHistory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")

	querier := &mockQuerier{}
	querier.On("QueryLogs", mock.Anything, mock.MatchedBy(func(p sls.QueryParams) bool {
		return p.Project == "ok"
	})).Return(map[string]any{}, nil)
	querier.On("QueryLogs", mock.Anything, mock.MatchedBy(func(p sls.QueryParams) bool {
		return p.Project == "bad"
	})).Return(nil, errors.New("SLS query failed: denied"))

	h := startServer(t, Config{Querier: querier, DatabaseURL: dsn})
	sessionID := h.server.SessionID()
	require.NotEmpty(t, sessionID)

	h.call(1, "initialize", map[string]any{
		"clientInfo": map[string]any{"name": "inspector", "version": "0.9"},
	})
	h.call(2, "tools/call", map[string]any{
		"name":      "querySLSLogs",
		"arguments": map[string]any{"project": "ok", "logstore": "l", "query": "*", "limit": 5},
	})
	h.call(3, "tools/call", map[string]any{
		"name":      "querySLSLogs",
		"arguments": map[string]any{"project": "bad", "logstore": "l", "query": "*"},
	})
	// Rejected before reaching the query service, so not recorded.
	h.call(4, "tools/call", map[string]any{
		"name":      "querySLSLogs",
		"arguments": map[string]any{"project": "ok"},
	})

	require.NoError(t, h.server.Close())

	database, err := db.Connect(dsn, false)
	require.NoError(t, err)
	defer db.Close(database)
	store := db.NewHistoryStore(database)

	session, err := store.Session(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, session.QueriesCount)
	assert.NotNil(t, session.EndedAt)
	assert.JSONEq(t, `{"name":"inspector","version":"0.9"}`, string(session.ClientInfo))

	records, err := store.Recent(context.Background(), 10, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	byProject := map[string]models.QueryRecord{}
	for _, r := range records {
		byProject[r.Project] = r
	}

	okRecord := byProject["ok"]
	assert.Equal(t, models.StatusOK, okRecord.Status)
	require.NotNil(t, okRecord.Limit)
	assert.Equal(t, int64(5), *okRecord.Limit)
	assert.Nil(t, okRecord.From)
	assert.JSONEq(t, `{"project":"ok","logstore":"l","query":"*","limit":5}`, string(okRecord.Params))

	badRecord := byProject["bad"]
	assert.Equal(t, models.StatusError, badRecord.Status)
	assert.Equal(t, "SLS query failed: denied", badRecord.ErrorMessage)
	assert.Equal(t, sessionID, badRecord.SessionID)
}

// staticQuerier always succeeds with the same result.
type staticQuerier struct{}

func (staticQuerier) QueryLogs(ctx context.Context, params sls.QueryParams) (any, error) {
	return "result", nil
}

func TestRecordingQuerier_StoreFailureDoesNotFailQuery(t *testing.T) {
	database, err := db.Connect(filepath.Join(t.TempDir(), "closed.db"), false)
	require.NoError(t, err)
	store := db.NewHistoryStore(database)
	require.NoError(t, db.Close(database))

	q := newRecordingQuerier(staticQuerier{}, store, "ses_x", logging.Discard())
	result, err := q.QueryLogs(context.Background(), sls.QueryParams{Project: "p", Logstore: "l", Query: "*"})
	require.NoError(t, err)
	assert.Equal(t, "result", result)
}
