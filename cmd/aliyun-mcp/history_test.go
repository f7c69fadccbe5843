package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/aliyun-mcp/db"
	"github.com/termfx/aliyun-mcp/internal/config"
	"github.com/termfx/aliyun-mcp/models"
)

func seedHistory(t *testing.T, records ...models.QueryRecord) string {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "history.db")
	conn, err := db.Connect(dsn, false)
	require.NoError(t, err)
	defer db.Close(conn)

	store := db.NewHistoryStore(conn)
	for i := range records {
		require.NoError(t, store.RecordQuery(context.Background(), &records[i]))
	}
	return dsn
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := run(t, "", "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no history database configured")
	assert.Contains(t, stderr, config.EnvDatabaseURL)
}

func TestHistoryCommand_Empty(t *testing.T) {
	isolateEnv(t)
	dsn := seedHistory(t)

	code, stdout, stderr := run(t, "", "history", "--db", dsn)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "No queries recorded\n", stdout)
}

func TestHistoryCommand_ListsRecords(t *testing.T) {
	isolateEnv(t)
	dsn := seedHistory(t,
		models.QueryRecord{Project: "prod", Logstore: "api", Query: "status:500", Status: models.StatusOK, DurationMS: 120},
		models.QueryRecord{Project: "dev", Logstore: "web", Query: "*", Status: models.StatusError, ErrorMessage: "SLS query failed: denied"},
	)

	t.Setenv(config.EnvDatabaseURL, dsn)

	code, stdout, stderr := run(t, "", "history")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "TIME")
	assert.Contains(t, stdout, "prod/api")
	assert.Contains(t, stdout, "status:500")
	assert.Contains(t, stdout, "120ms")
	assert.Contains(t, stdout, "dev/web")
	assert.Contains(t, stdout, "SLS query failed: denied")

	code, stdout, stderr = run(t, "", "history", "--project", "prod")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "prod/api")
	assert.NotContains(t, stdout, "dev/web")

	code, stdout, stderr = run(t, "", "history", "--limit", "1")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, 1, strings.Count(stdout, "/"), "one record row")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "日本語日本語日...", truncate("日本語日本語日本語日本語", 10))
}
