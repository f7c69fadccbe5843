package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/termfx/aliyun-mcp/db"
	"github.com/termfx/aliyun-mcp/mcp/tools"
	"github.com/termfx/aliyun-mcp/models"
	"github.com/termfx/aliyun-mcp/sls"
)

// recordingQuerier persists every query that reaches the wrapped querier.
// Persistence failures are logged and never change the query outcome.
type recordingQuerier struct {
	next      tools.LogQuerier
	store     *db.HistoryStore
	sessionID string
	logger    *slog.Logger
	now       func() time.Time
}

func newRecordingQuerier(next tools.LogQuerier, store *db.HistoryStore, sessionID string, logger *slog.Logger) *recordingQuerier {
	return &recordingQuerier{
		next:      next,
		store:     store,
		sessionID: sessionID,
		logger:    logger,
		now:       time.Now,
	}
}

func (r *recordingQuerier) QueryLogs(ctx context.Context, params sls.QueryParams) (any, error) {
	started := r.now()
	result, err := r.next.QueryLogs(ctx, params)

	record := &models.QueryRecord{
		SessionID:  r.sessionID,
		Project:    params.Project,
		Logstore:   params.Logstore,
		Query:      params.Query,
		From:       params.From,
		To:         params.To,
		Limit:      params.Limit,
		Offset:     params.Offset,
		Reverse:    params.Reverse,
		Status:     models.StatusOK,
		DurationMS: r.now().Sub(started).Milliseconds(),
	}
	if raw, marshalErr := json.Marshal(params); marshalErr == nil {
		record.Params = datatypes.JSON(raw)
	}
	if err != nil {
		record.Status = models.StatusError
		record.ErrorMessage = err.Error()
	}

	// The query outcome is already decided; a cancelled request still gets
	// its history row.
	if storeErr := r.store.RecordQuery(context.WithoutCancel(ctx), record); storeErr != nil {
		r.logger.Error("failed to record query", "project", params.Project, "logstore", params.Logstore, "error", storeErr)
	}

	return result, err
}
