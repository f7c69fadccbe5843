package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/termfx/aliyun-mcp/models"
)

// DefaultHistoryLimit bounds Recent when the caller passes a non-positive limit.
const DefaultHistoryLimit = 20

// HistoryStore persists server sessions and query records.
type HistoryStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewHistoryStore wraps an open, migrated database.
func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db, now: time.Now}
}

// DB exposes the underlying handle.
func (h *HistoryStore) DB() *gorm.DB {
	return h.db
}

// StartSession creates a new session row.
func (h *HistoryStore) StartSession(ctx context.Context) (*models.Session, error) {
	session := &models.Session{ID: "ses_" + uuid.NewString()}
	if err := h.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// SetClientInfo stores the client identity reported during initialize.
func (h *HistoryStore) SetClientInfo(ctx context.Context, sessionID string, info any) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode client info: %w", err)
	}
	err = h.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("client_info", datatypes.JSON(raw)).Error
	if err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (h *HistoryStore) EndSession(ctx context.Context, sessionID string) error {
	err := h.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("ended_at", h.now()).Error
	if err != nil {
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}
	return nil
}

// RecordQuery inserts record and bumps its session's query counter.
func (h *HistoryStore) RecordQuery(ctx context.Context, record *models.QueryRecord) error {
	if record.ID == "" {
		record.ID = "qry_" + uuid.NewString()
	}

	return h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("create query record: %w", err)
		}
		if record.SessionID == "" {
			return nil
		}
		err := tx.Model(&models.Session{}).
			Where("id = ?", record.SessionID).
			Update("queries_count", gorm.Expr("queries_count + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("update session %s: %w", record.SessionID, err)
		}
		return nil
	})
}

// Recent returns the newest records first, optionally filtered by project.
func (h *HistoryStore) Recent(ctx context.Context, limit int, project string) ([]models.QueryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := h.db.WithContext(ctx).Model(&models.QueryRecord{})
	if project != "" {
		query = query.Where("project = ?", project)
	}

	var records []models.QueryRecord
	if err := query.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list query records: %w", err)
	}
	return records, nil
}

// Session loads a session by id.
func (h *HistoryStore) Session(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := h.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return &session, nil
}
