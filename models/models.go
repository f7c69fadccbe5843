package models

import (
	"time"

	"gorm.io/datatypes"
)

// Query record statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Session tracks one run of the MCP server
type Session struct {
	ID        string    `gorm:"primaryKey;type:varchar(40)"`
	StartedAt time.Time `gorm:"autoCreateTime"`
	EndedAt   *time.Time

	// Statistics
	QueriesCount int `gorm:"default:0"`

	// Client info reported in initialize
	ClientInfo datatypes.JSON `gorm:"type:jsonb"`
}

// QueryRecord is one querySLSLogs invocation that reached SLS
type QueryRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(40)"`
	SessionID string `gorm:"type:varchar(40);index"`

	// Target
	Project  string `gorm:"type:varchar(255);not null;index"`
	Logstore string `gorm:"type:varchar(255);not null"`
	Query    string `gorm:"type:text;not null"`

	// Raw window and paging arguments, nil when the caller omitted them
	From    *int64
	To      *int64
	Limit   *int64
	Offset  *int64
	Reverse *bool

	// Outcome
	Status       string `gorm:"type:varchar(10);not null"`
	ErrorMessage string `gorm:"type:text"`
	DurationMS   int64
	Params       datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName customizations for cleaner names
func (Session) TableName() string     { return "sessions" }
func (QueryRecord) TableName() string { return "query_records" }
