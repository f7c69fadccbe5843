package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/termfx/aliyun-mcp/models"
)

// AuthTokenEnv names the variable holding the libsql auth token for remote
// history databases.
const AuthTokenEnv = "ALIYUN_MCP_LIBSQL_AUTH_TOKEN"

// Connect establishes a database connection and runs migrations
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty database DSN")
	}

	// Ensure directory exists for file-based SQLite
	if !isURL(dsn) {
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		dialector gorm.Dialector
		conn      *sql.DB
	)
	if isURL(dsn) {
		var (
			connector driver.Connector
			err       error
		)

		token := os.Getenv(AuthTokenEnv)
		if token != "" {
			connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(token))
		} else {
			connector, err = libsql.NewConnector(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create libsql connector: %w", err)
		}

		conn = sql.OpenDB(connector)
		dialector = sqlite.New(sqlite.Config{
			DriverName: "libsql",
			Conn:       conn,
			DSN:        dsn,
		})
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}

// isURL checks if the DSN is a URL (for Turso) or file path
func isURL(dsn string) bool {
	for _, prefix := range []string{"http://", "https://", "libsql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Session{},
		&models.QueryRecord{},
	)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
