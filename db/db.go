package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tool_lending_tracker/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver string // sqlite | postgres
	DSN    string // sqlite: file path or ":memory:"; postgres: key=value DSN
	Debug  bool
}

// Open connects and migrates. SQLite gets a single connection so that every
// transaction is serialized.
func Open(opts Options) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch strings.ToLower(opts.Driver) {
	case DriverPostgres:
		dial = postgres.Open(opts.DSN)
	case DriverSQLite, "":
		if opts.DSN != ":memory:" {
			if dir := filepath.Dir(opts.DSN); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create data dir: %w", err)
				}
			}
		}
		dial = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unknown db driver %q", opts.Driver)
	}

	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}
	conn, err := gorm.Open(dial, &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	if conn.Dialector.Name() == DriverSQLite {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Tool{}, &models.IssueRecord{}, &models.IssueRequest{}, &models.HistoryEntry{}); err != nil {
		return err
	}

	// one open issue record per tool
	if err := db.Exec(fmt.Sprintf(`
	  CREATE UNIQUE INDEX IF NOT EXISTS %s_one_open_per_tool
	  ON %s (tool_id)
	  WHERE return_date IS NULL;
	`, models.IssueTable, models.IssueTable)).Error; err != nil {
		return err
	}

	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_expected
	  ON %s (expected_return_date)
	  WHERE return_date IS NULL;
	`, models.IssueTable, models.IssueTable)).Error; err != nil {
		return err
	}

	return nil
}
