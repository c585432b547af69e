package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"blockwatch/internal/config"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open runs the integrity gate, then opens the store with the journal-mode,
// busy-timeout and foreign-key pragmas applied on every connection.
func Open(cfg config.DBConfig) (*DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("db: create dir %s: %w", dir, err)
		}
	}

	if err := EnsureIntegrity(cfg.Path); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=%s&_foreign_keys=1",
		cfg.Path, cfg.BusyTimeout.Milliseconds(), cfg.JournalMode)

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	// SQLite has a single writer; one connection keeps lock contention out of
	// the driver and in the busy-timeout path where it is retried.
	sqldb.SetMaxOpenConns(1)

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Ping()
}

// Health is the storage probe exposed to the ops surface.
type Health struct {
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail"`
}

// Probe runs a quick integrity pass on the open store.
func (d *DB) Probe() Health {
	if d == nil || d.SQL == nil {
		return Health{Healthy: false, Detail: "store not open"}
	}
	var result string
	if err := d.SQL.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return Health{Healthy: false, Detail: err.Error()}
	}
	if result != "ok" {
		return Health{Healthy: false, Detail: result}
	}
	return Health{Healthy: true, Detail: "ok"}
}
