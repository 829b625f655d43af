package database

import (
	"database/sql"
	"strings"
	"time"

	"umnico/internal/platform/config"

	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the local sqlite store. A "file:" prefix is accepted.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := strings.TrimPrefix(cfg.URL, "file:")
	if dsn == "" {
		dsn = ":memory:"
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 || isMemory(dsn) {
		// every connection to :memory: opens its own empty database
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
