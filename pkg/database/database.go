package database

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/alimgiray/gh-activity-report/pkg/logger"
)

//go:embed schema.sql
var schema string

// Open opens the staging database and creates its tables.
// An empty dsn gives a private in-memory database that disappears with the handle.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = InMemoryDSN()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging database: %w", err)
	}

	// One connection serializes writers and keeps the in-memory database alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to staging database: %w", err)
	}

	if err := optimizeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create staging schema: %w", err)
	}

	logger.Debugf("Staging database ready")
	return db, nil
}

// InMemoryDSN returns a uniquely named shared-cache in-memory DSN
func InMemoryDSN() string {
	return fmt.Sprintf("file:staging-%s?mode=memory&cache=shared&_busy_timeout=30000", uuid.New().String())
}

// optimizeDatabase configures SQLite for a short-lived write-heavy workload
func optimizeDatabase(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA cache_size=10000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}
