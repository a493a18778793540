package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteDialect = sqlDialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			service_url  TEXT PRIMARY KEY,
			metadata_url TEXT NOT NULL,
			version      TEXT NOT NULL,
			document     BLOB NOT NULL,
			fetched_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			service_url TEXT NOT NULL,
			url         TEXT NOT NULL,
			display     TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queries_service ON queries (service_url)`,
	},
	saveSnapshot: `
		INSERT INTO snapshots (service_url, metadata_url, version, document, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (service_url) DO UPDATE SET
			metadata_url = excluded.metadata_url,
			version = excluded.version,
			document = excluded.document,
			fetched_at = excluded.fetched_at
	`,
}

// NewSQLiteStore opens the SQLite database file at path
func NewSQLiteStore(ctx context.Context, path string) (Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	s, err := newSQLStore(ctx, db, sqliteDialect)
	if err != nil {
		return nil, err
	}
	return s, nil
}
