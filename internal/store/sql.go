package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// sqlDialect holds the statements that differ between database/sql backends
type sqlDialect struct {
	schema       []string
	saveSnapshot string
}

// sqlStore implements Store over database/sql. Both SQLite and MySQL use ?
// placeholders so only DDL and the upsert differ.
type sqlStore struct {
	db      *sql.DB
	dialect sqlDialect
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect sqlDialect) (*sqlStore, error) {
	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range dialect.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &sqlStore{db: db, dialect: dialect}, nil
}

func (s *sqlStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx, s.dialect.saveSnapshot,
		snap.ServiceURL, snap.MetadataURL, snap.Version, snap.Document, toMillis(snap.FetchedAt))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *sqlStore) LoadSnapshot(ctx context.Context, serviceURL string) (*Snapshot, error) {
	query := `
		SELECT service_url, metadata_url, version, document, fetched_at
		FROM snapshots
		WHERE service_url = ?
	`

	var snap Snapshot
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx, query, serviceURL).
		Scan(&snap.ServiceURL, &snap.MetadataURL, &snap.Version, &snap.Document, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.FetchedAt = fromMillis(fetchedAt)

	return &snap, nil
}

func (s *sqlStore) RecordQuery(ctx context.Context, q QueryRecord) error {
	query := `
		INSERT INTO queries (service_url, url, display, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, q.ServiceURL, q.URL, q.Display, toMillis(q.CreatedAt)); err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

func (s *sqlStore) RecentQueries(ctx context.Context, serviceURL string, limit int) ([]QueryRecord, error) {
	query := `
		SELECT service_url, url, display, created_at
		FROM queries
		WHERE ? = '' OR service_url = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, serviceURL, serviceURL, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		var createdAt int64
		if err := rows.Scan(&rec.ServiceURL, &rec.URL, &rec.Display, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = fromMillis(createdAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *sqlStore) Close(context.Context) error {
	return s.db.Close()
}
