package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS snapshots (
		service_url  TEXT PRIMARY KEY,
		metadata_url TEXT NOT NULL,
		version      TEXT NOT NULL,
		document     BYTEA NOT NULL,
		fetched_at   BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS queries (
		id          BIGSERIAL PRIMARY KEY,
		service_url TEXT NOT NULL,
		url         TEXT NOT NULL,
		display     TEXT NOT NULL,
		created_at  BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_queries_service ON queries (service_url)`,
}

// PostgresStore keeps snapshots in PostgreSQL
type PostgresStore struct {
	conn *pgx.Conn
}

// NewPostgresStore connects to PostgreSQL and creates the tables
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			_ = conn.Close(ctx)
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &PostgresStore{conn: conn}, nil
}

// SaveSnapshot inserts or replaces the snapshot for s.ServiceURL
func (p *PostgresStore) SaveSnapshot(ctx context.Context, s Snapshot) error {
	query := `
		INSERT INTO snapshots (service_url, metadata_url, version, document, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (service_url) DO UPDATE SET
			metadata_url = EXCLUDED.metadata_url,
			version = EXCLUDED.version,
			document = EXCLUDED.document,
			fetched_at = EXCLUDED.fetched_at
	`
	if _, err := p.conn.Exec(ctx, query, s.ServiceURL, s.MetadataURL, s.Version, s.Document, toMillis(s.FetchedAt)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the snapshot for serviceURL or ErrNotFound
func (p *PostgresStore) LoadSnapshot(ctx context.Context, serviceURL string) (*Snapshot, error) {
	query := `
		SELECT service_url, metadata_url, version, document, fetched_at
		FROM snapshots
		WHERE service_url = $1
	`

	var s Snapshot
	var fetchedAt int64
	err := p.conn.QueryRow(ctx, query, serviceURL).
		Scan(&s.ServiceURL, &s.MetadataURL, &s.Version, &s.Document, &fetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	s.FetchedAt = fromMillis(fetchedAt)

	return &s, nil
}

// RecordQuery appends q to the history
func (p *PostgresStore) RecordQuery(ctx context.Context, q QueryRecord) error {
	query := `
		INSERT INTO queries (service_url, url, display, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := p.conn.Exec(ctx, query, q.ServiceURL, q.URL, q.Display, toMillis(q.CreatedAt)); err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// RecentQueries lists the newest queries first
func (p *PostgresStore) RecentQueries(ctx context.Context, serviceURL string, limit int) ([]QueryRecord, error) {
	query := `
		SELECT service_url, url, display, created_at
		FROM queries
		WHERE $1 = '' OR service_url = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := p.conn.Query(ctx, query, serviceURL, normalizeLimit(limit))
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

// Close closes the database connection
func (p *PostgresStore) Close(ctx context.Context) error {
	return p.conn.Close(ctx)
}
