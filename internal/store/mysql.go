package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = sqlDialect{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			service_url  VARCHAR(768) NOT NULL PRIMARY KEY,
			metadata_url TEXT NOT NULL,
			version      VARCHAR(16) NOT NULL,
			document     LONGBLOB NOT NULL,
			fetched_at   BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id          BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			service_url VARCHAR(768) NOT NULL,
			url         TEXT NOT NULL,
			display     TEXT NOT NULL,
			created_at  BIGINT NOT NULL,
			INDEX idx_queries_service (service_url)
		)`,
	},
	saveSnapshot: `
		INSERT INTO snapshots (service_url, metadata_url, version, document, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			metadata_url = VALUES(metadata_url),
			version = VALUES(version),
			document = VALUES(document),
			fetched_at = VALUES(fetched_at)
	`,
}

// NewMySQLStore connects to MySQL with a go-sql-driver DSN
func NewMySQLStore(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := newSQLStore(ctx, db, mysqlDialect)
	if err != nil {
		return nil, err
	}
	return s, nil
}
