// Package sqlite is a Gateway backed by an embedded SQLite database file.
//
// The database runs in WAL mode so readers are not blocked by a writer, with
// a busy timeout for concurrent writers. Each document is one row:
//
//	documents(id TEXT PRIMARY KEY, schema_version INTEGER, body BLOB, updated_at TEXT)
//
// body holds the full BSON encoding; schema_version mirrors the document's
// version field so Stats can group without decoding bodies.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
)

// Config configures a DB.
type Config struct {
	// Logger receives connection lifecycle warnings.
	Logger *zap.Logger
}

// DefaultConfig returns a Config that discards logs.
func DefaultConfig() Config {
	return Config{Logger: zap.NewNop()}
}

// DB is a document gateway over one SQLite file. It is safe for concurrent
// use.
type DB struct {
	conn   *sql.DB
	path   string
	logger *zap.Logger
}

var _ store.Gateway = (*DB)(nil)

// Open opens or creates the database at path and initializes the schema.
//
// The caller must call Close when done so the WAL is checkpointed.
func Open(path string) (*DB, error) {
	return OpenWithConfig(context.Background(), path, DefaultConfig())
}

// OpenWithConfig is Open with an explicit context and configuration.
func OpenWithConfig(ctx context.Context, path string, cfg Config) (*DB, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path, logger: cfg.Logger}

	if err := db.InitSchemaContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.logger.Debug("sqlite store opened", zap.String("path", path))
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		db.logger.Warn("failed to checkpoint WAL", zap.String("path", db.path), zap.Error(err))
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the documents table if it doesn't exist. It is
// idempotent.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		schema_version INTEGER NOT NULL DEFAULT 1,
		body BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_version ON documents(schema_version);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Fetch returns the document stored under id.
func (db *DB) Fetch(ctx context.Context, id string) (doc.Raw, error) {
	var body []byte
	err := db.conn.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}

	raw, err := doc.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return raw, nil
}

// Upsert inserts raw or replaces the row with the same id.
func (db *DB) Upsert(ctx context.Context, raw doc.Raw) error {
	id, err := raw.ID()
	if err != nil {
		return err
	}
	version, err := raw.Version()
	if err != nil {
		return fmt.Errorf("document %s: %w", id, err)
	}
	body, err := raw.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}

	query := `
	INSERT INTO documents (id, schema_version, body, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		schema_version = excluded.schema_version,
		body = excluded.body,
		updated_at = excluded.updated_at
	`

	_, err = db.conn.ExecContext(ctx, query, id, version, body, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", id, err)
	}
	return nil
}

// Delete removes the document with id. Deleting a missing id is not an
// error.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// Reset removes every document.
func (db *DB) Reset(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to reset documents: %w", err)
	}
	return nil
}

// Stats counts documents per stored schema version.
func (db *DB) Stats(ctx context.Context) (store.Stats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT schema_version, COUNT(*)
		FROM documents
		GROUP BY schema_version
		ORDER BY schema_version
	`)
	if err != nil {
		return store.Stats{}, fmt.Errorf("failed to query document stats: %w", err)
	}
	defer rows.Close()

	stats := store.Stats{ByVersion: make(map[int]int)}
	for rows.Next() {
		var version, count int
		if err := rows.Scan(&version, &count); err != nil {
			return store.Stats{}, fmt.Errorf("failed to scan document stats: %w", err)
		}
		stats.ByVersion[version] = count
		stats.Documents += count
	}
	if err := rows.Err(); err != nil {
		return store.Stats{}, fmt.Errorf("error iterating document stats: %w", err)
	}
	return stats, nil
}
