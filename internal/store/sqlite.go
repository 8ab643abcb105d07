package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/amishk599/coldmail/internal/embed"
)

// DBFile is the name of the database file inside the store directory.
const DBFile = "vectors.db"

// SQLiteStore persists named vector collections in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the vector database inside dir and
// ensures the schema exists.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			name       TEXT PRIMARY KEY,
			embedder   TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			id         TEXT PRIMARY KEY,
			collection TEXT NOT NULL REFERENCES collections(name),
			document   TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			embedding  BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_embeddings_collection ON embeddings(collection)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating vector schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// GetOrCreateCollection returns the named collection, creating it bound to
// embedder on first use. A collection built with a different embedder is
// rejected because its vectors live in another space.
func (s *SQLiteStore) GetOrCreateCollection(ctx context.Context, name string, embedder embed.Embedder) (*Collection, error) {
	if _, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, embedder) VALUES (?, ?)",
		name, embedder.Name(),
	); err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", name, err)
	}

	var builtWith string
	err := s.db.QueryRowContext(ctx, "SELECT embedder FROM collections WHERE name = ?", name).Scan(&builtWith)
	if err != nil {
		return nil, fmt.Errorf("reading collection %s: %w", name, err)
	}
	if builtWith != embedder.Name() {
		return nil, fmt.Errorf("collection %s was built with embedder %q, not %q; delete it or switch embedder",
			name, builtWith, embedder.Name())
	}

	return &Collection{name: name, db: s.db, embedder: embedder}, nil
}

// DeleteCollection removes a collection and all of its entries.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE collection = ?", name); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting entries of %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name = ?", name); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
