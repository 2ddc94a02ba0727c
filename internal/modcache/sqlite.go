package modcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS section_sources (
		output_root TEXT NOT NULL,
		version TEXT NOT NULL,
		section TEXT NOT NULL,
		source TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (output_root, version, section)
	);
	CREATE TABLE IF NOT EXISTS modification_records (
		output_root TEXT NOT NULL,
		version TEXT NOT NULL,
		section TEXT NOT NULL,
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (output_root, version, section, path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the record for key; found is false when none was saved.
func (s *SQLiteStore) Load(ctx context.Context, key Key) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec Record
	err := s.db.QueryRowContext(ctx,
		"SELECT source FROM section_sources WHERE output_root = ? AND version = ? AND section = ?",
		key.OutputRoot, key.Version, key.Section,
	).Scan(&rec.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query source: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT path, fingerprint FROM modification_records WHERE output_root = ? AND version = ? AND section = ?",
		key.OutputRoot, key.Version, key.Section,
	)
	if err != nil {
		return Record{}, false, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rec.Files = map[string]string{}
	for rows.Next() {
		var path, fp string
		if err := rows.Scan(&path, &fp); err != nil {
			return Record{}, false, fmt.Errorf("scan record: %w", err)
		}
		rec.Files[path] = fp
	}
	if err := rows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("iterate records: %w", err)
	}
	return rec, true, nil
}

// Save replaces the record for key.
func (s *SQLiteStore) Save(ctx context.Context, key Key, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	args := []any{key.OutputRoot, key.Version, key.Section}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM modification_records WHERE output_root = ? AND version = ? AND section = ?", args...); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO section_sources (output_root, version, section, source, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (output_root, version, section) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		key.OutputRoot, key.Version, key.Section, rec.Source, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO modification_records (output_root, version, section, path, fingerprint) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for path, fp := range rec.Files {
		if _, err := stmt.ExecContext(ctx, key.OutputRoot, key.Version, key.Section, path, fp); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
