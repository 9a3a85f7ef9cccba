package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"assistbot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.TodoStore on a local SQLite file.
// Each sender has one row; the list is stored as a JSON array.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS todo_lists (
		sender_id   TEXT PRIMARY KEY,
		items       TEXT NOT NULL DEFAULT '[]',
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, senderID string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT items FROM todo_lists WHERE sender_id = ?`, senderID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		return nil, domain.Fail("storage", domain.ReasonUnavailable, err)
	}

	items := []string{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, domain.Fail("storage", domain.ReasonMalformed, fmt.Errorf("decode items for %s: %w", senderID, err))
		}
	}
	return items, nil
}

func (s *SQLiteStore) Put(ctx context.Context, senderID string, items []string) error {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return domain.Fail("storage", domain.ReasonMalformed, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO todo_lists (sender_id, items, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(sender_id) DO UPDATE SET items = excluded.items, updated_at = excluded.updated_at`,
		senderID, string(data), time.Now(),
	)
	if err != nil {
		return domain.Fail("storage", domain.ReasonUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
