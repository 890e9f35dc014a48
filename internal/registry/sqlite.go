package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
)

// SQLiteStore keeps mappings in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates it
func OpenSQLite(path string, log *logger.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure registry database: %w", err)
	}

	if err := applyMigrations(db, log); err != nil {
		db.Close()
		return nil, err
	}

	log.Infof("Registry opened (sqlite: %s)", path)
	return &SQLiteStore{db: db, log: log}, nil
}

// Get implements Registry
func (s *SQLiteStore) Get(ctx context.Context, repoID int64) (fn.Option[int64], error) {
	var chatID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT chat_id FROM repo_chat_mappings WHERE repo_id = ?", repoID,
	).Scan(&chatID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fn.None[int64](), nil
	case err != nil:
		return fn.None[int64](), fmt.Errorf("lookup repo %d: %w", repoID, err)
	}
	return fn.Some(chatID), nil
}

// Put implements Registry
func (s *SQLiteStore) Put(ctx context.Context, repoID, chatID int64) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repo_chat_mappings (repo_id, chat_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(repo_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			updated_at = excluded.updated_at`,
		repoID, chatID, now, now,
	)
	if err != nil {
		return fmt.Errorf("register repo %d: %w", repoID, err)
	}

	s.log.Debugf("Registered repo %d -> chat %d", repoID, chatID)
	return nil
}

// List implements Registry
func (s *SQLiteStore) List(ctx context.Context) ([]models.RepoChatMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT repo_id, chat_id FROM repo_chat_mappings ORDER BY repo_id")
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	mappings := make([]models.RepoChatMapping, 0)
	for rows.Next() {
		var m models.RepoChatMapping
		if err := rows.Scan(&m.RepoID, &m.ChatID); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// Close implements Registry
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
