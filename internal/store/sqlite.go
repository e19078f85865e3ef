// Package store provides storage backends for dummybot.
//
// This file implements a SQLite-backed store for linked identities and
// processed-event markers.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/dummycorp/dummybot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) IsLinked(slackUserID string) (bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT slack_user_id FROM linked_identities WHERE slack_user_id = ?`, slackUserID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("linked check failed: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) GetLinkedIdentity(slackUserID string) (*models.LinkedIdentity, error) {
	var identity models.LinkedIdentity
	err := s.db.QueryRow(
		`SELECT slack_user_id, dummycorp_user_id, access_token, linked_at FROM linked_identities WHERE slack_user_id = ?`,
		slackUserID,
	).Scan(&identity.SlackUserID, &identity.DummyCorpUserID, &identity.AccessToken, &identity.LinkedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore.GetLinkedIdentity: not found", "slackUserID", slackUserID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetLinkedIdentity failed", "error", err, "slackUserID", slackUserID)
		return nil, fmt.Errorf("get linked identity failed: %w", err)
	}
	return &identity, nil
}

func (s *SQLiteStore) LinkIdentity(identity models.LinkedIdentity) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO linked_identities (slack_user_id, dummycorp_user_id, access_token, linked_at) VALUES (?, ?, ?, ?)`,
		identity.SlackUserID, identity.DummyCorpUserID, identity.AccessToken, identity.LinkedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore.LinkIdentity failed", "error", err, "slackUserID", identity.SlackUserID)
		return fmt.Errorf("link identity failed: %w", err)
	}
	slog.Debug("SQLiteStore.LinkIdentity succeeded", "slackUserID", identity.SlackUserID, "dummyCorpUserID", identity.DummyCorpUserID)
	return nil
}

func (s *SQLiteStore) ListLinkedIdentities() ([]models.LinkedIdentity, error) {
	rows, err := s.db.Query(`SELECT slack_user_id, dummycorp_user_id, access_token, linked_at FROM linked_identities`)
	if err != nil {
		slog.Error("SQLiteStore.ListLinkedIdentities query failed", "error", err)
		return nil, fmt.Errorf("failed to query linked identities: %w", err)
	}
	defer rows.Close()

	var identities []models.LinkedIdentity
	for rows.Next() {
		var identity models.LinkedIdentity
		if err := rows.Scan(&identity.SlackUserID, &identity.DummyCorpUserID, &identity.AccessToken, &identity.LinkedAt); err != nil {
			slog.Error("SQLiteStore.ListLinkedIdentities scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan linked identity row: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate linked identity rows: %w", err)
	}
	return identities, nil
}

func (s *SQLiteStore) DeleteAllIdentities() (int, error) {
	result, err := s.db.Exec(`DELETE FROM linked_identities`)
	if err != nil {
		slog.Error("SQLiteStore.DeleteAllIdentities failed", "error", err)
		return 0, fmt.Errorf("delete all identities failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete all identities rows affected check failed: %w", err)
	}
	slog.Debug("SQLiteStore.DeleteAllIdentities succeeded", "deleted", n)
	return int(n), nil
}

func (s *SQLiteStore) AlreadyProcessed(eventID string) (bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT event_id FROM processed_events WHERE event_id = ?`, eventID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) MarkProcessed(eventID string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO processed_events (event_id, processed_at) VALUES (?, CURRENT_TIMESTAMP)`,
		eventID,
	)
	if err != nil {
		return false, fmt.Errorf("mark processed failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup rows affected check failed: %w", err)
	}
	return n > 0, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore.Close: closing database connection")
	return s.db.Close()
}
