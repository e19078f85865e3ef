// Package store provides storage backends for dummybot.
//
// This file implements a PostgreSQL-backed store for linked identities and
// processed-event markers.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/dummycorp/dummybot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) IsLinked(slackUserID string) (bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT slack_user_id FROM linked_identities WHERE slack_user_id = $1`, slackUserID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("linked check failed: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) GetLinkedIdentity(slackUserID string) (*models.LinkedIdentity, error) {
	var identity models.LinkedIdentity
	err := s.db.QueryRow(
		`SELECT slack_user_id, dummycorp_user_id, access_token, linked_at FROM linked_identities WHERE slack_user_id = $1`,
		slackUserID,
	).Scan(&identity.SlackUserID, &identity.DummyCorpUserID, &identity.AccessToken, &identity.LinkedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore.GetLinkedIdentity: not found", "slackUserID", slackUserID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetLinkedIdentity failed", "error", err, "slackUserID", slackUserID)
		return nil, fmt.Errorf("get linked identity failed: %w", err)
	}
	return &identity, nil
}

func (s *PostgresStore) LinkIdentity(identity models.LinkedIdentity) error {
	_, err := s.db.Exec(
		`INSERT INTO linked_identities (slack_user_id, dummycorp_user_id, access_token, linked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (slack_user_id) DO UPDATE SET
		   dummycorp_user_id = EXCLUDED.dummycorp_user_id,
		   access_token = EXCLUDED.access_token,
		   linked_at = EXCLUDED.linked_at`,
		identity.SlackUserID, identity.DummyCorpUserID, identity.AccessToken, identity.LinkedAt,
	)
	if err != nil {
		slog.Error("PostgresStore.LinkIdentity failed", "error", err, "slackUserID", identity.SlackUserID)
		return fmt.Errorf("link identity failed: %w", err)
	}
	slog.Debug("PostgresStore.LinkIdentity succeeded", "slackUserID", identity.SlackUserID, "dummyCorpUserID", identity.DummyCorpUserID)
	return nil
}

func (s *PostgresStore) ListLinkedIdentities() ([]models.LinkedIdentity, error) {
	rows, err := s.db.Query(`SELECT slack_user_id, dummycorp_user_id, access_token, linked_at FROM linked_identities`)
	if err != nil {
		slog.Error("PostgresStore.ListLinkedIdentities query failed", "error", err)
		return nil, fmt.Errorf("failed to query linked identities: %w", err)
	}
	defer rows.Close()

	var identities []models.LinkedIdentity
	for rows.Next() {
		var identity models.LinkedIdentity
		if err := rows.Scan(&identity.SlackUserID, &identity.DummyCorpUserID, &identity.AccessToken, &identity.LinkedAt); err != nil {
			slog.Error("PostgresStore.ListLinkedIdentities scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan linked identity row: %w", err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate linked identity rows: %w", err)
	}
	return identities, nil
}

func (s *PostgresStore) DeleteAllIdentities() (int, error) {
	result, err := s.db.Exec(`DELETE FROM linked_identities`)
	if err != nil {
		slog.Error("PostgresStore.DeleteAllIdentities failed", "error", err)
		return 0, fmt.Errorf("delete all identities failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete all identities rows affected check failed: %w", err)
	}
	slog.Debug("PostgresStore.DeleteAllIdentities succeeded", "deleted", n)
	return int(n), nil
}

func (s *PostgresStore) AlreadyProcessed(eventID string) (bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT event_id FROM processed_events WHERE event_id = $1`, eventID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) MarkProcessed(eventID string) (bool, error) {
	result, err := s.db.Exec(
		`INSERT INTO processed_events (event_id, processed_at) VALUES ($1, NOW()) ON CONFLICT (event_id) DO NOTHING`,
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

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore.Close: closing database connection")
	return s.db.Close()
}
