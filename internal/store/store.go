// Package store provides storage backends for dummybot.
//
// It persists linked identities and processed-event markers behind a single
// Store interface with SQLite, Postgres, and in-memory implementations. The
// backend is selected by DSN detection at startup.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/dummycorp/dummybot/internal/models"
)

// Store is the narrow persistence interface consumed by the orchestrator and
// the API server. It combines the identity store and the dedup ledger; the
// callers never assume a particular storage technology.
type Store interface {
	// IsLinked reports whether the Slack user has a linked identity.
	IsLinked(slackUserID string) (bool, error)

	// GetLinkedIdentity returns the linked identity for a Slack user, or nil
	// when the user has not linked an account.
	GetLinkedIdentity(slackUserID string) (*models.LinkedIdentity, error)

	// LinkIdentity stores an identity link, overwriting any prior record for
	// the same Slack user. Linking an already-linked user is not an error.
	LinkIdentity(identity models.LinkedIdentity) error

	// ListLinkedIdentities returns all linked identities (admin use).
	ListLinkedIdentities() ([]models.LinkedIdentity, error)

	// DeleteAllIdentities removes every linked identity and returns how many
	// records were deleted (admin bulk clear).
	DeleteAllIdentities() (int, error)

	// AlreadyProcessed reports whether an event marker exists.
	AlreadyProcessed(eventID string) (bool, error)

	// MarkProcessed records an event marker. The insert is an atomic
	// check-and-set: it returns false when the marker already existed, so two
	// concurrent deliveries of the same event cannot both claim it.
	MarkProcessed(eventID string) (bool, error)

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration for store construction.
type Opts struct {
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a Postgres connection string as the store DSN.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for Postgres-style DSNs and "sqlite" for
// anything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore keeps identities and event markers in process memory. It is
// suitable for tests and local development only: state does not survive the
// process, so independent invocations of the event handler would not share
// dedup markers or identity links.
type InMemoryStore struct {
	mu         sync.Mutex
	identities map[string]models.LinkedIdentity
	processed  map[string]time.Time
}

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		identities: make(map[string]models.LinkedIdentity),
		processed:  make(map[string]time.Time),
	}
}

func (s *InMemoryStore) IsLinked(slackUserID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.identities[slackUserID]
	return ok, nil
}

func (s *InMemoryStore) GetLinkedIdentity(slackUserID string) (*models.LinkedIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[slackUserID]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

func (s *InMemoryStore) LinkIdentity(identity models.LinkedIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity.LinkedAt.IsZero() {
		identity.LinkedAt = time.Now().UTC()
	}
	s.identities[identity.SlackUserID] = identity
	return nil
}

func (s *InMemoryStore) ListLinkedIdentities() ([]models.LinkedIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identities := make([]models.LinkedIdentity, 0, len(s.identities))
	for _, identity := range s.identities {
		identities = append(identities, identity)
	}
	return identities, nil
}

func (s *InMemoryStore) DeleteAllIdentities() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.identities)
	s.identities = make(map[string]models.LinkedIdentity)
	return n, nil
}

func (s *InMemoryStore) AlreadyProcessed(eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[eventID]
	return ok, nil
}

func (s *InMemoryStore) MarkProcessed(eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[eventID]; ok {
		return false, nil
	}
	s.processed[eventID] = time.Now().UTC()
	return true, nil
}

func (s *InMemoryStore) Close() error { return nil }
