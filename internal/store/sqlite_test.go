package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dummycorp/dummybot/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "dummybot.db")
	st, err := NewSQLiteStore(WithSQLiteDSN(dbPath))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStoreIdentityRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetLinkedIdentity("U1")
	if err != nil {
		t.Fatalf("GetLinkedIdentity failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unlinked user, got %+v", got)
	}

	identity := models.LinkedIdentity{
		SlackUserID:     "U1",
		DummyCorpUserID: "alice",
		AccessToken:     "token_abc",
		LinkedAt:        time.Now().UTC().Truncate(time.Second),
	}
	if err := st.LinkIdentity(identity); err != nil {
		t.Fatalf("LinkIdentity failed: %v", err)
	}

	got, err = st.GetLinkedIdentity("U1")
	if err != nil {
		t.Fatalf("GetLinkedIdentity failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected identity after link")
	}
	if got.DummyCorpUserID != "alice" || got.AccessToken != "token_abc" {
		t.Errorf("unexpected identity: %+v", got)
	}

	linked, err := st.IsLinked("U1")
	if err != nil {
		t.Fatalf("IsLinked failed: %v", err)
	}
	if !linked {
		t.Errorf("expected linked user")
	}
}

func TestSQLiteStoreRelinkOverwrites(t *testing.T) {
	st := newTestSQLiteStore(t)

	if err := st.LinkIdentity(models.LinkedIdentity{SlackUserID: "U1", DummyCorpUserID: "alice", AccessToken: "t1", LinkedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("LinkIdentity failed: %v", err)
	}
	if err := st.LinkIdentity(models.LinkedIdentity{SlackUserID: "U1", DummyCorpUserID: "bob", AccessToken: "t2", LinkedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("re-link failed: %v", err)
	}

	identities, err := st.ListLinkedIdentities()
	if err != nil {
		t.Fatalf("ListLinkedIdentities failed: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("expected one record after re-link, got %d", len(identities))
	}
	if identities[0].DummyCorpUserID != "bob" {
		t.Errorf("expected overwritten identity, got %+v", identities[0])
	}
}

func TestSQLiteStoreDeleteAllIdentities(t *testing.T) {
	st := newTestSQLiteStore(t)

	st.LinkIdentity(models.LinkedIdentity{SlackUserID: "U1", DummyCorpUserID: "alice", LinkedAt: time.Now().UTC()})
	st.LinkIdentity(models.LinkedIdentity{SlackUserID: "U2", DummyCorpUserID: "bob", LinkedAt: time.Now().UTC()})

	n, err := st.DeleteAllIdentities()
	if err != nil {
		t.Fatalf("DeleteAllIdentities failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
}

func TestSQLiteStoreMarkProcessedClaim(t *testing.T) {
	st := newTestSQLiteStore(t)

	claimed, err := st.MarkProcessed("1700000000.000100:U1:C1")
	if err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if !claimed {
		t.Errorf("first claim should succeed")
	}

	claimed, err = st.MarkProcessed("1700000000.000100:U1:C1")
	if err != nil {
		t.Fatalf("second MarkProcessed failed: %v", err)
	}
	if claimed {
		t.Errorf("second claim should report duplicate")
	}

	processed, err := st.AlreadyProcessed("1700000000.000100:U1:C1")
	if err != nil {
		t.Fatalf("AlreadyProcessed failed: %v", err)
	}
	if !processed {
		t.Errorf("expected marker to persist")
	}
}
