package history

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestSaveAndGetExchange(t *testing.T) {
	s := openTestStore(t)

	e := Exchange{
		ID:             "ex-1",
		CreatedAt:      time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC),
		ConversationID: "default",
		UserInput:      "remind me to call mom at 2pm",
		Reply:          "Got it.",
		Tone:           "calm",
		Confidence:     0.92,
	}
	if err := s.SaveExchange(e); err != nil {
		t.Fatalf("SaveExchange: %v", err)
	}

	got, err := s.GetExchange("ex-1")
	if err != nil {
		t.Fatalf("GetExchange: %v", err)
	}
	if got.UserInput != e.UserInput || got.Reply != e.Reply || got.Tone != e.Tone {
		t.Errorf("GetExchange = %+v, want %+v", got, e)
	}
	if !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
	if got.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", got.Confidence)
	}
}

func TestGetExchange_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetExchange("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetExchange error = %v, want ErrNotFound", err)
	}
}

func TestSaveExchange_DefaultConversation(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveExchange(Exchange{ID: "ex-1", CreatedAt: time.Now(), UserInput: "hi", Reply: "hello"}); err != nil {
		t.Fatalf("SaveExchange: %v", err)
	}

	got, err := s.GetExchange("ex-1")
	if err != nil {
		t.Fatalf("GetExchange: %v", err)
	}
	if got.ConversationID != "default" {
		t.Errorf("ConversationID = %q, want %q", got.ConversationID, "default")
	}
}

func TestRecentExchanges_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	for i := range 5 {
		e := Exchange{
			ID:        fmt.Sprintf("ex-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UserInput: fmt.Sprintf("input %d", i),
			Reply:     "ok",
		}
		if err := s.SaveExchange(e); err != nil {
			t.Fatalf("SaveExchange %d: %v", i, err)
		}
	}

	got, err := s.RecentExchanges(3)
	if err != nil {
		t.Fatalf("RecentExchanges: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d exchanges, want 3", len(got))
	}
	for i, wantID := range []string{"ex-4", "ex-3", "ex-2"} {
		if got[i].ID != wantID {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, wantID)
		}
	}
}

func TestRecentExchanges_Empty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.RecentExchanges(10)
	if err != nil {
		t.Fatalf("RecentExchanges: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d exchanges, want 0", len(got))
	}
}
