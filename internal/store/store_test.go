package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, dir
}

func TestSetGetRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)

	s.Set("user_name", "Avery")

	var name string
	if !s.Get("user_name", &name) {
		t.Fatal("Get returned false for existing key")
	}
	if name != "Avery" {
		t.Errorf("name = %q, want %q", name, "Avery")
	}

	var missing string
	if s.Get("nope", &missing) {
		t.Error("Get returned true for absent key")
	}
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	s, dir := openTestStore(t)
	s.Set("user_name", "Avery")
	s.AddReminder(Reminder{ID: "avery-1", User: "avery", Task: "call mom", Time: "2:00 PM"})

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}

	var name string
	if !reopened.Get("user_name", &name) || name != "Avery" {
		t.Errorf("user_name after reopen = %q, want %q", name, "Avery")
	}
	rs := reopened.Reminders()
	if len(rs) != 1 || rs[0].Task != "call mom" {
		t.Errorf("reminders after reopen = %+v, want one 'call mom'", rs)
	}
}

func TestDelete(t *testing.T) {
	s, _ := openTestStore(t)
	s.Set("k", 1)
	s.Delete("k")

	var v int
	if s.Get("k", &v) {
		t.Error("Get returned true after Delete")
	}

	// Deleting a missing key must not panic or write.
	s.Delete("never-set")
}

func TestRemindersDefaultEmpty(t *testing.T) {
	s, _ := openTestStore(t)
	if rs := s.Reminders(); len(rs) != 0 {
		t.Errorf("Reminders on empty store = %+v, want empty", rs)
	}
}

func TestDeleteReminder(t *testing.T) {
	s, _ := openTestStore(t)
	s.AddReminder(Reminder{ID: "a-1", Task: "one"})
	s.AddReminder(Reminder{ID: "a-2", Task: "two"})

	if !s.DeleteReminder("a-1") {
		t.Fatal("DeleteReminder returned false for existing id")
	}
	if s.DeleteReminder("a-1") {
		t.Error("DeleteReminder returned true for already-removed id")
	}

	rs := s.Reminders()
	if len(rs) != 1 || rs[0].ID != "a-2" {
		t.Errorf("remaining reminders = %+v, want only a-2", rs)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, memoryFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open with corrupt file: %v", err)
	}
	if rs := s.Reminders(); len(rs) != 0 {
		t.Errorf("Reminders from corrupt file = %+v, want empty", rs)
	}
}

func TestConcurrentReminderUpdates(t *testing.T) {
	s, _ := openTestStore(t)

	const goroutines = 8
	const perGoroutine = 20

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				s.AddReminder(Reminder{ID: string(rune('a'+g)) + "-" + string(rune('0'+i%10))})
				// Interleave a full-list rewrite, like the scheduler poll does.
				s.UpdateReminders(func(rs []Reminder) []Reminder { return rs })
			}
		}(g)
	}
	wg.Wait()

	if got := len(s.Reminders()); got != goroutines*perGoroutine {
		t.Errorf("reminder count = %d, want %d (lost update)", got, goroutines*perGoroutine)
	}
}
