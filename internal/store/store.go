// Package store implements the persistent memory document shared by the
// assistant components: a single JSON object snapshotted to disk on every
// mutation. It holds arbitrary session keys plus the reminder list.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const memoryFile = "ren_memory.json"

const remindersKey = "reminders"

// Store is the single writer of the backing file. One mutex guards every
// read-modify-write of the document so a foreground mutation cannot lose an
// update against the background reminder polls.
//
// Persistence failures are logged and swallowed: the in-memory document stays
// authoritative for the rest of the process lifetime so the assistant remains
// responsive even when the disk is not.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  map[string]json.RawMessage
}

// Open loads the memory document from dataDir/ren_memory.json, creating the
// directory as needed. A missing file yields an empty document; an unreadable
// or malformed one is logged and replaced on the next mutation.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{
		path: filepath.Join(dataDir, memoryFile),
		doc:  make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("loading memory file", "path", s.path, "error", err)
		}
		return s, nil
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		slog.Warn("parsing memory file, starting empty", "path", s.path, "error", err)
		s.doc = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Get unmarshals the value stored under key into v. It returns false when the
// key is absent or the stored value does not decode into v.
func (s *Store) Get(key string, v any) bool {
	s.mu.RLock()
	raw, ok := s.doc[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Warn("decoding stored value", "key", key, "error", err)
		return false
	}
	return true
}

// Set replaces the value under key and rewrites the whole document to disk.
func (s *Store) Set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("encoding value", "key", key, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc[key] = raw
	s.persistLocked()
}

// Delete removes key from the document. Deleting an absent key is a no-op and
// does not touch the disk.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doc[key]; !ok {
		return
	}
	delete(s.doc, key)
	s.persistLocked()
}

// Reminders returns the stored reminder list. An absent "reminders" key is an
// empty list.
func (s *Store) Reminders() []Reminder {
	var rs []Reminder
	s.Get(remindersKey, &rs)
	return rs
}

// UpdateReminders applies fn to the reminder list and writes the result back,
// holding the store lock across the whole read-modify-write. Both background
// polls and the foreground add/delete paths go through here, which is what
// keeps a concurrent AddReminder from being lost under a poll's write-back.
func (s *Store) UpdateReminders(fn func([]Reminder) []Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rs []Reminder
	if raw, ok := s.doc[remindersKey]; ok {
		if err := json.Unmarshal(raw, &rs); err != nil {
			slog.Warn("decoding stored reminders", "error", err)
			rs = nil
		}
	}

	rs = fn(rs)
	if rs == nil {
		rs = []Reminder{}
	}

	raw, err := json.Marshal(rs)
	if err != nil {
		slog.Warn("encoding reminders", "error", err)
		return
	}
	s.doc[remindersKey] = raw
	s.persistLocked()
}

// AddReminder appends r to the reminder list.
func (s *Store) AddReminder(r Reminder) {
	s.UpdateReminders(func(rs []Reminder) []Reminder {
		return append(rs, r)
	})
}

// DeleteReminder removes the reminder with the given id, reporting whether a
// removal occurred.
func (s *Store) DeleteReminder(id string) bool {
	removed := false
	s.UpdateReminders(func(rs []Reminder) []Reminder {
		kept := make([]Reminder, 0, len(rs))
		for _, r := range rs {
			if r.ID == id {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		return kept
	})
	return removed
}

// persistLocked writes the full document to disk. Callers hold s.mu.
func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		slog.Warn("encoding memory document", "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		slog.Warn("writing memory file", "path", s.path, "error", err)
	}
}
