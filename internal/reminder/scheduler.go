// Package reminder owns the reminder records in the memory store and the two
// background polls that detect due reminders: the Scheduler's marking poll and
// the Notifier's removal poll. The polls run independently and may observe the
// same reminder; removal is idempotent, so double detection is harmless.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/ren/internal/store"
)

const defaultCheckInterval = 30 * time.Second

// ReminderStore is the slice of store behavior the polls and the CRUD path
// need. Implemented by store.Store.
type ReminderStore interface {
	AddReminder(r store.Reminder)
	Reminders() []store.Reminder
	UpdateReminders(fn func([]store.Reminder) []store.Reminder)
}

// Scheduler owns reminder CRUD plus a periodic poll that flags reminders whose
// normalized time has arrived. It never removes reminders; that is the
// Notifier's job.
type Scheduler struct {
	store    ReminderStore
	interval time.Duration
	clock    Clock
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a Scheduler polling at the given interval.
// If interval <= 0, it defaults to 30s.
func NewScheduler(st ReminderStore, interval time.Duration) *Scheduler {
	return NewSchedulerWithClock(st, interval, realClock{})
}

// NewSchedulerWithClock creates a Scheduler with a custom clock (for testing).
func NewSchedulerWithClock(st ReminderStore, interval time.Duration, clock Clock) *Scheduler {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Scheduler{
		store:    st,
		interval: interval,
		clock:    clock,
		logger:   slog.Default(),
	}
}

// Schedule records a new reminder for user. timeText is stored exactly as
// given; a format that never normalizes simply never fires.
func (s *Scheduler) Schedule(user, task, timeText string) store.Reminder {
	r := store.Reminder{
		ID:   fmt.Sprintf("%s-%d", user, s.clock.Now().Unix()),
		User: user,
		Task: task,
		Time: timeText,
	}
	s.store.AddReminder(r)
	s.logger.Info("scheduled reminder", "id", r.ID, "task", r.Task, "time", r.Time)
	return r
}

// DeleteReminderByID removes the reminder with the given id, reporting
// whether a removal occurred.
func (s *Scheduler) DeleteReminderByID(id string) bool {
	removed := false
	s.store.UpdateReminders(func(rs []store.Reminder) []store.Reminder {
		kept := make([]store.Reminder, 0, len(rs))
		for _, r := range rs {
			if r.ID == id {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		return kept
	})
	if removed {
		s.logger.Info("deleted reminder", "id", id)
	} else {
		s.logger.Info("reminder id not found", "id", id)
	}
	return removed
}

// Start launches the marking poll. Calling Start while already running is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop cancels the poll and blocks until the loop has exited, so "stopped"
// means no further store mutations from this poll. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce performs a single marking pass: every unnotified reminder whose
// normalized time equals the current wall-clock minute gets notified=true.
// The list is written back whether or not anything changed.
func (s *Scheduler) RunOnce() {
	now := s.clock.Now().Format("15:04")
	s.store.UpdateReminders(func(rs []store.Reminder) []store.Reminder {
		for i, r := range rs {
			if r.Notified {
				continue
			}
			norm, ok := NormalizeTime(r.Time)
			if !ok || norm != now {
				continue
			}
			rs[i].Notified = true
			s.logger.Info("reminder due", "id", r.ID, "task", r.Task, "time", r.Time)
		}
		return rs
	})
}
