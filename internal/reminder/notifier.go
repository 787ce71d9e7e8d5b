package reminder

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/ren/internal/store"
)

const defaultNotifyInterval = 10 * time.Second

// NotifyFunc receives the formatted message for a due reminder. It is invoked
// synchronously from the polling goroutine and must not block indefinitely.
type NotifyFunc func(message string)

// Notifier is the second, independently started poll. It detects due
// reminders, invokes the notification callback, and removes fired reminders
// from the store. A reminder is due when its raw wall-clock time matches the
// current minute, or when the Scheduler's poll has already flagged it — either
// way it is delivered once and dropped.
type Notifier struct {
	store    ReminderStore
	notify   NotifyFunc
	interval time.Duration
	clock    Clock
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotifier creates a Notifier polling at the given interval.
// If interval <= 0, it defaults to 10s.
func NewNotifier(st ReminderStore, notify NotifyFunc, interval time.Duration) *Notifier {
	return NewNotifierWithClock(st, notify, interval, realClock{})
}

// NewNotifierWithClock creates a Notifier with a custom clock (for testing).
func NewNotifierWithClock(st ReminderStore, notify NotifyFunc, interval time.Duration, clock Clock) *Notifier {
	if interval <= 0 {
		interval = defaultNotifyInterval
	}
	return &Notifier{
		store:    st,
		notify:   notify,
		interval: interval,
		clock:    clock,
		logger:   slog.Default(),
	}
}

// Start launches the notification poll. Calling Start while already running
// is a no-op.
func (n *Notifier) Start() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.done = make(chan struct{})
	go n.run(ctx, n.done)
}

// Stop cancels the poll and blocks until the loop has exited. Safe to call
// repeatedly.
func (n *Notifier) Stop() {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.cancel, n.done = nil, nil
	n.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (n *Notifier) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.RunOnce()
		}
	}
}

// RunOnce performs a single notification pass: due reminders are excluded
// from the written-back list and their messages delivered, in store order.
// Only the reminders that did not fire are retained, so a reminder absent
// from the list is simply skipped on a later pass.
func (n *Notifier) RunOnce() {
	now := n.clock.Now()

	var fired []store.Reminder
	n.store.UpdateReminders(func(rs []store.Reminder) []store.Reminder {
		kept := make([]store.Reminder, 0, len(rs))
		for _, r := range rs {
			if r.Notified || n.isDue(r.Time, now) {
				fired = append(fired, r)
				continue
			}
			kept = append(kept, r)
		}
		return kept
	})

	// Callbacks run outside the store lock.
	for _, r := range fired {
		n.logger.Info("firing reminder", "id", r.ID, "task", r.Task)
		n.notify("⏰ Reminder: " + r.Task)
	}
}

// isDue reports whether a raw "H:MM AM/PM" time string names the current
// minute. Spacing is stripped before parsing, same as NormalizeTime, so
// "2:00PM" and "2:00 PM" behave alike. Malformed times are logged and never
// due.
func (n *Notifier) isDue(timeText string, now time.Time) bool {
	if timeText == "" {
		return false
	}
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(timeText), " ", ""))
	t, err := time.Parse("3:04PM", cleaned)
	if err != nil {
		n.logger.Warn("invalid reminder time format", "time", timeText)
		return false
	}
	return t.Hour() == now.Hour() && t.Minute() == now.Minute()
}
