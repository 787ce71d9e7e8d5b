// Package dialogue drives the multi-turn slot-filling flow for the reminder
// intents. Each conversation moves through Idle -> Collecting -> Confirming
// and back to Idle on confirmation, refusal, or cancellation.
package dialogue

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kalambet/ren/internal/intent"
	"github.com/kalambet/ren/internal/store"
)

// Classifier extracts an intent and slot values from an utterance.
// Implemented by the rule-based classifier in internal/intent.
type Classifier interface {
	Classify(text string) intent.Intent
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(text string) intent.Intent

func (f ClassifierFunc) Classify(text string) intent.Intent { return f(text) }

// Scheduler is the reminder persistence surface the flow needs.
type Scheduler interface {
	Schedule(user, task, timeText string) store.Reminder
	DeleteReminderByID(id string) bool
}

// ReminderLister reads the stored reminders for cancel matching.
type ReminderLister interface {
	Reminders() []store.Reminder
}

// requiredSlots is the fixed slot set for set_reminder, in prompt order.
var requiredSlots = []string{intent.SlotTask, intent.SlotTime}

var affirmatives = []string{"yes", "yeah", "correct", "yep", "sure"}

var negatives = []string{"no", "nah", "nope", "incorrect"}

// state is the per-conversation dialogue state. While an intent is active,
// pending and collected partition the required slot set: a slot is in exactly
// one of the two.
type state struct {
	intent    string
	pending   []string
	collected map[string]string
}

// Manager holds one dialogue state per conversation, keyed by conversation
// ID, so concurrent conversations cannot cross-talk.
type Manager struct {
	classifier Classifier
	scheduler  Scheduler
	reminders  ReminderLister
	logger     *slog.Logger

	mu     sync.Mutex
	states map[string]*state
}

// NewManager creates a Manager with no active conversations.
func NewManager(classifier Classifier, scheduler Scheduler, reminders ReminderLister) *Manager {
	return &Manager{
		classifier: classifier,
		scheduler:  scheduler,
		reminders:  reminders,
		logger:     slog.Default(),
		states:     make(map[string]*state),
	}
}

// HandleInput runs one dialogue turn for the given conversation. handled is
// false when the input is not part of a reminder flow and should be forwarded
// to the general reply generator. userName may be empty.
func (m *Manager) HandleInput(conversationID, text, userName string) (reply string, handled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in := m.classifier.Classify(text)

	// Cancellation is independent of any in-progress flow.
	if in.Name == intent.CancelReminder {
		return m.cancelReminder(in.Slots), true
	}

	st := m.states[conversationID]
	if st != nil && st.intent == intent.SetReminder {
		return m.continueSetReminder(conversationID, st, text, userName), true
	}

	if in.Name == intent.SetReminder {
		st = &state{
			intent:    intent.SetReminder,
			pending:   append([]string(nil), requiredSlots...),
			collected: make(map[string]string),
		}
		for _, slot := range requiredSlots {
			if v := in.Slots[slot]; v != "" {
				st.fill(slot, v)
			}
		}
		m.states[conversationID] = st
		return m.promptNextSlot(st, userName), true
	}

	return "", false
}

// cancelReminder deletes the first stored reminder whose task contains the
// extracted task (case-insensitive), additionally requiring a time substring
// match when a time was extracted.
func (m *Manager) cancelReminder(slots map[string]string) string {
	task := slots[intent.SlotTask]
	timeText := strings.ToLower(strings.TrimSpace(slots[intent.SlotTime]))

	if task != "" {
		taskLower := strings.ToLower(task)
		for _, r := range m.reminders.Reminders() {
			if !strings.Contains(strings.ToLower(r.Task), taskLower) {
				continue
			}
			if timeText != "" && !strings.Contains(strings.ToLower(r.Time), timeText) {
				continue
			}
			m.scheduler.DeleteReminderByID(r.ID)
			return fmt.Sprintf("Got it. I've removed the reminder to '%s' at %s.", r.Task, r.Time)
		}
	}
	return "I couldn't find a matching reminder to cancel. Want to try again?"
}

// continueSetReminder handles a turn while the conversation is Collecting or
// Confirming.
func (m *Manager) continueSetReminder(conversationID string, st *state, text, userName string) string {
	lower := strings.ToLower(text)

	if containsAny(lower, affirmatives) {
		task := st.collected[intent.SlotTask]
		timeText := st.collected[intent.SlotTime]
		user := userName
		if user == "" {
			user = "unknown"
		}
		m.scheduler.Schedule(user, task, timeText)
		delete(m.states, conversationID)
		return fmt.Sprintf("Great! %sI've scheduled your reminder to '%s' at %s.", namePrefix(userName), task, timeText)
	}

	if containsAny(lower, negatives) {
		delete(m.states, conversationID)
		return "Okay, let's try again. What would you like me to remind you about?"
	}

	// Treat the input as answers to the outstanding slots.
	slots := intent.ExtractSlots(text)
	if v := slots[intent.SlotTime]; v != "" && st.isPending(intent.SlotTime) {
		st.fill(intent.SlotTime, v)
	}
	if st.isPending(intent.SlotTask) {
		// Whatever remains of the answer is the task, even when empty.
		st.fill(intent.SlotTask, slots[intent.SlotTask])
	}

	if len(st.pending) > 0 {
		return m.promptNextSlot(st, userName)
	}
	return fmt.Sprintf("%sJust to confirm, you want to '%s' at %s. Is that right? (yes/no)",
		namePrefix(userName), st.collected[intent.SlotTask], st.collected[intent.SlotTime])
}

// promptNextSlot asks for the first missing slot, or for confirmation when
// nothing is pending.
func (m *Manager) promptNextSlot(st *state, userName string) string {
	if len(st.pending) == 0 {
		return fmt.Sprintf("%sI see you want to '%s' at %s. Is that correct? (yes/no)",
			namePrefix(userName), st.collected[intent.SlotTask], st.collected[intent.SlotTime])
	}
	switch st.pending[0] {
	case intent.SlotTask:
		return "What would you like me to remind you about?"
	case intent.SlotTime:
		return "At what time should I remind you?"
	}
	return ""
}

// Reset clears any in-progress state for the conversation.
func (m *Manager) Reset(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, conversationID)
}

func (s *state) isPending(slot string) bool {
	for _, p := range s.pending {
		if p == slot {
			return true
		}
	}
	return false
}

// fill moves slot from pending to collected with the given value.
func (s *state) fill(slot, value string) {
	s.collected[slot] = value
	for i, p := range s.pending {
		if p == slot {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func namePrefix(userName string) string {
	if userName == "" {
		return ""
	}
	return userName + ", "
}

func containsAny(lower string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
