// Package intent classifies user utterances against fixed phrase sets and
// pulls out the reminder slots (task, time). It is deliberately not an NLU
// system; anything the patterns miss falls through to the language model.
package intent

import (
	"regexp"
	"strings"
)

// Intent names produced by the classifier.
const (
	SetReminder    = "set_reminder"
	CancelReminder = "cancel_reminder"
	CheckIn        = "checkin"
)

// Slot names for the reminder intents.
const (
	SlotTask = "task"
	SlotTime = "time"
)

// Intent holds the classified purpose of an utterance plus any extracted slot
// values. The zero Intent (empty Name) means nothing matched.
type Intent struct {
	Name       string
	Slots      map[string]string
	Confidence float64
}

var cancelTriggers = []string{
	"cancel reminder", "delete reminder", "remove reminder", "cancel task", "delete task",
}

var setTriggers = []string{"remind me", "set reminder"}

var (
	cancelTaskPat = regexp.MustCompile(`(?i)(?:cancel|delete|remove)\s+(?:reminder|task)\s*(?:for)?\s*(.*?)(?: at| on|$)`)
	remindTaskPat = regexp.MustCompile(`(?i)remind me to (.+?)(?: at| on| tomorrow|$)`)
	atTimePat     = regexp.MustCompile(`(?i)at\s+(\d{1,2}(?::\d{2})?\s*(?:am|pm)?)`)
	bareTimePat   = regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s?(?:am|pm))\b`)
	checkinPat    = regexp.MustCompile(`(?i)\b(check[\s-]?in|check\s?up|how am i)\b`)
)

// Classify runs the fixed phrase patterns over text.
func Classify(text string) Intent {
	lower := strings.ToLower(text)

	if containsAny(lower, cancelTriggers) {
		slots := map[string]string{SlotTask: "", SlotTime: ""}
		if m := cancelTaskPat.FindStringSubmatch(text); m != nil {
			slots[SlotTask] = strings.TrimSpace(m[1])
		}
		if m := atTimePat.FindStringSubmatch(text); m != nil {
			slots[SlotTime] = strings.TrimSpace(m[1])
		}
		return Intent{Name: CancelReminder, Slots: slots, Confidence: 0.9}
	}

	if containsAny(lower, setTriggers) {
		slots := map[string]string{SlotTask: "", SlotTime: ""}
		if m := remindTaskPat.FindStringSubmatch(text); m != nil {
			slots[SlotTask] = strings.TrimSpace(m[1])
		}
		if m := atTimePat.FindStringSubmatch(text); m != nil {
			slots[SlotTime] = strings.TrimSpace(m[1])
		}
		return Intent{Name: SetReminder, Slots: slots, Confidence: 0.85}
	}

	if checkinPat.MatchString(text) {
		return Intent{Name: CheckIn, Slots: map[string]string{}, Confidence: 0.9}
	}

	return Intent{}
}

// ExtractSlots pulls reminder slot values out of a bare utterance that may
// lack any trigger phrase, e.g. an answer to a follow-up question ("at 5pm",
// "call mom"). The task value is the text with the time phrase stripped and
// punctuation trimmed, and may legitimately be empty.
func ExtractSlots(text string) map[string]string {
	slots := map[string]string{SlotTask: "", SlotTime: ""}

	rest := text
	if m := atTimePat.FindStringSubmatch(text); m != nil {
		slots[SlotTime] = strings.TrimSpace(m[1])
		rest = strings.Replace(rest, m[0], "", 1)
	} else if m := bareTimePat.FindStringSubmatch(text); m != nil {
		slots[SlotTime] = strings.TrimSpace(m[1])
		rest = strings.Replace(rest, m[0], "", 1)
	}

	if m := remindTaskPat.FindStringSubmatch(text); m != nil {
		slots[SlotTask] = strings.TrimSpace(m[1])
	} else {
		slots[SlotTask] = strings.Trim(strings.TrimSpace(rest), " ,.;:!?")
	}
	return slots
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
