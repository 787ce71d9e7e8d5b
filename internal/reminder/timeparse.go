package reminder

import (
	"log/slog"
	"strings"
	"time"
)

// NormalizeTime converts a 12-hour wall-clock string such as "2:00 PM" or
// "2:00pm" into 24-hour "HH:MM" form. Parsing is tolerant of case and spaces.
// ok is false for text that does not parse; callers must treat that as a time
// that never matches, not as an error to propagate.
func NormalizeTime(text string) (normalized string, ok bool) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), " ", ""))
	t, err := time.Parse("3:04PM", cleaned)
	if err != nil {
		slog.Warn("invalid reminder time format", "time", text)
		return "", false
	}
	return t.Format("15:04"), true
}
