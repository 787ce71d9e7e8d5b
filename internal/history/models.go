package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Exchange is one recorded user turn and the assistant's reply.
type Exchange struct {
	ID             string
	CreatedAt      time.Time
	ConversationID string
	UserInput      string
	Reply          string
	Tone           string
	Confidence     float64
}
