package store

// Reminder is one scheduled reminder record as persisted under the
// "reminders" key of the memory document.
type Reminder struct {
	ID       string `json:"id"`
	User     string `json:"user"`
	Task     string `json:"task"`
	Time     string `json:"time"`
	Notified bool   `json:"notified"`
}
