// Package checkin drives the short guided check-in conversation: a fixed
// sequence of phases that walks the user from how they feel to one concrete
// next action.
package checkin

import "strings"

// Phase identifies one step of the check-in flow.
type Phase string

const (
	PhaseIntro   Phase = "intro"
	PhasePrompt  Phase = "prompt"
	PhaseReflect Phase = "reflect"
	PhaseAction  Phase = "action"
	PhaseWrap    Phase = "wrap"
)

// State is the progress of one check-in conversation.
type State struct {
	Active    bool
	Phase     Phase
	LastInput string
	Summary   string
}

// Advance feeds one user turn into the flow, mutating st, and returns the
// assistant's reply. done is true when the flow has finished and st should be
// discarded.
func Advance(st *State, input string) (reply string, done bool) {
	input = strings.TrimSpace(input)

	if !st.Active {
		st.Active = true
		st.Phase = PhaseIntro
		return "Let's do a quick check-in. How are you feeling right now?", false
	}

	switch st.Phase {
	case PhaseIntro:
		st.LastInput = input
		st.Phase = PhasePrompt
		return "Got it. What's the biggest thing on your mind?", false
	case PhasePrompt:
		st.LastInput = input
		st.Phase = PhaseReflect
		return "Thanks. If you name one thing you can do in the next hour, what would it be?", false
	case PhaseReflect:
		st.LastInput = input
		st.Phase = PhaseAction
		return "Alright. Want me to set a reminder or block time for it?", false
	case PhaseAction:
		st.Summary = "Focus: " + st.LastInput
		st.Phase = PhaseWrap
		return "Done. That's the check-in. Anything else before we wrap?", false
	}

	return "All set. We can check in again later.", true
}
