// Package agent is the conversational core: it runs every user statement
// through sentiment analysis, name tracking, the check-in flow, the reminder
// dialogue, and a set of rule-based responses before falling back to the LLM.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/ren/internal/checkin"
	"github.com/kalambet/ren/internal/history"
	"github.com/kalambet/ren/internal/intent"
	"github.com/kalambet/ren/internal/sentiment"
)

// Memory is the persistent key/value surface, implemented by store.Store.
type Memory interface {
	Get(key string, v any) bool
	Set(key string, v any)
}

// ToneAnalyzer classifies the emotional tone of an utterance.
type ToneAnalyzer interface {
	Analyze(ctx context.Context, text string) sentiment.Tone
}

// Dialogue runs the slot-filling reminder flow for one turn.
type Dialogue interface {
	HandleInput(conversationID, text, userName string) (reply string, handled bool)
}

// ReplyGenerator produces free-form responses.
type ReplyGenerator interface {
	Generate(ctx context.Context, input, memoryContext string, tone sentiment.Tone, userName string) string
}

// ExchangeLog records completed exchanges, implemented by history.Store.
type ExchangeLog interface {
	SaveExchange(e history.Exchange) error
}

// Traits is the configured persona of the agent.
type Traits struct {
	Name            string
	Personality     string
	MemoryThreshold int
}

// sentimentRecord is the last_sentiment document persisted after each turn.
type sentimentRecord struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	RawLabel   string  `json:"raw_label"`
	Confidence float64 `json:"confidence"`
	Timestamp  float64 `json:"timestamp"`
}

// exchangeRecord is the last_exchange document used by the correction retry.
type exchangeRecord struct {
	Input     string `json:"input"`
	Response  string `json:"response"`
	Corrected bool   `json:"corrected,omitempty"`
}

// Summary is a snapshot of the agent's conversational state.
type Summary struct {
	MemoryCount     int      `json:"memory_count"`
	MemoryThreshold int      `json:"memory_threshold"`
	RecentInputs    []string `json:"recent_inputs"`
	AgentName       string   `json:"agent_name"`
	Personality     string   `json:"personality"`
	UserName        string   `json:"user_name"`
}

// Agent holds the conversation state and orchestrates the reply pipeline.
type Agent struct {
	memory    Memory
	tone      ToneAnalyzer
	dialogue  Dialogue
	generator ReplyGenerator
	exchanges ExchangeLog
	traits    Traits
	logger    *slog.Logger

	mu                sync.Mutex
	conversation      []string
	userName          string
	pendingNameChange string
	checkins          map[string]*checkin.State
}

// New creates an Agent, restoring the remembered user name from memory.
// exchanges may be nil when no exchange log is configured.
func New(memory Memory, tone ToneAnalyzer, dialogue Dialogue, generator ReplyGenerator, exchanges ExchangeLog, traits Traits) *Agent {
	if traits.MemoryThreshold <= 0 {
		traits.MemoryThreshold = 10
	}

	a := &Agent{
		memory:    memory,
		tone:      tone,
		dialogue:  dialogue,
		generator: generator,
		exchanges: exchanges,
		traits:    traits,
		logger:    slog.Default(),
		checkins:  make(map[string]*checkin.State),
	}
	memory.Get("user_name", &a.userName)

	a.logger.Info("agent initialized", "name", traits.Name, "personality", traits.Personality)
	return a
}

var correctionPhrases = []string{
	"that's not", "you misunderstood", "not what i meant", "wrong",
	"incorrect", "that isn't it", "no what i meant",
}

// ProcessStatement runs one user statement through the full pipeline and
// returns the agent's reply. An empty conversationID maps to "default".
func (a *Agent) ProcessStatement(ctx context.Context, conversationID, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("user input must be a non-empty string")
	}
	if conversationID == "" {
		conversationID = "default"
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if containsAny(strings.ToLower(input), correctionPhrases) {
		return a.retryWithCorrection(ctx), nil
	}

	a.logger.Info("processing user input", "input", truncate(input, 100))

	tone := a.tone.Analyze(ctx, input)
	a.memory.Set("last_sentiment", sentimentRecord{
		Text:       input,
		Sentiment:  tone.Tone,
		RawLabel:   tone.RawLabel,
		Confidence: tone.Confidence,
		Timestamp:  float64(time.Now().UnixNano()) / float64(time.Second),
	})

	// High-confidence emotional alert short-circuits everything else.
	if (tone.Tone == "serious" || tone.Tone == "tense" || tone.Tone == "low") && tone.Confidence > 0.8 {
		return fmt.Sprintf("%s, you sound overwhelmed. Want me to pause distractions or give you a moment?", a.userName), nil
	}

	if suggestion := suggestActionByTone(tone.Tone); suggestion != "" {
		return suggestion, nil
	}

	if a.pendingNameChange != "" {
		return a.resolveNameChange(input), nil
	}

	learnedName := a.maybeRememberName(input)

	a.conversation = append(a.conversation, input)
	if len(a.conversation) > a.traits.MemoryThreshold {
		a.conversation = a.conversation[1:]
	}

	reply := a.respond(ctx, conversationID, input, tone, learnedName)
	a.recordExchange(conversationID, input, reply, tone)
	return reply, nil
}

// respond picks the reply source: check-in flow, reminder dialogue, rules,
// then the LLM fallback.
func (a *Agent) respond(ctx context.Context, conversationID, input string, tone sentiment.Tone, learnedName bool) string {
	if st := a.checkins[conversationID]; st != nil {
		reply, done := checkin.Advance(st, input)
		if done {
			delete(a.checkins, conversationID)
			if st.Summary != "" {
				a.memory.Set("last_checkin_summary", st.Summary)
			}
		}
		return reply
	}
	if intent.Classify(input).Name == intent.CheckIn {
		st := &checkin.State{}
		a.checkins[conversationID] = st
		reply, _ := checkin.Advance(st, input)
		return reply
	}

	if reply, handled := a.dialogue.HandleInput(conversationID, input, a.userName); handled {
		return reply
	}

	if reply := a.ruleBasedResponse(input, learnedName); reply != "" {
		return reply
	}

	if a.generator == nil {
		return a.empathyFallback()
	}

	memoryContext := strings.Join(a.conversation, "\n")
	reply := a.generator.Generate(ctx, input, memoryContext, tone, a.userName)
	a.logger.Info("generated response", "response", truncate(reply, 100))
	return reply
}

// retryWithCorrection regenerates the previous reply after the user signalled
// the agent got it wrong.
func (a *Agent) retryWithCorrection(ctx context.Context) string {
	var last exchangeRecord
	if !a.memory.Get("last_exchange", &last) || last.Input == "" || a.generator == nil {
		return "I'll need more context to correct myself - could you clarify what I missed?"
	}

	var tone sentiment.Tone
	var rec sentimentRecord
	if a.memory.Get("last_sentiment", &rec) {
		tone = sentiment.Tone{RawLabel: rec.RawLabel, Tone: rec.Sentiment, Confidence: rec.Confidence}
	}

	retryPrompt := fmt.Sprintf("The user said: %q\n\nI responded: %q\n\n"+
		"The user seems unsatisfied. Try again - but this time, be more accurate, "+
		"emotionally aware, and flexible in interpretation.",
		last.Input, last.Response)

	retryReply := a.generator.Generate(ctx, retryPrompt, "", tone, a.userName)
	a.memory.Set("last_exchange", exchangeRecord{
		Input:     last.Input,
		Response:  retryReply,
		Corrected: true,
	})
	return "[REWRITE] " + retryReply
}

func suggestActionByTone(tone string) string {
	switch tone {
	case "tense":
		return "You seem a bit tense. Want me to pause notifications or activate focus mode?"
	case "low":
		return "I'm sensing some heaviness. Would a breathing exercise or playlist help?"
	case "serious":
		return "Should I pull up your schedule or give you some quiet time?"
	case "sharp":
		return "That came through pretty strong. Want to talk through it or switch topics?"
	}
	return ""
}

var (
	affirmatives = []string{"yes", "yeah", "yep", "sure", "correct"}
	negatives    = []string{"no", "nope", "nah", "cancel"}
)

// resolveNameChange handles the yes/no turn after a name change was proposed.
func (a *Agent) resolveNameChange(input string) string {
	switch normalized := strings.ToLower(input); {
	case contains(affirmatives, normalized):
		a.userName = a.pendingNameChange
		a.memory.Set("user_name", a.userName)
		a.pendingNameChange = ""
		return fmt.Sprintf("Okay, I'll call you %s from now on.", a.userName)
	case contains(negatives, normalized):
		a.pendingNameChange = ""
		return fmt.Sprintf("Alright, I'll keep calling you %s.", a.userName)
	}
	return "Please respond with 'yes' or 'no' to confirm the name change."
}

var (
	greetings          = []string{"hi", "hello", "hey", "greetings", "good morning", "good evening", "good afternoon"}
	farewells          = []string{"bye", "goodbye", "farewell", "see you", "later"}
	thanks             = []string{"thank you", "thanks", "thank you so much", "thank you very much"}
	memoryInquiries    = []string{"remember", "memory", "how much do you remember"}
	identityQueries    = []string{"who are you", "what are you", "your name"}
	nameChangeTriggers = []string{"actually", "not", "call me", "change my name", "you got it wrong", "my name is actually"}
	smallTalkPhrases   = []string{"just talk", "just chatting", "i want to talk", "let's talk", "what's up", "how are you", "can we talk"}
)

// ruleBasedResponse covers the canned conversational paths. Returns "" when
// nothing matched and the LLM should take over. learnedName marks that the
// user introduced themselves this turn.
func (a *Agent) ruleBasedResponse(input string, learnedName bool) string {
	lower := strings.ToLower(input)

	if containsAny(lower, greetings) {
		if a.userName == "" {
			return fmt.Sprintf("Hey. I'm %s. You sound like you needed someone to talk to. What's your name?", a.traits.Name)
		}
		return fmt.Sprintf("Hey %s. I'm here for you. What's on your mind?", a.userName)
	}

	if containsAny(lower, thanks) {
		return "Anytime, you're welcome. How can I help you today?"
	}

	if containsAny(lower, farewells) {
		if a.userName == "" {
			return "Talk soon. I'll be here when you're ready again."
		}
		return fmt.Sprintf("Talk soon, %s. I'll be here when you're ready again.", a.userName)
	}

	if containsAny(lower, memoryInquiries) {
		n := len(a.conversation)
		plural := "s"
		if n == 1 {
			plural = ""
		}
		return fmt.Sprintf("I remember our last %d message%s. I keep track of up to %d.", n, plural, a.traits.MemoryThreshold)
	}

	if containsAny(lower, identityQueries) {
		return fmt.Sprintf("I'm %s — a voice that listens, and a mind designed to respond patiently.", a.traits.Name)
	}

	if containsAny(lower, nameChangeTriggers) {
		newName := extractName(input)
		if newName == "" {
			return "Okay, I'm listening. What should I call you?"
		}
		if newName == a.userName {
			return fmt.Sprintf("I already had you as %s, but happy to be sure!", a.userName)
		}
		a.pendingNameChange = newName
		return fmt.Sprintf("Do you want me to call you %s instead of %s? Please reply yes or no.", newName, a.userName)
	}

	if strings.Contains(lower, "my name is") || strings.Contains(lower, "i'm") || strings.Contains(lower, "i am") {
		if learnedName {
			return fmt.Sprintf("Nice to meet you, %s. I'm here if you want to talk.", a.userName)
		}
		if a.userName != "" {
			return fmt.Sprintf("I've already saved your name as %s. Let me know if that changes.", a.userName)
		}
	}

	if containsAny(lower, smallTalkPhrases) {
		return a.chitChatResponse(lower)
	}

	return ""
}

func (a *Agent) chitChatResponse(lower string) string {
	if len(a.conversation) <= 1 {
		return "Yeah... we can just talk. No agenda. No pressure."
	}
	if containsAny(lower, []string{"tired", "stressed", "bored"}) {
		return "Sounds like today's been a lot. Want to vent a bit?"
	}
	if strings.Contains(lower, "talk") {
		return "Of course. Talking helps. I'm right here."
	}
	return "Still here. Still listening. What's on your mind?"
}

var empathyLines = []string{
	"I'm right here. Let's talk through it.",
	"No judgment. Say whatever's on your mind.",
	"You've got my attention. Go ahead.",
	"Let's just sit with this for a moment, if that's okay.",
}

// empathyFallback returns a canned empathetic line colored by the last
// recorded sentiment. Used when no generator is configured.
func (a *Agent) empathyFallback() string {
	var rec sentimentRecord
	if a.memory.Get("last_sentiment", &rec) {
		switch rec.Sentiment {
		case "serious":
			return "Still feeling off today? Want to talk more about it?"
		case "warm":
			return "Still feeling okay? I'm glad. What else is on your mind?"
		}
	}
	return empathyLines[rand.Intn(len(empathyLines))]
}

// maybeRememberName saves a name the first time the user introduces
// themselves. Returns true when a name was learned on this turn.
func (a *Agent) maybeRememberName(text string) bool {
	if a.userName != "" {
		return false
	}
	if name := extractName(text); name != "" {
		a.userName = name
		a.memory.Set("user_name", name)
		a.logger.Info("detected and saved user name", "name", name)
		return true
	}
	return false
}

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my name is|i am|i'm|call me|you can call me|the name's|name is|name's|this is|they call me|nickname is)\s+([A-Z][a-zA-Z\-']*)`),
	regexp.MustCompile(`^\s*([A-Za-z][a-zA-Z\-']{2,})\s*$`),
}

func extractName(text string) string {
	for _, pat := range namePatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			name := strings.ToLower(m[1])
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}
	return ""
}

// recordExchange persists the finished turn for correction retries and the
// durable history log.
func (a *Agent) recordExchange(conversationID, input, reply string, tone sentiment.Tone) {
	a.memory.Set("last_exchange", exchangeRecord{Input: input, Response: reply})

	if a.exchanges == nil {
		return
	}
	err := a.exchanges.SaveExchange(history.Exchange{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		ConversationID: conversationID,
		UserInput:      input,
		Reply:          reply,
		Tone:           tone.Tone,
		Confidence:     tone.Confidence,
	})
	if err != nil {
		a.logger.Warn("failed to record exchange", "error", err)
	}
}

// HandleReminderNotification receives fired reminders from the notifier loop
// and folds them into the conversation memory.
func (a *Agent) HandleReminderNotification(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("reminder fired", "message", message)
	a.conversation = append(a.conversation, message)
	if len(a.conversation) > a.traits.MemoryThreshold {
		a.conversation = a.conversation[1:]
	}
}

// ConversationSummary reports the agent's current conversational state.
func (a *Agent) ConversationSummary() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	userName := a.userName
	if userName == "" {
		userName = "unknown"
	}

	recent := a.conversation
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	return Summary{
		MemoryCount:     len(a.conversation),
		MemoryThreshold: a.traits.MemoryThreshold,
		RecentInputs:    append([]string(nil), recent...),
		AgentName:       a.traits.Name,
		Personality:     a.traits.Personality,
		UserName:        userName,
	}
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
