// Package sentiment classifies the emotional tone of user input with a fast
// local LLM. The raw sentiment label maps onto the tone the reply generator
// should adopt.
package sentiment

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/ren/internal/ollama"
)

const analysisTimeout = 3 * time.Second

// Chatter is the interface for chat completion via Ollama.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// Tone is the classified emotional read of a single utterance.
type Tone struct {
	RawLabel   string  `json:"raw_label"`
	Tone       string  `json:"tone"`
	Confidence float64 `json:"confidence"`
}

// toneMap translates sentiment labels into the register the reply generator
// should speak in.
var toneMap = map[string]string{
	"positive": "warm",
	"neutral":  "calm",
	"negative": "serious",
	"anger":    "firm",
	"joy":      "light",
	"sadness":  "low",
	"surprise": "sharp",
	"fear":     "tense",
}

// Analyzer uses a fast local LLM to classify the tone of user input.
type Analyzer struct {
	client Chatter
	model  string
}

// NewAnalyzer creates an Analyzer using the given Ollama client and model name.
func NewAnalyzer(client Chatter, model string) *Analyzer {
	return &Analyzer{client: client, model: model}
}

// Analyze classifies the text and returns the mapped tone. On any failure
// (timeout, malformed JSON, Ollama error, unknown label) it returns a neutral
// Tone — the reply pipeline must not block on sentiment failures.
func (a *Analyzer) Analyze(ctx context.Context, text string) Tone {
	neutral := Tone{RawLabel: "neutral", Tone: "calm", Confidence: 0}

	if text == "" {
		return neutral
	}

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	messages := []ollama.Message{
		{Role: "system", Content: "Classify the emotional sentiment of the user's message. " +
			"Label must be one of: positive, neutral, negative, anger, joy, sadness, surprise, fear. " +
			"Respond only with JSON."},
		{Role: "user", Content: text},
	}

	raw, err := a.client.Chat(ctx, a.model, messages, sentimentSchema())
	if err != nil {
		slog.Warn("sentiment analysis chat failed", "error", err)
		return neutral
	}

	var result struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		slog.Warn("failed to unmarshal sentiment from LLM response", "error", err, "response", raw)
		return neutral
	}

	label := strings.ToLower(strings.TrimSpace(result.Label))
	tone, ok := toneMap[label]
	if !ok {
		slog.Warn("unknown sentiment label", "label", result.Label)
		return neutral
	}

	return Tone{RawLabel: label, Tone: tone, Confidence: result.Confidence}
}

// sentimentSchema returns the Ollama JSON schema for structured sentiment output.
func sentimentSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"label":      {Type: "string", Description: "One of: positive, neutral, negative, anger, joy, sadness, surprise, fear"},
			"confidence": {Type: "number", Description: "Classifier confidence between 0 and 1"},
		},
		Required: []string{"label", "confidence"},
	}
}
