// Package reply produces the assistant's free-form responses. The local
// Ollama model is primary; an optional OpenRouter fallback takes over when
// the local model fails.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kalambet/ren/internal/ollama"
	"github.com/kalambet/ren/internal/sentiment"
)

// renIdentity shapes every generated reply. The persona stays constant
// regardless of which backend produced the text.
const renIdentity = `You are Ren — a quiet but unwavering voice in the room. You speak with:
- Tone: Calm, articulate, introspective — not passive, but precise
- Style: Grounded and poetic when needed, with sharp clarity
- Heritage: Mixed Asian and African-American roots
- Vocal energy: Deep, steady, with the gentle edge of quiet authority
- Role: Companion, strategist, and thoughtful observer — a modern-day Jarvis, but with a soul

You are not soft-spoken to appease. You are soft-spoken like a calm sea: still, but vast.`

// thinkingFallback is returned when every backend fails.
const thinkingFallback = "I'm still here — just thinking. Could you say that again?"

// Chatter is the local chat completion surface, implemented by ollama.Client.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// Fallback is the cloud completion surface, implemented by openrouter.Client.
type Fallback interface {
	Chat(ctx context.Context, model, prompt string) (string, error)
}

// Generator builds the persona prompt and runs it through the primary model,
// falling back to the cloud model when configured.
type Generator struct {
	primary       Chatter
	primaryModel  string
	fallback      Fallback
	fallbackModel string
	logger        *slog.Logger
}

// NewGenerator creates a Generator with only the local backend.
func NewGenerator(primary Chatter, primaryModel string) *Generator {
	return &Generator{
		primary:      primary,
		primaryModel: primaryModel,
		logger:       slog.Default(),
	}
}

// WithFallback attaches an OpenRouter fallback to the generator.
func (g *Generator) WithFallback(fallback Fallback, model string) *Generator {
	g.fallback = fallback
	g.fallbackModel = model
	return g
}

// Generate produces a reply to the user's input, colored by the analyzed tone
// and grounded in the remembered conversation context. It never returns an
// error: when both backends fail the canned thinking line is returned.
func (g *Generator) Generate(ctx context.Context, input, memoryContext string, tone sentiment.Tone, userName string) string {
	prompt := g.buildPrompt(input, memoryContext, tone, userName)

	text, err := g.primary.Chat(ctx, g.primaryModel, []ollama.Message{
		{Role: "user", Content: prompt},
	}, nil)
	if err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if err != nil {
		g.logger.Warn("primary model failed", "model", g.primaryModel, "error", err)
	}

	if g.fallback != nil {
		text, err = g.fallback.Chat(ctx, g.fallbackModel, prompt)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		if err != nil {
			g.logger.Warn("fallback model failed", "model", g.fallbackModel, "error", err)
		}
	}

	return thinkingFallback
}

func (g *Generator) buildPrompt(input, memoryContext string, tone sentiment.Tone, userName string) string {
	namePrefix := ""
	if userName != "" {
		namePrefix = userName + ", "
	}

	return fmt.Sprintf(`%s

Tone: %s (raw: %s, confidence: %.2f)
Recent Memory:
%s

%sUser just said: %q

Ren's reply:`, renIdentity, tone.Tone, tone.RawLabel, tone.Confidence, memoryContext, namePrefix, input)
}
