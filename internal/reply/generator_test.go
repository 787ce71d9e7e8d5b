package reply

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kalambet/ren/internal/ollama"
	"github.com/kalambet/ren/internal/sentiment"
)

type mockChatter struct {
	response string
	err      error
	prompts  []string
}

func (m *mockChatter) Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error) {
	if len(messages) > 0 {
		m.prompts = append(m.prompts, messages[len(messages)-1].Content)
	}
	return m.response, m.err
}

type mockFallback struct {
	response string
	err      error
	called   bool
}

func (m *mockFallback) Chat(ctx context.Context, model, prompt string) (string, error) {
	m.called = true
	return m.response, m.err
}

func TestGenerate_Primary(t *testing.T) {
	primary := &mockChatter{response: "  The morning is yours.  "}
	g := NewGenerator(primary, "llama3")

	got := g.Generate(context.Background(), "good morning", "", sentiment.Tone{Tone: "warm"}, "Avery")
	if got != "The morning is yours." {
		t.Errorf("Generate = %q, want trimmed primary response", got)
	}
}

func TestGenerate_PromptCarriesContext(t *testing.T) {
	primary := &mockChatter{response: "ok"}
	g := NewGenerator(primary, "llama3")

	tone := sentiment.Tone{RawLabel: "sadness", Tone: "low", Confidence: 0.8}
	g.Generate(context.Background(), "rough day", "User: hi\nRen: hello", tone, "Avery")

	if len(primary.prompts) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.prompts))
	}
	prompt := primary.prompts[0]
	for _, want := range []string{"You are Ren", "Tone: low", "raw: sadness", "User: hi", "Avery, ", `"rough day"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestGenerate_FallsBackOnPrimaryError(t *testing.T) {
	primary := &mockChatter{err: fmt.Errorf("connection refused")}
	fallback := &mockFallback{response: "Cloud says hi."}
	g := NewGenerator(primary, "llama3").WithFallback(fallback, "meta/llama-3-70b")

	got := g.Generate(context.Background(), "hello", "", sentiment.Tone{}, "")
	if got != "Cloud says hi." {
		t.Errorf("Generate = %q, want fallback response", got)
	}
	if !fallback.called {
		t.Error("fallback was not called")
	}
}

func TestGenerate_FallsBackOnEmptyPrimaryResponse(t *testing.T) {
	primary := &mockChatter{response: "   "}
	fallback := &mockFallback{response: "Cloud says hi."}
	g := NewGenerator(primary, "llama3").WithFallback(fallback, "meta/llama-3-70b")

	got := g.Generate(context.Background(), "hello", "", sentiment.Tone{}, "")
	if got != "Cloud says hi." {
		t.Errorf("Generate = %q, want fallback response", got)
	}
}

func TestGenerate_CannedLineWhenEverythingFails(t *testing.T) {
	primary := &mockChatter{err: fmt.Errorf("connection refused")}
	fallback := &mockFallback{err: fmt.Errorf("rate limited")}
	g := NewGenerator(primary, "llama3").WithFallback(fallback, "meta/llama-3-70b")

	got := g.Generate(context.Background(), "hello", "", sentiment.Tone{}, "")
	if got != thinkingFallback {
		t.Errorf("Generate = %q, want %q", got, thinkingFallback)
	}
}

func TestGenerate_NoFallbackConfigured(t *testing.T) {
	primary := &mockChatter{err: fmt.Errorf("connection refused")}
	g := NewGenerator(primary, "llama3")

	got := g.Generate(context.Background(), "hello", "", sentiment.Tone{}, "")
	if got != thinkingFallback {
		t.Errorf("Generate = %q, want %q", got, thinkingFallback)
	}
}
