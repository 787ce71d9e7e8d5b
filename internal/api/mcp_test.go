package api

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/ren/internal/store"
)

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func newTestMCPDeps(t *testing.T) (Deps, *mockAssistant, *mockScheduler, *mockLister) {
	t.Helper()
	assistant := &mockAssistant{reply: "hello there"}
	sched := &mockScheduler{deleteOK: true}
	lister := &mockLister{}
	return Deps{
		Assistant: assistant,
		Scheduler: sched,
		Reminders: lister,
	}, assistant, sched, lister
}

func TestMCPTool_Ask(t *testing.T) {
	deps, assistant, _, _ := newTestMCPDeps(t)
	handler := mcpAsk(deps)

	req := makeCallToolRequest("ask", map[string]interface{}{
		"message":         "good morning",
		"conversation_id": "abc",
	})

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != "hello there" {
		t.Errorf("reply = %q", got)
	}
	if assistant.lastID != "abc" {
		t.Errorf("conversation id = %q, want abc", assistant.lastID)
	}
}

func TestMCPTool_Ask_MissingMessage(t *testing.T) {
	deps, _, _, _ := newTestMCPDeps(t)
	handler := mcpAsk(deps)

	result, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for missing message")
	}
}

func TestMCPTool_ListReminders(t *testing.T) {
	deps, _, _, lister := newTestMCPDeps(t)
	lister.rs = []store.Reminder{{ID: "avery-1", User: "avery", Task: "call mom", Time: "2:00 PM"}}
	handler := mcpListReminders(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_reminders", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := toolText(t, result)
	if !strings.Contains(text, "call mom") {
		t.Errorf("list = %s", text)
	}
}

func TestMCPTool_ListReminders_Empty(t *testing.T) {
	deps, _, _, _ := newTestMCPDeps(t)
	handler := mcpListReminders(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("list_reminders", nil))
	if got := toolText(t, result); got != "[]" {
		t.Errorf("empty list = %q, want []", got)
	}
}

func TestMCPTool_SetReminder(t *testing.T) {
	deps, _, sched, _ := newTestMCPDeps(t)
	handler := mcpSetReminder(deps)

	req := makeCallToolRequest("set_reminder", map[string]interface{}{
		"task": "call mom",
		"time": "2:00PM",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	if len(sched.scheduled) != 1 {
		t.Fatalf("Schedule called %d times", len(sched.scheduled))
	}
	if sched.scheduled[0].User != "unknown" {
		t.Errorf("user = %q, want unknown default", sched.scheduled[0].User)
	}
}

func TestMCPTool_CancelReminder(t *testing.T) {
	deps, _, sched, lister := newTestMCPDeps(t)
	lister.rs = []store.Reminder{{ID: "avery-1", Task: "call mom", Time: "2:00 PM"}}
	handler := mcpCancelReminder(deps)

	req := makeCallToolRequest("cancel_reminder", map[string]interface{}{"task": "mom"})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if len(sched.deleted) != 1 || sched.deleted[0] != "avery-1" {
		t.Errorf("deleted = %v", sched.deleted)
	}
}

func TestMCPTool_CancelReminder_NoMatch(t *testing.T) {
	deps, _, _, _ := newTestMCPDeps(t)
	handler := mcpCancelReminder(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("cancel_reminder", map[string]interface{}{"task": "dentist"}))
	if !result.IsError {
		t.Error("expected IsError when nothing matches")
	}
}
