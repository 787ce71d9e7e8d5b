package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates an MCP server exposing the assistant's chat and
// reminder tools over stdio.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"ren",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("ren — a local companion assistant with reminders, check-ins, and tone-aware replies."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Send a message to the assistant and get its reply."),
			mcp.WithString("message", mcp.Description("The message to send"), mcp.Required()),
			mcp.WithString("conversation_id", mcp.Description("Conversation to continue (default: 'default')")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List all stored reminders."),
		),
		mcpListReminders(deps),
	)

	s.AddTool(
		mcp.NewTool("set_reminder",
			mcp.WithDescription("Schedule a reminder for a task at a given time of day."),
			mcp.WithString("task", mcp.Description("What to be reminded about"), mcp.Required()),
			mcp.WithString("time", mcp.Description("Time of day, e.g. 2:00PM"), mcp.Required()),
			mcp.WithString("user", mcp.Description("Who the reminder is for (default: 'unknown')")),
		),
		mcpSetReminder(deps),
	)

	s.AddTool(
		mcp.NewTool("cancel_reminder",
			mcp.WithDescription("Cancel a stored reminder whose task matches the given text."),
			mcp.WithString("task", mcp.Description("Task text to match against stored reminders"), mcp.Required()),
		),
		mcpCancelReminder(deps),
	)

	return s
}

func mcpAsk(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		conversationID := req.GetString("conversation_id", "")

		reply, err := deps.Assistant.ProcessStatement(ctx, conversationID, message)
		if err != nil {
			return mcpError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return mcpText(reply), nil
	}
}

func mcpListReminders(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rs := deps.Reminders.Reminders()
		if len(rs) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(rs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal reminders: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetReminder(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := req.RequireString("task")
		if err != nil {
			return mcpError("task is required"), nil
		}
		timeText, err := req.RequireString("time")
		if err != nil {
			return mcpError("time is required"), nil
		}
		user := req.GetString("user", "unknown")

		created := deps.Scheduler.Schedule(user, task, timeText)
		return mcpText(fmt.Sprintf("Scheduled reminder %s to '%s' at %s", created.ID, created.Task, created.Time)), nil
	}
}

func mcpCancelReminder(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := req.RequireString("task")
		if err != nil {
			return mcpError("task is required"), nil
		}

		taskLower := strings.ToLower(task)
		for _, r := range deps.Reminders.Reminders() {
			if strings.Contains(strings.ToLower(r.Task), taskLower) {
				deps.Scheduler.DeleteReminderByID(r.ID)
				return mcpText(fmt.Sprintf("Cancelled reminder to '%s' at %s", r.Task, r.Time)), nil
			}
		}
		return mcpError(fmt.Sprintf("no reminder matching %q", task)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
