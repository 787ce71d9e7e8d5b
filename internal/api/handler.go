// Package api exposes the assistant over HTTP and MCP. The chat endpoint is
// open; reminder and history management require the bearer token.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ren/internal/agent"
	"github.com/kalambet/ren/internal/history"
	"github.com/kalambet/ren/internal/reminder"
	"github.com/kalambet/ren/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Assistant is the conversational surface, implemented by agent.Agent.
type Assistant interface {
	ProcessStatement(ctx context.Context, conversationID, input string) (string, error)
	ConversationSummary() agent.Summary
}

// ReminderService manages reminders, implemented by reminder.Scheduler.
type ReminderService interface {
	Schedule(user, task, timeText string) store.Reminder
	DeleteReminderByID(id string) bool
}

// ReminderLister reads stored reminders.
type ReminderLister interface {
	Reminders() []store.Reminder
}

// HistoryReader reads the exchange log, implemented by history.Store.
type HistoryReader interface {
	RecentExchanges(limit int) ([]history.Exchange, error)
}

// Deps holds everything the HTTP handler needs.
type Deps struct {
	Assistant Assistant
	Scheduler ReminderService
	Reminders ReminderLister
	History   HistoryReader // optional
	Token     string
}

// NewHandler returns the assistant's HTTP API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/ask", handleAsk(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/reminders", handleListReminders(deps))
		r.Post("/reminders", handleAddReminder(deps))
		r.Delete("/reminders/{id}", handleDeleteReminder(deps))
		r.Get("/history", handleHistory(deps))
		r.Get("/summary", handleSummary(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type askRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type askResponse struct {
	Response string        `json:"response"`
	Summary  agent.Summary `json:"conversation_summary"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Message == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required and must not be empty")
			return
		}

		response, err := deps.Assistant.ProcessStatement(r.Context(), req.ConversationID, req.Message)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(askResponse{
			Response: response,
			Summary:  deps.Assistant.ConversationSummary(),
		})
	}
}

func handleListReminders(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs := deps.Reminders.Reminders()
		if rs == nil {
			rs = []store.Reminder{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"reminders": rs})
	}
}

type addReminderRequest struct {
	User string `json:"user"`
	Task string `json:"task"`
	Time string `json:"time"`
}

func handleAddReminder(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req addReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Task == "" || req.Time == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "task and time are required")
			return
		}
		if _, ok := reminder.NormalizeTime(req.Time); !ok {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "time must look like 2:00PM")
			return
		}
		if req.User == "" {
			req.User = "unknown"
		}

		created := deps.Scheduler.Schedule(req.User, req.Task, req.Time)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
	}
}

func handleDeleteReminder(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !deps.Scheduler.DeleteReminderByID(id) {
			httpError(w, http.StatusNotFound, "not_found_error", "no reminder with id %s", id)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.History == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "history is not configured")
			return
		}

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if _, err := fmt.Sscanf(v, "%d", &limit); err != nil || limit <= 0 || limit > 200 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "limit must be between 1 and 200")
				return
			}
		}

		exchanges, err := deps.History.RecentExchanges(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "server_error", "reading history: %v", err)
			return
		}
		if exchanges == nil {
			exchanges = []history.Exchange{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"exchanges": exchanges})
	}
}

func handleSummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Assistant.ConversationSummary())
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
