package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/ren/internal/config"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send a message to the assistant",
	Long: `Send a message to the assistant and print its reply.

Examples:
  ren ask "how are you doing?"
  ren ask --conversation work "remind me to stretch at 3:00PM"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		conversation, _ := cmd.Flags().GetString("conversation")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"message": message}
		if conversation != "" {
			req["conversation_id"] = conversation
		}

		resp, err := client.post(cmd.Context(), "/ask", req)
		if err != nil {
			return err
		}

		var result struct {
			Response string `json:"response"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Response)
		return nil
	},
}

func init() {
	askCmd.Flags().String("conversation", "", "conversation to continue (default: 'default')")
}

// --- remind ---

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Manage reminders",
}

var remindListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/reminders")
		if err != nil {
			return err
		}

		var result struct {
			Reminders []struct {
				ID       string `json:"id"`
				User     string `json:"user"`
				Task     string `json:"task"`
				Time     string `json:"time"`
				Notified bool   `json:"notified"`
			} `json:"reminders"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Reminders) == 0 {
			fmt.Println("No reminders set.")
			return nil
		}

		for _, r := range result.Reminders {
			due := ""
			if r.Notified {
				due = colorize(colorYellow, "  (due)")
			}
			fmt.Printf("%s  %s  %s%s\n",
				colorize(colorCyan, r.ID),
				r.Time,
				r.Task,
				due,
			)
		}
		return nil
	},
}

var remindAddCmd = &cobra.Command{
	Use:   "add <task>",
	Short: "Schedule a reminder",
	Long: `Schedule a reminder for a task at a time of day.

Examples:
  ren remind add "stand up and stretch" --at 3:00PM
  ren remind add "call mom" --at 7:30pm --user avery`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.Join(args, " ")
		at, _ := cmd.Flags().GetString("at")
		user, _ := cmd.Flags().GetString("user")

		if at == "" {
			return fmt.Errorf("--at is required (e.g. --at 3:00PM)")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"task": task, "time": at}
		if user != "" {
			req["user"] = user
		}

		resp, err := client.post(cmd.Context(), "/reminders", req)
		if err != nil {
			return err
		}

		var created struct {
			ID   string `json:"id"`
			Task string `json:"task"`
			Time string `json:"time"`
		}
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}

		printSuccess("Reminder %s set for %s", created.ID, created.Time)
		return nil
	},
}

var remindDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a reminder by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/reminders/"+args[0])
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == 404 {
			printError("No reminder with id %s", args[0])
			return fmt.Errorf("reminder not found")
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		printSuccess("Deleted reminder %s", args[0])
		return nil
	},
}

func init() {
	remindAddCmd.Flags().String("at", "", "time of day, e.g. 3:00PM")
	remindAddCmd.Flags().String("user", "", "who the reminder is for")
	remindCmd.AddCommand(remindListCmd)
	remindCmd.AddCommand(remindAddCmd)
	remindCmd.AddCommand(remindDeleteCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent exchanges",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history?limit=%d", limit))
		if err != nil {
			return err
		}

		var result struct {
			Exchanges []struct {
				ID        string `json:"id"`
				CreatedAt string `json:"created_at"`
				UserInput string `json:"user_input"`
				Reply     string `json:"reply"`
				Tone      string `json:"tone"`
			} `json:"exchanges"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Exchanges) == 0 {
			fmt.Println("No exchanges recorded.")
			return nil
		}

		for _, e := range result.Exchanges {
			input := e.UserInput
			if len(input) > 80 {
				input = input[:80] + "..."
			}
			tone := ""
			if e.Tone != "" {
				tone = "  [" + e.Tone + "]"
			}
			fmt.Printf("%s  %s  %s%s\n",
				colorize(colorCyan, shortID(e.ID)),
				e.CreatedAt,
				input,
				tone,
			)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of exchanges to show")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
