package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/ren/internal/agent"
	"github.com/kalambet/ren/internal/api"
	"github.com/kalambet/ren/internal/config"
	"github.com/kalambet/ren/internal/dialogue"
	"github.com/kalambet/ren/internal/history"
	"github.com/kalambet/ren/internal/intent"
	"github.com/kalambet/ren/internal/ollama"
	"github.com/kalambet/ren/internal/openrouter"
	"github.com/kalambet/ren/internal/reminder"
	"github.com/kalambet/ren/internal/reply"
	"github.com/kalambet/ren/internal/sentiment"
	"github.com/kalambet/ren/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ren server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running ren server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ren system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "ren.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "ren version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure API token exists in platform secret store.
	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("ren is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("ren is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check Ollama readiness and pull missing models.
	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	if err := ollama.EnsureReady(ctx, ollamaClient, cfg.Ollama.ChatModel, cfg.Ollama.FastModel, os.Stderr); err != nil {
		return err
	}

	// Open the memory store and the exchange log.
	memStore, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening memory store: %w", err)
	}

	hist, err := history.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening exchange log: %w", err)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			slog.Warn("closing exchange log", "error", err)
		}
	}()

	// Reminder scheduler: CRUD plus the due-marking poll.
	scheduler := reminder.NewScheduler(memStore, cfg.Reminder.CheckInterval)

	// Reply pipeline: tone analysis, persona generation, slot-filling dialogue.
	analyzer := sentiment.NewAnalyzer(ollamaClient, cfg.Ollama.FastModel)
	generator := reply.NewGenerator(ollamaClient, cfg.Ollama.ChatModel)
	if cfg.OpenRouter.APIKey != "" {
		generator = generator.WithFallback(openrouter.NewClient(cfg.OpenRouter.APIKey), cfg.OpenRouter.Model)
		slog.Info("cloud fallback enabled", "model", cfg.OpenRouter.Model)
	}
	flow := dialogue.NewManager(dialogue.ClassifierFunc(intent.Classify), scheduler, memStore)

	assistant := agent.New(memStore, analyzer, flow, generator, hist, agent.Traits{
		Name:            cfg.Agent.Name,
		Personality:     cfg.Agent.Personality,
		MemoryThreshold: cfg.Agent.MemoryThreshold,
	})

	// Notifier: delivers due reminders into the conversation and removes them.
	notifier := reminder.NewNotifier(memStore, assistant.HandleReminderNotification, cfg.Reminder.NotifyInterval)

	scheduler.Start()
	defer scheduler.Stop()
	notifier.Start()
	defer notifier.Stop()

	deps := api.Deps{
		Assistant: assistant,
		Scheduler: scheduler,
		Reminders: memStore,
		History:   hist,
		Token:     apiToken,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
	}

	stdioSrv := server.NewStdioServer(api.NewMCPServer(deps))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "ren listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("MCP server started (stdio transport)")
	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("ren is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop ren (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to ren (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	// Check Ollama.
	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}

	// Show models.
	printStatus("Chat model", "%s", cfg.Ollama.ChatModel)
	printStatus("Fast model", "%s", cfg.Ollama.FastModel)
	if cfg.OpenRouter.APIKey != "" {
		printStatus("Cloud fallback", "%s", cfg.OpenRouter.Model)
	} else {
		printStatus("Cloud fallback", "disabled")
	}

	// Show reminder/exchange counts if server is running.
	apiToken, tokenErr := config.GetAPIToken(config.NewKeychain())
	if tokenErr == nil && resp != nil && resp.StatusCode == 200 {
		remResp, err := apiGet(client, serverURL+"/reminders", apiToken)
		if err == nil {
			var rem struct {
				Reminders []json.RawMessage `json:"reminders"`
			}
			if json.NewDecoder(remResp.Body).Decode(&rem) == nil {
				printStatus("Reminders", "%d", len(rem.Reminders))
			}
			remResp.Body.Close()
		}
		histResp, err2 := apiGet(client, serverURL+"/history?limit=100", apiToken)
		if err2 == nil {
			var hist struct {
				Exchanges []json.RawMessage `json:"exchanges"`
			}
			if json.NewDecoder(histResp.Body).Decode(&hist) == nil {
				printStatus("Exchanges", "%s", countLabel(len(hist.Exchanges), 100))
			}
			histResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}
