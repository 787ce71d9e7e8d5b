package config

import (
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Ollama     OllamaConfig
	OpenRouter OpenRouterConfig
	Agent      AgentConfig
	Reminder   ReminderConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL   string
	ChatModel string
	FastModel string
}

type OpenRouterConfig struct {
	APIKey string
	Model  string
}

type AgentConfig struct {
	Name            string
	Personality     string
	MemoryThreshold int
}

type ReminderConfig struct {
	CheckInterval  time.Duration
	NotifyInterval time.Duration
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 5001,
		},
		Ollama: OllamaConfig{
			BaseURL:   "http://localhost:11434",
			ChatModel: "llama3",
			FastModel: "phi3.5",
		},
		OpenRouter: OpenRouterConfig{
			Model: "cognitivecomputations/dolphin-mistral-24b-venice-edition:free",
		},
		Agent: AgentConfig{
			Name:            "Ren",
			Personality:     "calm, introspective, articulate — poetic when needed, with quiet authority",
			MemoryThreshold: 20,
		},
		Reminder: ReminderConfig{
			CheckInterval:  30 * time.Second,
			NotifyInterval: 10 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.ren.app) and the
// OpenRouter key falls back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/ren/config.json
// and secrets come from environment variables or the secrets file.
//
// Environment variables (REN_*) override backend values on all platforms.
// The OpenRouter key is optional; without it the cloud fallback is disabled.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for the API key if still empty.
	if cfg.OpenRouter.APIKey == "" {
		if key, err := kc.Get("ren", "openrouter_api_key"); err == nil && key != "" {
			cfg.OpenRouter.APIKey = key
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
