package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	OpenAI  OpenAIConfig
	API     APIConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StorageConfig struct {
	DataDir string
}

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	TranscribeModel string
	Language        string
}

type APIConfig struct {
	// Token enables bearer authentication on the HTTP API when set.
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		OpenAI: OpenAIConfig{
			ChatModel:       "gpt-5",
			TranscribeModel: "whisper-1",
			Language:        "en",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "callsight-data"
		}
	}
	return filepath.Join(dir, "callsight")
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/callsight/config.json, then applies CALLSIGHT_*
// environment overrides. Secrets (the OpenAI API key, the API token)
// are never read from the file; they must come from the environment.
// The OpenAI key is optional here: only callers that talk to the
// model, such as the serve command, require it via RequireOpenAIKey.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// RequireOpenAIKey errors when the OpenAI API key is unset. Client-side
// commands never call it, so they work without the secret.
func RequireOpenAIKey(cfg Config) error {
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("missing required config: OpenAI API key. " +
			"Set it via environment variable CALLSIGHT_OPENAI_API_KEY")
	}
	return nil
}
