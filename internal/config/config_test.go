package config

import (
	"strings"
	"testing"
)

// memBackend is a test double for the ConfigBackend interface.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.strings[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

func emptyBackend() *memBackend {
	return &memBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func TestDefaults(t *testing.T) {
	t.Setenv("CALLSIGHT_OPENAI_API_KEY", "test-key")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-5" {
		t.Errorf("OpenAI.ChatModel = %q, want %q", cfg.OpenAI.ChatModel, "gpt-5")
	}
	if cfg.OpenAI.TranscribeModel != "whisper-1" {
		t.Errorf("OpenAI.TranscribeModel = %q, want %q", cfg.OpenAI.TranscribeModel, "whisper-1")
	}
	if cfg.OpenAI.Language != "en" {
		t.Errorf("OpenAI.Language = %q, want %q", cfg.OpenAI.Language, "en")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.API.Token != "" {
		t.Errorf("API.Token = %q, want empty", cfg.API.Token)
	}
}

func TestBackendValues(t *testing.T) {
	t.Setenv("CALLSIGHT_OPENAI_API_KEY", "test-key")

	b := emptyBackend()
	b.strings["server.host"] = "127.0.0.1"
	b.ints["server.port"] = 9000
	b.strings["openai.chat_model"] = "gpt-4o"
	b.strings["storage.data_dir"] = "/tmp/callsight-test"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Errorf("OpenAI.ChatModel = %q", cfg.OpenAI.ChatModel)
	}
	if cfg.Storage.DataDir != "/tmp/callsight-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	t.Setenv("CALLSIGHT_OPENAI_API_KEY", "test-key")
	t.Setenv("CALLSIGHT_SERVER_PORT", "9100")
	t.Setenv("CALLSIGHT_OPENAI_LANGUAGE", "de")

	b := emptyBackend()
	b.ints["server.port"] = 9000

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.OpenAI.Language != "de" {
		t.Errorf("OpenAI.Language = %q, want %q", cfg.OpenAI.Language, "de")
	}
}

// Loading without the OpenAI key succeeds so client-only commands can run;
// consumers that talk to the model enforce the key separately.
func TestLoadWithoutAPIKey(t *testing.T) {
	t.Setenv("CALLSIGHT_OPENAI_API_KEY", "")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}

	err = RequireOpenAIKey(cfg)
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q, want it to mention missing required config", err)
	}
}

func TestRequireOpenAIKeySet(t *testing.T) {
	t.Setenv("CALLSIGHT_OPENAI_API_KEY", "sk-test")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("loadWith failed: %v", err)
	}
	if err := RequireOpenAIKey(cfg); err != nil {
		t.Errorf("RequireOpenAIKey = %v, want nil", err)
	}
}

func TestSecretsNotReadFromBackend(t *testing.T) {
	t.Setenv("CALLSIGHT_OPENAI_API_KEY", "env-key")

	b := emptyBackend()
	b.strings["openai.api_key"] = "file-key"
	b.strings["api.token"] = "file-token"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OpenAI.APIKey != "env-key" {
		t.Errorf("OpenAI.APIKey = %q, want env value", cfg.OpenAI.APIKey)
	}
	if cfg.API.Token != "" {
		t.Errorf("API.Token = %q, want empty", cfg.API.Token)
	}
}

func TestShowAllOmitsSecrets(t *testing.T) {
	t.Setenv("CALLSIGHT_OPENAI_API_KEY", "very-secret")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, info := range ShowAll(cfg) {
		if info.Key == "openai.api_key" || info.Key == "api.token" {
			t.Errorf("ShowAll exposed secret key %s", info.Key)
		}
		if strings.Contains(info.Value, "very-secret") {
			t.Errorf("ShowAll leaked secret value via %s", info.Key)
		}
	}
}
