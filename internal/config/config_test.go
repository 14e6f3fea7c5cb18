package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

var keys = []string{
	"NARRATOR_PROVIDER", "GEMINI_API_KEY", "GEMINI_MODEL", "OPENAI_API_KEY",
	"OPENAI_BASE_URL", "OPENAI_MODEL", "SCENE_DIR", "SCENE_ID",
	"GENERATION_MAX_ATTEMPTS", "GENERATION_TIMEOUT", "HISTORY_WINDOW",
	"SAVE_DIR", "LOG_LEVEL", "LOG_FILE",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestParseDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "k")
	cfg, err := Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != ProviderGemini || cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("Provider = %q, GeminiModel = %q", cfg.Provider, cfg.GeminiModel)
	}
	if cfg.MaxAttempts != 3 || cfg.Timeout != 45*time.Second || cfg.Window != 6 {
		t.Errorf("generation defaults = %d, %s, %d", cfg.MaxAttempts, cfg.Timeout, cfg.Window)
	}
	if cfg.SceneDir != "scenes" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("SceneDir = %q, LogLevel = %v", cfg.SceneDir, cfg.LogLevel)
	}
}

func TestParseOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NARRATOR_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434/v1")
	t.Setenv("GENERATION_MAX_ATTEMPTS", "5")
	t.Setenv("GENERATION_TIMEOUT", "2m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SCENE_ID", "boarding")

	cfg, err := Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != ProviderOpenAI || cfg.OpenAIBaseURL != "http://localhost:11434/v1" {
		t.Errorf("provider = %q, base url = %q", cfg.Provider, cfg.OpenAIBaseURL)
	}
	if cfg.MaxAttempts != 5 || cfg.Timeout != 2*time.Minute {
		t.Errorf("MaxAttempts = %d, Timeout = %s", cfg.MaxAttempts, cfg.Timeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.SceneID != "boarding" {
		t.Errorf("SceneID = %q", cfg.SceneID)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing gemini key", map[string]string{"NARRATOR_PROVIDER": "gemini"}, "GEMINI_API_KEY"},
		{"missing openai key", map[string]string{"NARRATOR_PROVIDER": "openai"}, "OPENAI_API_KEY"},
		{"unknown provider", map[string]string{"NARRATOR_PROVIDER": "parrot"}, "NARRATOR_PROVIDER"},
		{"zero attempts", map[string]string{"GEMINI_API_KEY": "k", "GENERATION_MAX_ATTEMPTS": "0"}, "GENERATION_MAX_ATTEMPTS"},
		{"zero window", map[string]string{"GEMINI_API_KEY": "k", "HISTORY_WINDOW": "0"}, "HISTORY_WINDOW"},
		{"bad timeout", map[string]string{"GEMINI_API_KEY": "k", "GENERATION_TIMEOUT": "soon"}, "GENERATION_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
