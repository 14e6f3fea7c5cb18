package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds the application configuration.
type Config struct {
	Provider string `env:"NARRATOR_PROVIDER" envDefault:"gemini"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	SceneDir string `env:"SCENE_DIR" envDefault:"scenes"`
	SceneID  string `env:"SCENE_ID"`

	MaxAttempts int           `env:"GENERATION_MAX_ATTEMPTS" envDefault:"3"`
	Timeout     time.Duration `env:"GENERATION_TIMEOUT" envDefault:"45s"`
	Window      int           `env:"HISTORY_WINDOW" envDefault:"6"`

	SaveDir  string     `env:"SAVE_DIR" envDefault:"saves"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string     `env:"LOG_FILE" envDefault:"branching-scenes.log"`
}

// LoadConfig loads the configuration from environment variables, reading a
// .env file in the working directory first if there is one.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
	default:
		return fmt.Errorf("NARRATOR_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.Provider)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("GENERATION_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.Window < 1 {
		return fmt.Errorf("HISTORY_WINDOW must be at least 1, got %d", c.Window)
	}
	return nil
}
