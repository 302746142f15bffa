package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	DatabaseURL    string
	DatabaseDriver string

	StreamAPIKey    string
	StreamAPISecret string

	LLMProvider   string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string

	HTTPPort string
	LogMode  string
	LogLevel string
}

// Load reads a .env file when present and builds the Config from the
// environment. A missing credential for an enabled provider is an error.
func Load() (Config, error) {
	envFileLoaded := godotenv.Load() == nil

	cfg := Config{
		DatabaseURL:     getEnv("DATABASE_URL", "chat_relay.db"),
		DatabaseDriver:  getEnv("DATABASE_DRIVER", ""),
		StreamAPIKey:    getEnv("STREAM_API_KEY", ""),
		StreamAPISecret: getEnv("STREAM_PRIVATE_KEY", ""),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIKey:       getEnv("OPEN_AI_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		HTTPPort:        getEnv("PORT", "5000"),
		LogMode:         getEnv("LOG_MODE", "development"),
		LogLevel:        strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
	}
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = inferDriver(cfg.DatabaseURL)
	}

	if err := cfg.validate(); err != nil {
		if !envFileLoaded {
			return cfg, fmt.Errorf("%w (no .env file found, relying on environment variables)", err)
		}
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is undefined")
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.StreamAPIKey == "" || c.StreamAPISecret == "" {
		return fmt.Errorf("STREAM_API_KEY and STREAM_PRIVATE_KEY environment variables are required")
	}
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPEN_AI_KEY environment variable is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

func inferDriver(databaseURL string) string {
	lower := strings.ToLower(databaseURL)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
