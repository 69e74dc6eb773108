package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names accepted in TRIAGE_LLM_PROVIDER.
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
)

// Config holds every setting of the service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Log      LogConfig
	// ProtocolFile replaces the embedded protocol when set.
	ProtocolFile string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string { return ":" + s.Port }

// DatabaseConfig configures run history.  An empty URL disables history.
type DatabaseConfig struct {
	URL           string
	NotifyChannel string
}

// Enabled reports whether history is configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// LLMConfig selects and configures the remote generator.
type LLMConfig struct {
	Provider string
	Timeout  time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AzureEndpoint   string
	AzureAPIKey     string
	AzureDeployment string
	AzureAPIVersion string

	GeminiAPIKey string
	GeminiModel  string
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, after loading a .env file
// if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	timeout := time.Duration(0)
	if raw := os.Getenv("TRIAGE_LLM_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("TRIAGE_LLM_TIMEOUT: %w", err)
		}
		timeout = d
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL:           os.Getenv("DATABASE_URL"),
			NotifyChannel: getEnvOrDefault("POSTGRES_NOTIFY_CHANNEL", "triage_runs"),
		},
		LLM: LLMConfig{
			Timeout:         timeout,
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:     getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
			AzureEndpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			AzureAPIKey:     os.Getenv("AZURE_OPENAI_API_KEY"),
			AzureDeployment: getEnvOrDefault("AZURE_OPENAI_DEPLOYMENT", "gpt-5.2"),
			AzureAPIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-15-preview"),
			GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
			GeminiModel:     getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		ProtocolFile: os.Getenv("TRIAGE_PROTOCOL_FILE"),
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(os.Getenv("TRIAGE_LLM_PROVIDER")))
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = cfg.LLM.detectProvider()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// detectProvider picks a provider from whichever credentials are present.
func (l LLMConfig) detectProvider() string {
	switch {
	case l.AzureEndpoint != "":
		return ProviderAzure
	case l.OpenAIAPIKey != "":
		return ProviderOpenAI
	case l.GeminiAPIKey != "":
		return ProviderGemini
	}
	return ProviderNone
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %q is not a valid port", c.Server.Port))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("TRIAGE_LLM_TIMEOUT must not be negative"))
	}
	switch c.LLM.Provider {
	case ProviderNone:
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for provider openai"))
		}
	case ProviderAzure:
		if c.LLM.AzureEndpoint == "" || c.LLM.AzureAPIKey == "" {
			errs = append(errs, errors.New("AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY are required for provider azure"))
		}
		if c.LLM.AzureDeployment == "" || c.LLM.AzureAPIVersion == "" {
			errs = append(errs, errors.New("AZURE_OPENAI_DEPLOYMENT and AZURE_OPENAI_API_VERSION must not be empty"))
		}
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for provider gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("TRIAGE_LLM_PROVIDER %q is not one of none, openai, azure, gemini", c.LLM.Provider))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not json or console", c.Log.Format))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
