package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "JOKEBATTLES"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabasePath      = "votes.db"
	defaultLogLevel          = "info"
	defaultBatchTTLMinutes   = 30
	defaultGenerationSeconds = 30
	defaultOllamaBaseURL     = "http://localhost:11434"
	defaultOpenAIModel       = "gpt-3.5-turbo"
	defaultAnthropicModel    = "claude-3-5-sonnet-20241022"
	defaultGeminiModel       = "gemini-1.5-flash"
	defaultLlamaModel        = "llama3.2"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress       string
	DatabasePath      string
	LogLevel          string
	BatchTTL          time.Duration
	GenerationTimeout time.Duration

	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GoogleAPIKey    string
	GeminiModel     string
	OllamaBaseURL   string
	LlamaModel      string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("batch.ttl_minutes", defaultBatchTTLMinutes)
	configViper.SetDefault("generation.timeout_seconds", defaultGenerationSeconds)
	configViper.SetDefault("openai.model", defaultOpenAIModel)
	configViper.SetDefault("anthropic.model", defaultAnthropicModel)
	configViper.SetDefault("gemini.model", defaultGeminiModel)
	configViper.SetDefault("ollama.base_url", defaultOllamaBaseURL)
	configViper.SetDefault("ollama.model", defaultLlamaModel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		BatchTTL:          time.Duration(configViper.GetInt("batch.ttl_minutes")) * time.Minute,
		GenerationTimeout: time.Duration(configViper.GetInt("generation.timeout_seconds")) * time.Second,
		OpenAIAPIKey:      configViper.GetString("openai.api_key"),
		OpenAIModel:       configViper.GetString("openai.model"),
		AnthropicAPIKey:   configViper.GetString("anthropic.api_key"),
		AnthropicModel:    configViper.GetString("anthropic.model"),
		GoogleAPIKey:      configViper.GetString("google.api_key"),
		GeminiModel:       configViper.GetString("gemini.model"),
		OllamaBaseURL:     configViper.GetString("ollama.base_url"),
		LlamaModel:        configViper.GetString("ollama.model"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.BatchTTL <= 0 {
		return fmt.Errorf("batch.ttl_minutes must be positive")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("generation.timeout_seconds must be positive")
	}
	return nil
}
