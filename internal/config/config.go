package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Defaults mirror the web client the service was modelled on.
const (
	DefaultBaseURL     = "https://api.cursor.sh/v1"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// ProviderOpenAI is the only wire protocol spoken: OpenAI-style
// /chat/completions, which the default endpoint also implements.
const ProviderOpenAI = "openai"

const envPrefix = "CHATSESSION"

// Config holds the application configuration
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Server    ServerConfig    `mapstructure:"server"`
	History   HistoryConfig   `mapstructure:"history"`
	Log       LogConfig       `mapstructure:"log"`
	Interview InterviewConfig `mapstructure:"interview"`
}

// LLMConfig holds the completion endpoint configuration. It is fixed for
// the lifetime of a chat session.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// HistoryConfig points at the SQLite transcript database.
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// InterviewConfig tunes the scripted interviewer.
type InterviewConfig struct {
	MaxQuestions int `mapstructure:"max_questions"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.base_url", DefaultBaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", DefaultModel)
	v.SetDefault("llm.max_tokens", DefaultMaxTokens)
	v.SetDefault("llm.temperature", DefaultTemperature)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("history.db_path", "history.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("interview.max_questions", 8)
}

// Load reads config.yaml from the working directory, or the file named by
// CONFIG_PATH. A missing config.yaml is not an error: defaults and
// CHATSESSION_* environment variables still apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("history.db_path", envPrefix+"_HISTORY_DB_PATH", "HISTORY_DB_PATH"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values that would make every request fail in a
// non-obvious way. A missing API key is allowed: the interview mode never
// calls the endpoint, and assistant calls simply fall back.
func (c *Config) Validate() error {
	if c.LLM.Provider != "" && c.LLM.Provider != ProviderOpenAI {
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	// 0 is allowed; the request builder keeps it on the wire.
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Interview.MaxQuestions <= 0 {
		return fmt.Errorf("interview.max_questions must be positive, got %d", c.Interview.MaxQuestions)
	}
	return nil
}
