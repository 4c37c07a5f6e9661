package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Environment string          `mapstructure:"environment" yaml:"environment"`
	Port        int             `mapstructure:"port" yaml:"port"`
	Database    DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Auth        AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Providers   ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Chat        ChatConfig      `mapstructure:"chat" yaml:"chat"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	ExpireHours int    `mapstructure:"expire_hours" yaml:"expire_hours"`
}

type ProvidersConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	OpenAI   OpenAIConfig   `mapstructure:"openai" yaml:"openai"`
	GoogleAI GoogleAIConfig `mapstructure:"googleai" yaml:"googleai"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"`
}

type GoogleAIConfig struct {
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Model       string        `mapstructure:"model" yaml:"model"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
}

type ChatConfig struct {
	HistoryTokenBudget int `mapstructure:"history_token_budget" yaml:"history_token_budget"`
}

// Load reads the config file at path (when it exists) with environment
// variables taking precedence, e.g. AUTH_JWT_SECRET overrides
// auth.jwt_secret. The returned config is complete and validated.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("environment", "production")
	v.SetDefault("port", 8100)
	v.SetDefault("database.path", "taskchat.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.expire_hours", 168)
	v.SetDefault("providers.timeout", 30*time.Second)
	// Set empty defaults for secret-bearing keys so AutomaticEnv can
	// populate them even without a config file.
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.base_url", "")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.googleai.api_key", "")
	v.SetDefault("providers.googleai.model", "gemini-1.5-flash")
	v.SetDefault("providers.googleai.max_attempts", 3)
	v.SetDefault("providers.googleai.base_delay", 2*time.Second)
	v.SetDefault("chat.history_token_budget", 4000)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *AppConfig) validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Providers.OpenAI.APIKey == "" && c.Providers.GoogleAI.APIKey == "" {
		return fmt.Errorf("no AI providers configured: set providers.openai.api_key or providers.googleai.api_key")
	}
	if c.Providers.GoogleAI.MaxAttempts < 1 {
		return fmt.Errorf("providers.googleai.max_attempts must be at least 1")
	}
	return nil
}
