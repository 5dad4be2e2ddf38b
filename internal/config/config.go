package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config wraps the Viper instance holding every setting
type Config struct {
	v *viper.Viper
}

// EnvPrefix prefixes every environment override, e.g. INTAKE_GUARD_LLM_PROVIDER
const EnvPrefix = "INTAKE_GUARD"

var searchPaths = []string{"/etc/intake-guard/", "$HOME/.intake-guard", "./configs", "."}

// New loads config.yaml from the first search path that has one, then applies
// environment overrides. A missing file is not an error.
func New() (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper wraps an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper returns a Viper instance holding only the defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

var defaults = map[string]any{
	"server.listen_address": "0.0.0.0:8080",
	"server.environment":    "development",
	"server.read_timeout":   "15s",
	"server.write_timeout":  "30s",
	"server.cors_origins":   []string{"*"},

	"llm.provider": "openai",
	"llm.timeout":  "10s",

	// Groq speaks the OpenAI wire protocol
	"openai.api_key":       "",
	"openai.base_url":      "https://api.groq.com/openai/v1",
	"openai.model_name":    "llama-3.1-8b-instant",
	"openai.top_p":         1.0,
	"openai.max_body_size": 4096,

	"gemini.api_key":       "",
	"gemini.model_name":    "gemini-1.5-flash",
	"gemini.top_p":         0.9,
	"gemini.max_body_size": 4096,

	"bedrock.region":        "us-east-1",
	"bedrock.model_id":      "anthropic.claude-3-haiku-20240307-v1:0",
	"bedrock.top_p":         0.9,
	"bedrock.max_body_size": 4096,

	"ratelimit.max_requests":   10,
	"ratelimit.window":         "15m",
	"ratelimit.store":          "memory",
	"ratelimit.max_entries":    50000,
	"ratelimit.sweep_schedule": "*/5 * * * *",
	"ratelimit.redis_url":      "redis://localhost:6379/0",
	"ratelimit.sqlite_path":    "/data/ratelimit.db",
	"ratelimit.mysql_dsn":      "user:password@tcp(localhost:3306)/intake_guard",

	"spam.honeypot_field":           "website",
	"spam.min_fill_time":            "3s",
	"spam.require_render_timestamp": false,

	"intent.fallback_when_unconfigured": false,

	"logging.level":  "info",
	"logging.format": "json",
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
