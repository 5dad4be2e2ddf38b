package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	ListenAddress string
	Environment   string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	CORSOrigins   []string
}

// Production reports whether HTTPS is enforced
func (s ServerConfig) Production() bool {
	return s.Environment == "production"
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
	Timeout  time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI-compatible endpoints
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	TopP        float32
	MaxBodySize int
}

// RateLimitConfig represents the rate limiter and its store
type RateLimitConfig struct {
	MaxRequests   int
	Window        time.Duration
	Store         string
	MaxEntries    int
	SweepSchedule string
	RedisURL      string
	SQLitePath    string
	MySQLDSN      string
}

// SpamConfig represents the honeypot and timing checks
type SpamConfig struct {
	HoneypotField          string
	MinFillTime            time.Duration
	RequireRenderTimestamp bool
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	read, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server.read_timeout: %w", err)
	}
	write, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid server.write_timeout: %w", err)
	}
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
		Environment:   c.GetString("server.environment"),
		ReadTimeout:   read,
		WriteTimeout:  write,
		CORSOrigins:   c.GetStringSlice("server.cors_origins"),
	}, nil
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() (LLMConfig, error) {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		return LLMConfig{}, fmt.Errorf("invalid llm.timeout: %w", err)
	}
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		Timeout:  timeout,
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetRateLimit returns the rate limiter configuration
func (c *Config) GetRateLimit() (RateLimitConfig, error) {
	window, err := c.GetDuration("ratelimit.window")
	if err != nil {
		return RateLimitConfig{}, fmt.Errorf("invalid ratelimit.window: %w", err)
	}
	return RateLimitConfig{
		MaxRequests:   c.GetInt("ratelimit.max_requests"),
		Window:        window,
		Store:         c.GetString("ratelimit.store"),
		MaxEntries:    c.GetInt("ratelimit.max_entries"),
		SweepSchedule: c.GetString("ratelimit.sweep_schedule"),
		RedisURL:      c.GetString("ratelimit.redis_url"),
		SQLitePath:    c.GetString("ratelimit.sqlite_path"),
		MySQLDSN:      c.GetString("ratelimit.mysql_dsn"),
	}, nil
}

// GetSpam returns the spam gate configuration
func (c *Config) GetSpam() (SpamConfig, error) {
	minFill, err := c.GetDuration("spam.min_fill_time")
	if err != nil {
		return SpamConfig{}, fmt.Errorf("invalid spam.min_fill_time: %w", err)
	}
	return SpamConfig{
		HoneypotField:          c.GetString("spam.honeypot_field"),
		MinFillTime:            minFill,
		RequireRenderTimestamp: c.GetBool("spam.require_render_timestamp"),
	}, nil
}
