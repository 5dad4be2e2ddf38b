package core

import (
	"context"
	"errors"
	"time"

	"github.com/mikey/intake-guard/internal/ratelimit"
)

// Prompt is a single chat completion request
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// ErrLLMNotConfigured is returned by provider factories when the credential is missing
var ErrLLMNotConfigured = errors.New("LLM provider credentials not configured")

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Complete sends the prompt and returns the raw text of the first choice
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// RateLimiter counts requests per client identifier
type RateLimiter interface {
	Check(ctx context.Context, id string) (ratelimit.Decision, error)
}

// SpamGate rejects automated submissions
type SpamGate interface {
	CheckFields(fields map[string]any) error
	CheckHoneypot(formData map[string]any) error
	CheckFillTime(renderedAt *time.Time, now time.Time) error
}
