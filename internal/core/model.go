package core

import (
	"slices"
	"time"
)

// Mission is one of the four intake categories
type Mission string

// Missions
const (
	MissionDonation  Mission = "donation"
	MissionVolunteer Mission = "volunteer"
	MissionContact   Mission = "contact"
	MissionInfo      Mission = "info"
)

// Missions lists every valid mission
var Missions = []Mission{MissionDonation, MissionVolunteer, MissionContact, MissionInfo}

// Valid reports whether m is one of the four missions
func (m Mission) Valid() bool {
	return slices.Contains(Missions, m)
}

// ParseMission returns the mission for s, collapsing anything unknown to contact
func ParseMission(s string) Mission {
	if m := Mission(s); m.Valid() {
		return m
	}
	return MissionContact
}

// Source tells which classifier produced an IntentResult
type Source string

// Sources
const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Extracted field keys
const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldAmount       = "amount"
	FieldFrequency    = "frequency"
	FieldSkills       = "skills"
	FieldAvailability = "availability"
	FieldMessage      = "message"
	FieldTopic        = "topic"
)

// Normalized donation frequencies
const (
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
	FrequencyOnce    = "once"
)

// DefaultConfidence is used when no usable confidence is available
const DefaultConfidence = 0.8

// IntentResult is the classification returned to the caller
type IntentResult struct {
	Mission    Mission           `json:"mission"`
	Confidence float64           `json:"confidence"`
	Reasoning  string            `json:"reasoning"`
	Extracted  map[string]string `json:"extracted"`
	Source     Source            `json:"source"`
}

// Client identifies the caller of a gateway operation
type Client struct {
	// ID is the rate-limit key, usually the forwarded client IP
	ID string
	// Secure is true when the request reached the proxy over HTTPS
	Secure bool
}

// ImproveAction selects a rewrite template
type ImproveAction string

// Rewrite actions
const (
	ActionImprove  ImproveAction = "improve"
	ActionRephrase ImproveAction = "rephrase"
	ActionCorrect  ImproveAction = "correct"
)

// ImproveRequest asks for an LLM rewrite of one form field
type ImproveRequest struct {
	Text    string        `json:"text" validate:"required"`
	Action  ImproveAction `json:"action" validate:"required,oneof=improve rephrase correct"`
	Field   string        `json:"field" validate:"required"`
	Mission string        `json:"mission" validate:"required"`
}

// ImproveResult is the rewrite returned to the caller
type ImproveResult struct {
	ImprovedText string        `json:"improvedText"`
	OriginalText string        `json:"originalText"`
	Action       ImproveAction `json:"action"`
	Field        string        `json:"field"`
	Mission      string        `json:"mission"`
}

// SummaryRequest carries a completed form for the thank-you message
type SummaryRequest struct {
	Mission  string         `json:"mission" validate:"required"`
	FormData map[string]any `json:"formData" validate:"required"`
	Intent   string         `json:"intent,omitempty"`
	UserName string         `json:"userName,omitempty"`
	// RenderedAt is the form render time in unix milliseconds
	RenderedAt *int64 `json:"renderedAt,omitempty"`
}

// SummaryResult is the thank-you message returned to the caller
type SummaryResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Mission   string    `json:"mission"`
	Year      int       `json:"year"`
	UserName  string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
}
