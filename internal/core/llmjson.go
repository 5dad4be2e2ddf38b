package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*")

// ErrNoJSONObject is returned when an LLM answer holds no JSON object
var ErrNoJSONObject = errors.New("no JSON object in LLM response")

// ParseLLMObject decodes the JSON object in an LLM answer. Markdown fences are
// removed first; if the rest is not valid JSON the text between the first '{'
// and the last '}' is tried.
func ParseLLMObject(content string) (map[string]any, error) {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(content, ""))

	var obj map[string]any
	err := json.Unmarshal([]byte(cleaned), &obj)
	if err == nil && obj != nil {
		return obj, nil
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		if err == nil {
			return nil, ErrNoJSONObject
		}
		return nil, fmt.Errorf("%w: %v", ErrNoJSONObject, err)
	}

	obj = nil
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	if obj == nil {
		return nil, ErrNoJSONObject
	}
	return obj, nil
}
