package allowlist

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Checker tells whether a submitted field name belongs to a declared set
type Checker struct {
	fields map[string]struct{}
	logger *zap.Logger
}

// NewChecker creates a new allow-list checker. Names are matched exactly after trimming.
func NewChecker(fields []string, logger *zap.Logger) *Checker {
	normalized := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field != "" {
			normalized[field] = struct{}{}
		}
	}

	c := &Checker{fields: normalized, logger: logger}
	if len(normalized) > 0 && logger != nil {
		logger.Debug("Initialized field allow-list", zap.Strings("fields", c.Fields()))
	}
	return c
}

// IsAllowed checks if the field name is declared
func (c *Checker) IsAllowed(field string) bool {
	_, ok := c.fields[field]
	return ok
}

// Unexpected returns the names in submitted that are not declared, sorted
func (c *Checker) Unexpected(submitted []string) []string {
	var extra []string
	for _, name := range submitted {
		if !c.IsAllowed(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	if len(extra) > 0 && c.logger != nil {
		c.logger.Debug("Undeclared fields submitted", zap.Strings("fields", extra))
	}
	return extra
}

// Fields returns the declared names, sorted
func (c *Checker) Fields() []string {
	out := make([]string, 0, len(c.fields))
	for f := range c.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
