// Package spamgate rejects automated submissions before any content is inspected.
package spamgate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/allowlist"
	"github.com/mikey/intake-guard/internal/apperr"
)

// Error codes reported on the wire
const (
	CodeSpam         = "spam_detected"
	CodeUnexpected   = "unexpected_fields"
	CodeHoneypot     = "honeypot_triggered"
	CodeTooFast      = "submitted_too_fast"
	CodeMissingStamp = "missing_render_timestamp"
)

// Defaults
const (
	DefaultHoneypotField = "website"
	DefaultMinFillTime   = 3 * time.Second
)

// Blocklist holds field names only a bot would fill
var Blocklist = []string{
	"website", "url", "homepage", "confirm_email", "captcha", "recaptcha", "hcaptcha",
	"bot_check", "spam_check", "verification", "email_confirm", "phone_confirm",
	"human_check", "honeypot_field", "url_field",
}

var suspiciousNames = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^autre_`),
	regexp.MustCompile(`(?i)_field$`),
	regexp.MustCompile(`(?i)_check$`),
	regexp.MustCompile(`(?i)^spam_`),
	regexp.MustCompile(`(?i)^bot_`),
}

// Config tunes the honeypot and fill-time checks
type Config struct {
	HoneypotField          string
	MinFillTime            time.Duration
	RequireRenderTimestamp bool
}

// Gate applies the field-name policy, the honeypot and the fill-time floor
type Gate struct {
	allowed   *allowlist.Checker
	blocklist map[string]struct{}
	cfg       Config
	logger    *zap.Logger
}

// New creates a gate. allowed holds the fields a legitimate client may send.
func New(allowed *allowlist.Checker, cfg Config, logger *zap.Logger) *Gate {
	if cfg.HoneypotField == "" {
		cfg.HoneypotField = DefaultHoneypotField
	}
	if cfg.MinFillTime <= 0 {
		cfg.MinFillTime = DefaultMinFillTime
	}
	block := make(map[string]struct{}, len(Blocklist))
	for _, name := range Blocklist {
		block[name] = struct{}{}
	}
	return &Gate{allowed: allowed, blocklist: block, cfg: cfg, logger: logger}
}

// CheckFields evaluates, in order: blocklisted names carrying a value, suspicious
// names carrying a value, then any field outside the allow-list.
func (g *Gate) CheckFields(fields map[string]any) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, blocked := g.blocklist[name]; blocked && filled(fields[name]) {
			g.logger.Warn("Blocklisted field filled", zap.String("field", name))
			return apperr.Policyf(CodeSpam, "Soumission rejetée : activité suspecte détectée")
		}
	}

	for _, name := range names {
		if suspicious(name) && filled(fields[name]) {
			g.logger.Warn("Suspicious field filled", zap.String("field", name))
			return apperr.Policyf(CodeSpam, "Soumission rejetée : activité suspecte détectée")
		}
	}

	if extra := g.allowed.Unexpected(names); len(extra) > 0 {
		g.logger.Warn("Unexpected fields in request", zap.Strings("fields", extra))
		return apperr.Policyf(CodeUnexpected, "Champs inattendus dans la requête : %s", strings.Join(extra, ", "))
	}
	return nil
}

// CheckHoneypot rejects form data whose decoy field is not empty
func (g *Gate) CheckHoneypot(formData map[string]any) error {
	if filled(formData[g.cfg.HoneypotField]) {
		g.logger.Warn("Honeypot triggered", zap.String("field", g.cfg.HoneypotField))
		return apperr.Policyf(CodeHoneypot, "Soumission rejetée")
	}
	return nil
}

// CheckFillTime rejects a form submitted faster than a human could fill it.
// A nil renderedAt passes unless the render timestamp is required.
func (g *Gate) CheckFillTime(renderedAt *time.Time, now time.Time) error {
	if renderedAt == nil {
		if g.cfg.RequireRenderTimestamp {
			return apperr.Policyf(CodeMissingStamp, "Horodatage du formulaire manquant")
		}
		return nil
	}

	elapsed := now.Sub(*renderedAt)
	if elapsed < g.cfg.MinFillTime {
		g.logger.Warn("Form submitted too fast", zap.Duration("elapsed", elapsed))
		return apperr.Policyf(CodeTooFast, "Formulaire soumis trop rapidement")
	}
	return nil
}

// HoneypotField returns the configured decoy field name
func (g *Gate) HoneypotField() string { return g.cfg.HoneypotField }

func suspicious(name string) bool {
	for _, re := range suspiciousNames {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func filled(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	default:
		return strings.TrimSpace(fmt.Sprint(val)) != ""
	}
}
