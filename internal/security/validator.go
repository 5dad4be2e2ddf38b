package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxInputLength is the maximum number of characters accepted for a text field
const MaxInputLength = 500

// VerdictKind says why a text was rejected
type VerdictKind string

const (
	VerdictOK      VerdictKind = ""
	VerdictInvalid VerdictKind = "invalid"
	VerdictTooLong VerdictKind = "too_long"
	VerdictCode    VerdictKind = "code"
)

// ValidationVerdict is the accept/reject decision for one text field
type ValidationVerdict struct {
	Valid  bool
	Reason string
	Kind   VerdictKind
	Code   CodeType
}

// ValidateUserInput checks presence, length and code signatures. It never errors;
// every rejection is encoded in the verdict.
func ValidateUserInput(text string) ValidationVerdict {
	if text == "" {
		return ValidationVerdict{Reason: "Input invalide", Kind: VerdictInvalid}
	}
	if utf8.RuneCountInString(text) > MaxInputLength {
		return ValidationVerdict{
			Reason: fmt.Sprintf("Contenu trop long (maximum %d caractères)", MaxInputLength),
			Kind:   VerdictTooLong,
		}
	}

	if d := ContainsCode(text); d.Detected {
		return codeVerdict(d.Type)
	}

	// second layer, kept even though ContainsCode already covers both
	if ContainsHTML(text) {
		return codeVerdict(CodeHTML)
	}
	if ContainsJavaScript(text) {
		return codeVerdict(CodeJavaScript)
	}
	return ValidationVerdict{Valid: true}
}

func codeVerdict(t CodeType) ValidationVerdict {
	name := string(t)
	if name == "" {
		name = "malveillant"
	}
	return ValidationVerdict{
		Reason: fmt.Sprintf("Code %s détecté et bloqué", name),
		Kind:   VerdictCode,
		Code:   t,
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks the trimmed value has a local part, a domain and a dot-separated suffix
func ValidateEmail(email string) bool {
	if email == "" {
		return false
	}
	return emailPattern.MatchString(strings.TrimSpace(email))
}
